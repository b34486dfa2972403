package particle

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/phil-mansfield/amrpart/amr"
	"github.com/phil-mansfield/amrpart/geom"
)

func iv2(x, y int) geom.IntVect { return geom.IntVect{x, y, 0} }

func box2(x0, y0, x1, y1 int) geom.Box {
	return geom.NewBox(2, iv2(x0, y0), iv2(x1, y1))
}

// twoLevel is an 8x8 level 0 over [0, 1]^2 with level 1 refining the middle
// of the domain, [0.25, 0.75]^2, by a factor of 2.
func twoLevel(t *testing.T) amr.Hierarchy {
	base := geom.NewGeometry(box2(0, 0, 7, 7), geom.Vec{0, 0}, geom.Vec{1, 1},
		[geom.MaxDim]bool{})
	h, err := amr.New(base, []geom.IntVect{iv2(2, 2)}, [][]geom.Box{
		{box2(0, 0, 7, 7)},
		{box2(4, 4, 11, 11)},
	})
	require.NoError(t, err)
	return h
}

// unitSquare is a single 10x10 level over [0, 1]^2, periodic along x only.
func unitSquare(t *testing.T) amr.Hierarchy {
	base := geom.NewGeometry(box2(0, 0, 9, 9), geom.Vec{0, 0}, geom.Vec{1, 1},
		[geom.MaxDim]bool{true, false})
	h, err := amr.New(base, nil, [][]geom.Box{{box2(0, 0, 9, 9)}})
	require.NoError(t, err)
	return h
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return zap.New(core), logs
}

func panicValue(f func()) (v interface{}) {
	defer func() { v = recover() }()
	f()
	return nil
}

func TestLocate(t *testing.T) {
	l := NewLocator(twoLevel(t), nil)

	table := []struct {
		pos       geom.Vec
		lev, grid int
		cell      geom.IntVect
	}{
		{geom.Vec{0.3, 0.6}, 1, 0, iv2(4, 9)},
		{geom.Vec{0.1, 0.1}, 0, 0, iv2(0, 0)},
		{geom.Vec{0.74, 0.26}, 1, 0, iv2(11, 4)},
		{geom.Vec{0.76, 0.26}, 0, 0, iv2(6, 2)},
	}

	for i, test := range table {
		p := &Particle{ID: 1, Pos: test.pos}
		require.True(t, l.Locate(p, 0), "%d", i)
		want := &Particle{ID: 1, Lev: test.lev, Grid: test.grid,
			Cell: test.cell, Pos: test.pos}
		if diff := cmp.Diff(want, p); diff != "" {
			t.Errorf("%d) Locate mismatch (-want +got):\n%s", i, diff)
		}

		// Locate is idempotent.
		before := *p
		require.True(t, l.Locate(p, 0))
		assert.Equal(t, before, *p, "%d) second Locate", i)
	}
}

func TestLocateMinLevel(t *testing.T) {
	l := NewLocator(twoLevel(t), nil)

	p := &Particle{ID: 1, Lev: -1, Grid: -1, Pos: geom.Vec{0.1, 0.1}}
	before := *p
	assert.False(t, l.Locate(p, 1))
	assert.Equal(t, before, *p)

	p.Pos = geom.Vec{0.5, 0.5}
	assert.True(t, l.Locate(p, 1))
	assert.Equal(t, 1, p.Lev)

	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { l.Locate(p, 2) }))
}

func TestLocateIncremental(t *testing.T) {
	l := NewLocator(twoLevel(t), nil)

	p := &Particle{ID: 1, Pos: geom.Vec{0.3, 0.6}}
	require.True(t, l.Locate(p, 0))

	// Same cell.
	p.Pos[0] = 0.31
	assert.True(t, l.LocateIncremental(p))
	assert.Equal(t, iv2(4, 9), p.Cell)

	// New cell, same grid on the finest level.
	p.Pos[0] = 0.33
	assert.True(t, l.LocateIncremental(p))
	assert.Equal(t, iv2(5, 9), p.Cell)
	assert.Equal(t, 1, p.Lev)

	// Left the fine level.
	p.Pos[0] = 0.2
	assert.True(t, l.LocateIncremental(p))
	assert.Equal(t, 0, p.Lev)
	assert.Equal(t, iv2(1, 4), p.Cell)

	// Coarse particle that changed cell always searches.
	p.Pos = geom.Vec{0.2, 0.1}
	assert.True(t, l.LocateIncremental(p))
	assert.Equal(t, iv2(1, 0), p.Cell)

	p.ID = -1
	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { l.LocateIncremental(p) }))
	p.ID, p.Grid = 1, 4
	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { l.LocateIncremental(p) }))
}

func TestLocateRestricted(t *testing.T) {
	l := NewLocator(twoLevel(t), nil)

	p := &Particle{ID: 1, Pos: geom.Vec{0.3, 0.6}}
	require.True(t, l.Locate(p, 0))

	p.Pos[0] = 0.24
	assert.False(t, l.LocateRestricted(p, 0))
	assert.Equal(t, iv2(4, 9), p.Cell)

	assert.True(t, l.LocateRestricted(p, 1))
	assert.Equal(t, iv2(3, 9), p.Cell)
	assert.Equal(t, 1, p.Lev)
}

func TestReconcileWrapsPeriodic(t *testing.T) {
	log, logs := observed()
	l := NewLocator(unitSquare(t), log)

	p := &Particle{ID: NewIDAllocator().Next(), Pos: geom.Vec{0.999999, 0.5}}
	require.True(t, l.Locate(p, 0))
	assert.Equal(t, iv2(9, 5), p.Cell)

	p.Pos[0] = 1.0000001
	assert.True(t, l.Reconcile(p, true))
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, 0, p.Lev)
	assert.Equal(t, iv2(0, 5), p.Cell)
	assert.InDelta(t, 0.0000001, p.Pos[0], 1e-12)
	assert.Equal(t, 0.5, p.Pos[1])
	assert.Equal(t, 0, logs.Len())
}

func TestReconcileExactPeriodicFace(t *testing.T) {
	l := NewLocator(unitSquare(t), nil)

	p := &Particle{ID: 3, Pos: geom.Vec{1, 0.5}}
	assert.True(t, l.Reconcile(p, false))
	assert.Equal(t, iv2(0, 5), p.Cell)
	assert.True(t, p.Pos[0] > 0 && p.Pos[0] < 1e-12)
}

func TestReconcileInvalidates(t *testing.T) {
	log, logs := observed()
	l := NewLocator(unitSquare(t), log)

	// Exactly on the non-periodic high y face.
	p := &Particle{ID: 12, CPU: 3, Pos: geom.Vec{0.5, 1}}
	assert.False(t, l.Reconcile(p, false))
	assert.Equal(t, -12, p.ID)
	assert.False(t, p.Valid())

	// Invalid particles are skipped from now on.
	assert.False(t, l.Reconcile(p, true))
	assert.Equal(t, -12, p.ID)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Invalidating out-of-domain particle", entry.Message)
	assert.Equal(t, int64(12), entry.ContextMap()["id"])
}

func TestLocatePeriodic(t *testing.T) {
	l := NewLocator(unitSquare(t), nil)

	p := &Particle{ID: 1, Pos: geom.Vec{-0.05, 0.5}}
	assert.True(t, l.LocatePeriodic(p, 0))
	assert.InDelta(t, 0.95, p.Pos[0], 1e-15)
	assert.Equal(t, iv2(9, 5), p.Cell)

	// Nothing to wrap.
	p = &Particle{ID: 1, Pos: geom.Vec{0.5, 0.5}}
	assert.False(t, l.LocatePeriodic(p, 0))

	// Wrapping along x doesn't help a particle outside along y.
	p = &Particle{ID: 1, Pos: geom.Vec{-0.05, 1.5}}
	before := *p
	assert.False(t, l.LocatePeriodic(p, 0))
	assert.Equal(t, before, *p)
}

func TestNewLocatorNil(t *testing.T) {
	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { NewLocator(nil, nil) }))
}
