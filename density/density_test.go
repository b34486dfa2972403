package density

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/amrpart/amr"
	"github.com/phil-mansfield/amrpart/geom"
	"github.com/phil-mansfield/amrpart/particle"
)

func iv2(x, y int) geom.IntVect { return geom.IntVect{x, y, 0} }

func box2(x0, y0, x1, y1 int) geom.Box {
	return geom.NewBox(2, iv2(x0, y0), iv2(x1, y1))
}

// twoLevel is an 8x8 level 0 over [0, 1]^2 split into two blocks, with level
// 1 refining [0.25, 0.75]^2 by a factor of 2.
func twoLevel(t *testing.T, periodic bool) amr.Hierarchy {
	base := geom.NewGeometry(box2(0, 0, 7, 7), geom.Vec{0, 0}, geom.Vec{1, 1},
		[geom.MaxDim]bool{periodic, periodic})
	h, err := amr.New(base, []geom.IntVect{iv2(2, 2)}, [][]geom.Box{
		{box2(0, 0, 3, 7), box2(4, 0, 7, 7)},
		{box2(4, 4, 11, 11)},
	})
	require.NoError(t, err)
	return h
}

// edgeLevel is periodic with level 1 against the low x face.
func edgeLevel(t *testing.T) amr.Hierarchy {
	base := geom.NewGeometry(box2(0, 0, 7, 7), geom.Vec{0, 0}, geom.Vec{1, 1},
		[geom.MaxDim]bool{true, true})
	h, err := amr.New(base, []geom.IntVect{iv2(2, 2)}, [][]geom.Box{
		{box2(0, 0, 7, 7)},
		{box2(0, 4, 3, 11)},
	})
	require.NoError(t, err)
	return h
}

func located(t *testing.T, h amr.Hierarchy, pos geom.Vec) *particle.Particle {
	p := &particle.Particle{ID: 1, Pos: pos}
	require.True(t, particle.NewLocator(h, nil).Locate(p, 0), "pos %v", pos)
	return p
}

func panicValue(f func()) (v interface{}) {
	defer func() { v = recover() }()
	f()
	return nil
}

func TestCellsAndFractions(t *testing.T) {
	st := CellsAndFractions(2, geom.Vec{0.3, 0.6}, geom.Vec{}, geom.Vec{0.125, 0.125})
	require.Equal(t, 4, st.N)

	cells := []geom.IntVect{iv2(1, 4), iv2(2, 4), iv2(1, 5), iv2(2, 5)}
	fracs := []float64{0.07, 0.63, 0.03, 0.27}
	for k := range cells {
		assert.Equal(t, cells[k], st.Cells[k], "corner %d", k)
		assert.InDelta(t, fracs[k], st.Fracs[k], 1e-12, "corner %d", k)
	}
}

func TestCellsAndFractionsSum(t *testing.T) {
	lo, dx := geom.Vec{-1, 0, 2}, geom.Vec{0.1, 0.25, 0.3}
	table := []geom.Vec{
		{0, 0.5, 2.5}, {-0.99, 0.01, 2}, {-1.2, 3.3, 17.1},
		{0.05, 0.125, 2.15}, {123.456, -7.7, 0.001},
	}

	for dim := 1; dim <= geom.MaxDim; dim++ {
		for _, pos := range table {
			st := CellsAndFractions(dim, pos, lo, dx)
			require.Equal(t, 1<<uint(dim), st.N)
			assert.InDelta(t, 1, floats.Sum(st.Fracs[:st.N]), 1e-12,
				"dim %d, pos %v", dim, pos)
			assert.True(t, floats.Min(st.Fracs[:st.N]) >= 0)
		}
	}
}

func TestStencilAtOffset(t *testing.T) {
	g := geom.NewGeometry(box2(4, 4, 11, 11),
		geom.Vec{0.25, 0.25}, geom.Vec{0.75, 0.75}, [geom.MaxDim]bool{})
	st := StencilAt(g, geom.Vec{0.3, 0.6})
	assert.Equal(t, iv2(4, 9), st.Cells[0])
	assert.Equal(t, iv2(5, 10), st.Cells[3])
}

func TestFArray(t *testing.T) {
	a := NewFArray(box2(0, 0, 1, 2).Grow(1), 2)
	assert.Len(t, a.Data, 4*5*2)

	a.Add(iv2(-1, -1), 1, 2)
	a.Add(iv2(-1, -1), 1, 3)
	a.Set(iv2(2, 3), 0, 7)
	assert.Equal(t, 5.0, a.Value(iv2(-1, -1), 1))
	assert.Equal(t, 7.0, a.Value(iv2(2, 3), 0))
	assert.Equal(t, 0.0, a.Value(iv2(-1, -1), 0))
	assert.Equal(t, 7.0, floats.Sum(a.Comp(0)))

	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { a.Value(iv2(3, 0), 0) }))
	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { a.Value(iv2(0, 0), 2) }))
}

// linear is exactly reproduced by CIC interpolation away from boundaries.
func linear(g *geom.Geometry) Field {
	return FieldFunc(func(cell geom.IntVect, comp int) float64 {
		x := g.CellLo(cell, 0) + g.CellSize[0]/2
		y := g.CellLo(cell, 1) + g.CellSize[1]/2
		return float64(comp+1) * (2*x + 3*y)
	})
}

func TestInterp(t *testing.T) {
	h := twoLevel(t, false)

	table := []geom.Vec{{0.3, 0.6}, {0.1, 0.8}, {0.5, 0.5}, {0.74, 0.26}}
	for _, pos := range table {
		p := located(t, h, pos)
		f := linear(h.Geom(p.Lev))
		want := 2*pos[0] + 3*pos[1]

		vals := Interp(h, p, f, []int{0, 1}, nil)
		require.Len(t, vals, 2)
		assert.InDelta(t, want, vals[0], 1e-12, "pos %v", pos)
		assert.InDelta(t, 2*want, vals[1], 1e-12, "pos %v", pos)

		acc := Gravity(h, p, f)
		assert.InDelta(t, want, acc[0], 1e-12)
		assert.InDelta(t, 2*want, acc[1], 1e-12)
		assert.Equal(t, 0.0, acc[2])
	}
}

func TestInterpMesh(t *testing.T) {
	h := twoLevel(t, false)
	p := located(t, h, geom.Vec{0.3, 0.6})

	m := NewMesh(h, 1, 1)
	a := m.At(p.Lev, p.Grid)
	cell := a.Box.Lo
	for ok := true; ok; ok = a.Box.Next(&cell) {
		a.Set(cell, 0, 4)
	}

	vals := Interp(h, p, a, []int{0}, nil)
	assert.InDelta(t, 4, vals[0], 1e-12)
}

func TestInterpPreconditions(t *testing.T) {
	h := twoLevel(t, false)
	f := linear(h.Geom(0))
	p := located(t, h, geom.Vec{0.1, 0.1})

	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { Interp(h, p, f, []int{-1}, nil) }))
	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { Interp(nil, p, f, []int{0}, nil) }))

	p.ID = -p.ID
	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { Gravity(h, p, f) }))
}

func TestCrseToFine(t *testing.T) {
	h := twoLevel(t, false)
	r := amr.NewRegions(h)

	st := StencilAt(h.Geom(0), geom.Vec{0.24, 0.5})
	cf, ok := CrseToFine(r.CoarsenedFine(0), h.Geom(0), &st)
	require.True(t, ok)
	assert.Equal(t, [geom.MaxCorners]bool{false, true, false, true}, cf.Which)
	assert.Equal(t, [geom.MaxCorners]geom.IntVect{}, cf.Shifts)

	st = StencilAt(h.Geom(0), geom.Vec{0.1, 0.1})
	_, ok = CrseToFine(r.CoarsenedFine(0), h.Geom(0), &st)
	assert.False(t, ok)
}

func TestCrseToFinePeriodic(t *testing.T) {
	h := edgeLevel(t)
	r := amr.NewRegions(h)

	st := StencilAt(h.Geom(0), geom.Vec{0.99, 0.5})
	assert.Equal(t, iv2(8, 3), st.Cells[1])

	cf, ok := CrseToFine(r.CoarsenedFine(0), h.Geom(0), &st)
	require.True(t, ok)
	assert.Equal(t, [geom.MaxCorners]bool{false, true, false, true}, cf.Which)
	assert.Equal(t, iv2(-8, 0), cf.Shifts[1])
	assert.Equal(t, iv2(-8, 0), cf.Shifts[3])
	assert.True(t, cf.Shifts[0].IsZero())
}

func TestFineToCrse(t *testing.T) {
	h := twoLevel(t, false)
	r := amr.NewRegions(h)

	p := located(t, h, geom.Vec{0.26, 0.5})
	require.Equal(t, 1, p.Lev)
	require.Equal(t, iv2(4, 8), p.Cell)

	fc, ok := FineToCrse(r, p)
	require.True(t, ok)
	assert.Equal(t, [geom.MaxCorners]bool{true, false, true, false}, fc.Which)
	assert.Equal(t, [geom.MaxCorners]int{0, -1, 0, -1}, fc.Grid)
	assert.Equal(t, iv2(1, 3), fc.Cells[0])
	assert.InDelta(t, 0.42, fc.Fracs[0]+fc.Fracs[2], 1e-12)

	// Deep inside the fine block.
	_, ok = FineToCrse(r, located(t, h, geom.Vec{0.5, 0.5}))
	assert.False(t, ok)

	// Level 0 has nothing coarser.
	coarse := located(t, h, geom.Vec{0.1, 0.1})
	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { FineToCrse(r, coarse) }))
}

func TestFineCellsFromCrse(t *testing.T) {
	h := twoLevel(t, false)
	p := &particle.Particle{ID: 1, Pos: geom.Vec{0.26, 0.5}}

	fc := &FineCells{}
	FineCellsFromCrse(h, p, 0, iv2(2, 3), geom.IntVect{}, fc)

	// Fine cells (4,6) and (5,6) only share a face with the footprint, so
	// they are not touched. The overlap test is a strict interval overlap.
	require.Equal(t, 2, fc.Len())
	assert.Equal(t, []geom.IntVect{iv2(4, 7), iv2(5, 7)}, fc.Cells)
	assert.Equal(t, []int{0, 0}, fc.Grids)
	assert.InDelta(t, 0.0625/0.0725, fc.Fracs[0], 1e-12)
	assert.InDelta(t, 0.01/0.0725, fc.Fracs[1], 1e-12)

	sum := 0.0
	for _, f := range fc.Fracs {
		sum += f
	}
	assert.Equal(t, 1.0, sum)

	// The buffer is reused.
	FineCellsFromCrse(h, p, 0, iv2(2, 4), geom.IntVect{}, fc)
	assert.Equal(t, []geom.IntVect{iv2(4, 8), iv2(5, 8)}, fc.Cells)
	assert.Len(t, fc.Grids, 2)
}

func TestFineCellsFromCrseSums(t *testing.T) {
	h := twoLevel(t, true)
	cfba := amr.NewRegions(h).CoarsenedFine(0)
	fc := &FineCells{}

	table := []geom.Vec{
		{0.24, 0.5}, {0.3, 0.3}, {0.7001, 0.2999}, {0.5, 0.5}, {0.3333, 0.6667},
	}
	for _, pos := range table {
		p := &particle.Particle{ID: 1, Pos: pos}
		st := StencilAt(h.Geom(0), pos)
		for k := 0; k < st.N; k++ {
			if st.Fracs[k] == 0 || !cfba.Contains(st.Cells[k]) {
				continue
			}
			FineCellsFromCrse(h, p, 0, st.Cells[k], geom.IntVect{}, fc)
			require.True(t, fc.Len() > 0)

			sum := 0.0
			for _, f := range fc.Fracs {
				sum += f
			}
			assert.Equal(t, 1.0, sum, "pos %v, corner %d", pos, k)
		}
	}
}

func TestFineCellsFromCrsePeriodic(t *testing.T) {
	h := edgeLevel(t)
	p := &particle.Particle{ID: 1, Pos: geom.Vec{0.99, 0.5}}

	fc := &FineCells{}
	FineCellsFromCrse(h, p, 0, iv2(8, 3), iv2(-8, 0), fc)
	assert.Equal(t, []geom.IntVect{iv2(0, 7)}, fc.Cells)
	assert.Equal(t, []float64{1}, fc.Fracs)
}

func TestFineCellsFromCrseConsistency(t *testing.T) {
	h := twoLevel(t, false)
	p := &particle.Particle{ID: 1, Pos: geom.Vec{0.1, 0.1}}

	assert.IsType(t, &amr.ConsistencyError{}, panicValue(func() {
		FineCellsFromCrse(h, p, 0, iv2(0, 0), geom.IntVect{}, &FineCells{})
	}))
	assert.IsType(t, &amr.PreconditionError{}, panicValue(func() {
		FineCellsFromCrse(h, p, 1, iv2(0, 0), geom.IntVect{}, &FineCells{})
	}))
}

func TestAssignStraddle(t *testing.T) {
	h := twoLevel(t, false)
	r := amr.NewRegions(h)

	table := []struct {
		pos        geom.Vec
		lev        int
		crse, fine float64
	}{
		{geom.Vec{0.26, 0.5}, 1, 0.42, 0.58},
		{geom.Vec{0.24, 0.5}, 0, 0.58, 0.42},
	}

	for _, test := range table {
		p := located(t, h, test.pos)
		require.Equal(t, test.lev, p.Lev)
		m := Assign(r, []particle.Particle{*p}, 1, 1)

		assert.InDelta(t, 1, m.Total(0), 1e-14, "pos %v", test.pos)
		assert.Equal(t, 0.0, m.Lost)
		assert.InDelta(t, test.crse, m.LevelTotal(0, 0), 1e-12, "pos %v", test.pos)
		assert.InDelta(t, test.fine, m.LevelTotal(1, 0), 1e-12, "pos %v", test.pos)
	}

	p := located(t, h, geom.Vec{0.26, 0.5})
	m := Assign(r, []particle.Particle{*p}, 1, 1)
	fine := m.At(1, 0)
	assert.InDelta(t, 0.29*0.0625/0.0725, fine.Value(iv2(4, 7), 0), 1e-12)
	assert.InDelta(t, 0.29*0.01/0.0725, fine.Value(iv2(5, 8), 0), 1e-12)
	assert.Equal(t, 0.0, fine.Value(iv2(4, 6), 0))
}

func TestAssignLost(t *testing.T) {
	h := twoLevel(t, false)
	p := located(t, h, geom.Vec{0.01, 0.5})

	m := Assign(amr.NewRegions(h), []particle.Particle{*p}, 2, 1)
	assert.InDelta(t, 0.84, m.Lost, 1e-12)
	assert.InDelta(t, 1.16, m.Total(0), 1e-12)
}

func TestAssignPeriodicImage(t *testing.T) {
	h := edgeLevel(t)
	p := located(t, h, geom.Vec{0.99, 0.5})
	require.Equal(t, 0, p.Lev)

	m := Assign(amr.NewRegions(h), []particle.Particle{*p}, 1, 1)
	assert.InDelta(t, 1, m.Total(0), 1e-14)
	assert.Equal(t, 0.0, m.Lost)
	assert.InDelta(t, 0.42, m.LevelTotal(1, 0), 1e-12)
}

func TestAssignConserves(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := twoLevel(t, true)
	l := particle.NewLocator(h, nil)

	ps := []particle.Particle{}
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			p := particle.Particle{
				ID:  particle.NewIDAllocator().Next(),
				Pos: geom.Vec{(float64(i) + 0.37) / 20, (float64(j) + 0.61) / 20},
			}
			require.True(t, l.Locate(&p, 0))
			ps = append(ps, p)
		}
	}
	// Invalidated particles deposit nothing.
	ps = append(ps, particle.Particle{ID: -5, Pos: geom.Vec{0.5, 0.5}})

	serial := Assign(amr.NewRegions(h), ps, 1, 1)
	parallel := Assign(amr.NewRegions(h), ps, 1, 4)

	assert.Equal(t, 0.0, serial.Lost)
	assert.InDelta(t, 400, serial.Total(0), 1e-10)
	assert.InDelta(t, 400, parallel.Total(0), 1e-10)

	for lev := range serial.Levels {
		for i := range serial.Levels[lev] {
			assert.InDeltaSlice(t, serial.At(lev, i).Data,
				parallel.At(lev, i).Data, 1e-12)
		}
	}
}

// faceLevel is non-periodic with level 1 in the low corner of the domain.
func faceLevel(t *testing.T) amr.Hierarchy {
	base := geom.NewGeometry(box2(0, 0, 7, 7), geom.Vec{0, 0}, geom.Vec{1, 1},
		[geom.MaxDim]bool{})
	h, err := amr.New(base, []geom.IntVect{iv2(2, 2)}, [][]geom.Box{
		{box2(0, 0, 7, 7)},
		{box2(0, 0, 7, 7)},
	})
	require.NoError(t, err)
	return h
}

// badCrse replaces the level 0 blocks of a hierarchy.
type badCrse struct {
	*amr.Levels
	crse *geom.BoxArray
}

func (h badCrse) BoxArray(lev int) *geom.BoxArray {
	if lev == 0 {
		return h.crse
	}
	return h.Levels.BoxArray(lev)
}

func TestFineToCrseFace(t *testing.T) {
	h := faceLevel(t)
	r := amr.NewRegions(h)

	p := located(t, h, geom.Vec{0.005, 0.49})
	require.Equal(t, 1, p.Lev)
	require.Equal(t, iv2(0, 7), p.Cell)

	fc, ok := FineToCrse(r, p)
	require.True(t, ok)
	assert.Equal(t, [geom.MaxCorners]bool{true, false, true, true}, fc.Which)
	assert.Equal(t, [geom.MaxCorners]bool{true, false, true, false}, fc.Outside)
	assert.Equal(t, [geom.MaxCorners]int{-1, -1, -1, 0}, fc.Grid)
	assert.Equal(t, iv2(-1, 3), fc.Cells[0])

	m := Assign(r, []particle.Particle{*p}, 1, 1)
	assert.InDelta(t, 0.46, m.Lost, 1e-12)
	assert.InDelta(t, 0.54, m.Total(0), 1e-12)
	assert.InDelta(t, 0.54*0.42, m.LevelTotal(0, 0), 1e-12)
	assert.InDelta(t, 1, m.Total(0)+m.Lost, 1e-14)
}

func TestFineToCrsePeriodic(t *testing.T) {
	h := edgeLevel(t)
	r := amr.NewRegions(h)

	p := located(t, h, geom.Vec{0.01, 0.5})
	require.Equal(t, 1, p.Lev)
	require.Equal(t, iv2(0, 8), p.Cell)

	fc, ok := FineToCrse(r, p)
	require.True(t, ok)
	assert.Equal(t, [geom.MaxCorners]bool{true, false, true, false}, fc.Which)
	assert.Equal(t, [geom.MaxCorners]bool{}, fc.Outside)
	assert.Equal(t, [geom.MaxCorners]int{0, -1, 0, -1}, fc.Grid)
	assert.Equal(t, iv2(7, 3), fc.Cells[0])
	assert.Equal(t, iv2(7, 4), fc.Cells[2])

	m := Assign(r, []particle.Particle{*p}, 1, 1)
	assert.Equal(t, 0.0, m.Lost)
	assert.InDelta(t, 1, m.Total(0), 1e-14)
	assert.InDelta(t, 0.42, m.LevelTotal(0, 0), 1e-12)
	assert.InDelta(t, 0.21, m.At(0, 0).Value(iv2(7, 3), 0), 1e-12)
	assert.InDelta(t, 0.58, m.LevelTotal(1, 0), 1e-12)
}

func TestFineToCrseConsistency(t *testing.T) {
	good := twoLevel(t, false)
	p := located(t, good, geom.Vec{0.26, 0.5})
	require.Equal(t, 1, p.Lev)

	table := []struct {
		name  string
		boxes []geom.Box
	}{
		{"no owner", []geom.Box{box2(2, 0, 3, 7), box2(4, 0, 7, 7)}},
		{"two owners", []geom.Box{box2(0, 0, 3, 7), box2(0, 0, 7, 7)}},
	}

	for _, test := range table {
		h := badCrse{good.(*amr.Levels), geom.NewBoxArray(2, test.boxes)}
		r := amr.NewRegions(h)

		assert.IsType(t, &amr.ConsistencyError{},
			panicValue(func() { FineToCrse(r, p) }), test.name)

		ps := []particle.Particle{*p, *p, *p}
		assert.IsType(t, &amr.ConsistencyError{},
			panicValue(func() { Assign(r, ps, 1, 2) }), test.name)
	}
}

func TestAssignPreconditions(t *testing.T) {
	p := &particle.Particle{ID: 1, Lev: 1}
	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { Assign(nil, nil, 1, 1) }))
	assert.IsType(t, &amr.PreconditionError{},
		panicValue(func() { FineToCrse(nil, p) }))
}

// tenLevel is a 10x10 non-periodic level 0 with level 1 refining coarse
// cells 3 to 6 along each axis.
func tenLevel(t *testing.T) amr.Hierarchy {
	base := geom.NewGeometry(box2(0, 0, 9, 9), geom.Vec{0, 0}, geom.Vec{1, 1},
		[geom.MaxDim]bool{})
	h, err := amr.New(base, []geom.IntVect{iv2(2, 2)}, [][]geom.Box{
		{box2(0, 0, 9, 9)},
		{box2(6, 6, 13, 13)},
	})
	require.NoError(t, err)
	return h
}

func TestFineCellsFromCrseGrazing(t *testing.T) {
	h := tenLevel(t)
	p := &particle.Particle{ID: 1, Pos: geom.Vec{0.25, 0.56}}

	fc := &FineCells{}
	FineCellsFromCrse(h, p, 0, iv2(5, 5), geom.IntVect{}, fc)
	assert.Equal(t, []geom.IntVect{iv2(10, 11)}, fc.Cells)
	assert.Equal(t, []int{0}, fc.Grids)
	assert.Equal(t, []float64{1}, fc.Fracs)
}

func TestAssignGrazing(t *testing.T) {
	h := tenLevel(t)
	p := located(t, h, geom.Vec{0.25000000000000005551, 0.5})
	require.Equal(t, 0, p.Lev)

	m := Assign(amr.NewRegions(h), []particle.Particle{*p}, 1, 1)
	assert.Equal(t, 0.0, m.Lost)
	assert.Greater(t, m.LevelTotal(1, 0), 0.0)
	assert.InDelta(t, 1, m.Total(0), 1e-15)
}
