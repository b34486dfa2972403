package particle

import (
	"go.uber.org/zap"

	"github.com/phil-mansfield/amrpart/amr"
)

// Locator keeps the (Lev, Grid, Cell) fields of particles in sync with their
// positions. A Locator holds no mutable state, so one Locator can be shared by
// any number of goroutines as long as each particle is only touched by one of
// them at a time.
type Locator struct {
	h   amr.Hierarchy
	log *zap.Logger
}

// NewLocator returns a Locator over h. Diagnostics about invalidated
// particles go to log; a nil log discards them.
func NewLocator(h amr.Hierarchy, log *zap.Logger) *Locator {
	amr.CheckHierarchy(h)
	if log == nil {
		log = zap.NewNop()
	}
	return &Locator{h: h, log: log}
}

// Hierarchy returns the hierarchy l locates particles in.
func (l *Locator) Hierarchy() amr.Hierarchy { return l.h }

// Locate finds the finest level at or above minLev with a grid block
// containing p and stores the result in p. It returns false, leaving p
// untouched, if no level does.
func (l *Locator) Locate(p *Particle, minLev int) bool {
	finest := l.h.FinestLevel()
	if minLev < 0 || minLev > finest {
		amr.Preconditionf("Minimum level %d is outside the range [0, %d].",
			minLev, finest)
	}

	// Finer levels are nested inside coarser ones, so the first hit wins.
	for lev := finest; lev >= minLev; lev-- {
		iv := l.h.Geom(lev).CellIndex(p.Pos)
		if grid, ok := amr.FindOwningGrid(l.h, lev, iv); ok {
			p.Lev, p.Grid, p.Cell = lev, grid, iv
			return true
		}
	}
	return false
}

// LocateIncremental is Locate for a live particle whose position has only
// changed a little since it was last located. If the particle has not left its
// cell, or it is on the finest level and has not left its grid block, no
// search is done.
func (l *Locator) LocateIncremental(p *Particle) bool {
	l.checkLocated(p)

	iv := l.h.Geom(p.Lev).CellIndex(p.Pos)
	if iv == p.Cell {
		return true
	}

	if p.Lev == l.h.FinestLevel() &&
		l.h.BoxArray(p.Lev).Get(p.Grid).Contains(iv) {
		p.Cell = iv
		return true
	}

	return l.Locate(p, 0)
}

// LocateRestricted recomputes p's cell on its current level and accepts it
// only if it lies within p's current grid block grown by ngrow cells. No
// other block is searched. The accepted cell may sit in the grown margin,
// outside the block itself.
func (l *Locator) LocateRestricted(p *Particle, ngrow int) bool {
	l.checkLocated(p)

	iv := l.h.Geom(p.Lev).CellIndex(p.Pos)
	if l.h.BoxArray(p.Lev).Get(p.Grid).Grow(ngrow).Contains(iv) {
		p.Cell = iv
		return true
	}
	return false
}

// LocatePeriodic wraps a copy of p across any periodic boundaries it has
// crossed and tries to locate the copy on a level at or above minLev. Only on
// success are p's position and location overwritten. If the wrap does not
// move p, it returns false without searching.
func (l *Locator) LocatePeriodic(p *Particle, minLev int) bool {
	q := *p
	PeriodicShift(l.h, &q)
	if q.Pos == p.Pos {
		return false
	}

	if !l.Locate(&q, minLev) {
		return false
	}
	p.Pos, p.Lev, p.Grid, p.Cell = q.Pos, q.Lev, q.Grid, q.Cell
	return true
}

// Reconcile brings p's location up to date after a move. If p can't be
// found, it is wrapped across periodic boundaries and searched for again. If
// it still can't be found, it has left the domain: its ID is negated and a
// single warning is logged. Already-invalid particles are ignored.
//
// update selects LocateIncremental for the first attempt instead of Locate.
// Reconcile returns true if p is still valid.
func (l *Locator) Reconcile(p *Particle, update bool) bool {
	if !p.Valid() {
		return false
	}

	var found bool
	if update {
		found = l.LocateIncremental(p)
	} else {
		found = l.Locate(p, 0)
	}
	if found {
		return true
	}

	PeriodicShift(l.h, p)
	if l.Locate(p, 0) {
		return true
	}

	l.log.Warn("Invalidating out-of-domain particle",
		zap.String("particle", p.Format(amr.Dim(l.h))),
		zap.Int("id", p.ID),
	)
	p.ID = -p.ID
	return false
}

// checkLocated panics if p is not a live particle with a usable location.
func (l *Locator) checkLocated(p *Particle) {
	if !p.Valid() {
		amr.Preconditionf("Particle %d has been invalidated.", p.ID)
	} else if p.Lev < 0 || p.Lev > l.h.FinestLevel() {
		amr.Preconditionf("Particle %d is on level %d, outside [0, %d].",
			p.ID, p.Lev, l.h.FinestLevel())
	} else if p.Grid < 0 || p.Grid >= l.h.BoxArray(p.Lev).Len() {
		amr.Preconditionf("Particle %d is in grid %d, but level %d has "+
			"%d grids.", p.ID, p.Grid, p.Lev, l.h.BoxArray(p.Lev).Len())
	}
}
