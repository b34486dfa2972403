package amr

import (
	"github.com/phil-mansfield/amrpart/geom"
)

// Regions caches the composite-level index sets that the coarse/fine crossing
// tests need. It must be rebuilt whenever the hierarchy is regridded and is
// safe for concurrent reads.
type Regions struct {
	h        Hierarchy
	crseFine []*geom.BoxArray
	halo     []*geom.BoxArray
}

// NewRegions computes, for every level lev:
//
//   - the blocks of level lev+1 coarsened into lev's index space (absent on
//     the finest level).
//   - the halo of lev: every cell within one cell of a part of the domain that
//     lev does not cover, including periodic images of those cells (absent on
//     level 0).
//
// A cell of lev outside the halo has all of its neighbors on lev itself, so a
// CIC stencil centered there can never reach a coarser level.
func NewRegions(h Hierarchy) *Regions {
	CheckHierarchy(h)
	n := h.FinestLevel() + 1
	r := &Regions{
		h:        h,
		crseFine: make([]*geom.BoxArray, n),
		halo:     make([]*geom.BoxArray, n),
	}

	for lev := 0; lev < n; lev++ {
		if lev < n-1 {
			r.crseFine[lev] = h.BoxArray(lev + 1).Coarsen(h.RefRatio(lev))
		}
		if lev > 0 {
			r.halo[lev] = haloOf(h.Geom(lev), h.BoxArray(lev))
		}
	}
	return r
}

func haloOf(g *geom.Geometry, ba *geom.BoxArray) *geom.BoxArray {
	var shifts []geom.IntVect
	boxes := []geom.Box{}
	for _, piece := range ba.Complement(g.Domain) {
		grown := piece.Grow(1)
		boxes = append(boxes, grown)

		shifts = g.PeriodicShifts(g.Domain, grown, shifts[:0])
		for _, s := range shifts {
			boxes = append(boxes, grown.Shift(s))
		}
	}
	return geom.NewBoxArray(g.Dim, boxes)
}

// Hierarchy returns the hierarchy r was built from.
func (r *Regions) Hierarchy() Hierarchy { return r.h }

// CoarsenedFine returns the blocks of level lev+1 in lev's index space.
func (r *Regions) CoarsenedFine(lev int) *geom.BoxArray {
	if lev < 0 || lev >= r.h.FinestLevel() {
		Preconditionf("Level %d has no finer level (finest is %d).",
			lev, r.h.FinestLevel())
	}
	return r.crseFine[lev]
}

// Halo returns the halo of level lev > 0.
func (r *Regions) Halo(lev int) *geom.BoxArray {
	if lev < 1 || lev > r.h.FinestLevel() {
		Preconditionf("Level %d has no halo (finest is %d).",
			lev, r.h.FinestLevel())
	}
	return r.halo[lev]
}
