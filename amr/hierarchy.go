/*package amr describes a block-structured adaptive mesh refinement hierarchy:
the per-level geometry, the disjoint grid blocks that cover each level, and
the refinement ratios between levels. It also holds the grid lookups that
every other package uses to answer "which block owns this cell?".

amr does not build or regrid hierarchies. Levels is a plain container meant
to be filled in by whatever does.
*/
package amr

import (
	"fmt"

	"github.com/phil-mansfield/amrpart/geom"
)

// Hierarchy is the read-only view of an AMR hierarchy consumed by the
// locator, the interpolator and the deposition code. Implementations must not
// change while any of those are running.
type Hierarchy interface {
	// Geom returns the geometry of level lev.
	Geom(lev int) *geom.Geometry
	// BoxArray returns the disjoint grid blocks of level lev.
	BoxArray(lev int) *geom.BoxArray
	// RefRatio returns the refinement ratio between lev and lev+1.
	RefRatio(lev int) geom.IntVect
	// FinestLevel returns the index of the finest level.
	FinestLevel() int
}

var _ Hierarchy = &Levels{}

// Levels is a concrete Hierarchy.
type Levels struct {
	geoms  []*geom.Geometry
	grids  []*geom.BoxArray
	ratios []geom.IntVect
}

// New creates a Hierarchy from the level-0 geometry, the ratios between
// adjacent levels and the grid blocks of each level. len(grids) must be
// len(ratios) + 1.
//
// New checks that the blocks of every level are disjoint, lie inside their
// level's domain, and (for levels above 0) are aligned to the refinement ratio
// and covered by the blocks of the next coarser level.
func New(
	base *geom.Geometry, ratios []geom.IntVect, grids [][]geom.Box,
) (*Levels, error) {
	if base == nil {
		return nil, fmt.Errorf("No base geometry was given.")
	} else if base.Dim < 1 || base.Dim > geom.MaxDim {
		return nil, fmt.Errorf(
			"Dimension must be in range [1, %d], but is %d.",
			geom.MaxDim, base.Dim,
		)
	} else if len(grids) != len(ratios)+1 {
		return nil, fmt.Errorf(
			"%d levels of grids were given, but %d refinement ratios. "+
				"Expected %d ratios.", len(grids), len(ratios), len(grids)-1,
		)
	}

	h := &Levels{
		geoms:  make([]*geom.Geometry, len(grids)),
		grids:  make([]*geom.BoxArray, len(grids)),
		ratios: make([]geom.IntVect, len(ratios)),
	}

	h.geoms[0] = base
	for lev := range ratios {
		r := ratios[lev]
		for i := 0; i < geom.MaxDim; i++ {
			if i >= base.Dim {
				r[i] = 1
			} else if r[i] < 1 {
				return nil, fmt.Errorf(
					"Refinement ratio between levels %d and %d is %v, but "+
						"all components must be positive.",
					lev, lev+1, ratios[lev].Format(base.Dim),
				)
			}
		}
		h.ratios[lev] = r
		h.geoms[lev+1] = h.geoms[lev].Refine(r)
	}

	for lev := range grids {
		if len(grids[lev]) == 0 {
			return nil, fmt.Errorf("Level %d has no grid blocks.", lev)
		}
		domain := h.geoms[lev].Domain
		for i, b := range grids[lev] {
			if b.Dim != base.Dim || !b.Ok() {
				return nil, fmt.Errorf(
					"Grid block %d on level %d, %v, is empty or has the "+
						"wrong dimension.", i, lev, b,
				)
			} else if !domain.ContainsBox(b) {
				return nil, fmt.Errorf(
					"Grid block %d on level %d, %v, lies outside the "+
						"domain %v.", i, lev, b, domain,
				)
			}
		}

		h.grids[lev] = geom.NewBoxArray(base.Dim, grids[lev])
		if i, j, ok := h.grids[lev].Disjoint(); !ok {
			return nil, fmt.Errorf(
				"Grid blocks %d and %d on level %d overlap.", i, j, lev,
			)
		}

		if lev == 0 {
			continue
		}
		for i, b := range grids[lev] {
			if b.Coarsen(h.ratios[lev-1]).Refine(h.ratios[lev-1]) != b {
				return nil, fmt.Errorf(
					"Grid block %d on level %d, %v, is not aligned to the "+
						"refinement ratio %v.", i, lev, b,
					h.ratios[lev-1].Format(base.Dim),
				)
			} else if !h.grids[lev-1].ContainsBox(b.Coarsen(h.ratios[lev-1])) {
				return nil, fmt.Errorf(
					"Grid block %d on level %d, %v, is not covered by "+
						"level %d.", i, lev, b, lev-1,
				)
			}
		}
	}

	return h, nil
}

func (h *Levels) Geom(lev int) *geom.Geometry {
	checkLevel(h, lev)
	return h.geoms[lev]
}

func (h *Levels) BoxArray(lev int) *geom.BoxArray {
	checkLevel(h, lev)
	return h.grids[lev]
}

func (h *Levels) RefRatio(lev int) geom.IntVect {
	if lev < 0 || lev >= len(h.ratios) {
		Preconditionf("No refinement ratio above level %d (finest is %d).",
			lev, h.FinestLevel())
	}
	return h.ratios[lev]
}

func (h *Levels) FinestLevel() int { return len(h.geoms) - 1 }

// Dim returns the spatial dimension of h.
func Dim(h Hierarchy) int { return h.Geom(0).Dim }

// CheckHierarchy panics if h is nil.
func CheckHierarchy(h Hierarchy) {
	if h == nil {
		Preconditionf("No hierarchy was given.")
	}
}

// checkLevel panics if lev is not a level of h.
func checkLevel(h Hierarchy, lev int) {
	if lev < 0 || lev > h.FinestLevel() {
		Preconditionf("Level %d is outside the range [0, %d].",
			lev, h.FinestLevel())
	}
}
