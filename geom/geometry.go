package geom

import (
	"math"
)

// Geometry describes the index space and physical extent of one level.
type Geometry struct {
	Dim            int
	Domain         Box
	ProbLo, ProbHi Vec
	CellSize       Vec
	Periodic       [MaxDim]bool
}

// NewGeometry returns the Geometry of a domain box which spans [lo, hi] in
// physical units.
func NewGeometry(domain Box, lo, hi Vec, periodic [MaxDim]bool) *Geometry {
	g := &Geometry{
		Dim: domain.Dim, Domain: domain,
		ProbLo: lo, ProbHi: hi,
	}
	w := domain.Width()
	for i := 0; i < g.Dim; i++ {
		g.CellSize[i] = (hi[i] - lo[i]) / float64(w[i])
		g.Periodic[i] = periodic[i]
	}
	return g
}

// Refine returns the Geometry of the next finer level. The physical extent
// is unchanged.
func (g *Geometry) Refine(ratio IntVect) *Geometry {
	return NewGeometry(g.Domain.Refine(ratio), g.ProbLo, g.ProbHi, g.Periodic)
}

// ProbLength returns the physical width of the domain along dim.
func (g *Geometry) ProbLength(dim int) float64 {
	return g.ProbHi[dim] - g.ProbLo[dim]
}

// IsAnyPeriodic returns true if at least one axis is periodic.
func (g *Geometry) IsAnyPeriodic() bool {
	for i := 0; i < g.Dim; i++ {
		if g.Periodic[i] {
			return true
		}
	}
	return false
}

// CellIndex returns the index of the cell containing pos. There is no bounds
// check: positions outside the domain map to cells outside Domain.
func (g *Geometry) CellIndex(pos Vec) IntVect {
	iv := IntVect{}
	for i := 0; i < g.Dim; i++ {
		iv[i] = int(math.Floor((pos[i]-g.ProbLo[i])/g.CellSize[i])) +
			g.Domain.Lo[i]
	}
	return iv
}

// CellLo returns the physical coordinate of the low face of iv along dim.
func (g *Geometry) CellLo(iv IntVect, dim int) float64 {
	return float64(iv[dim]-g.Domain.Lo[dim])*g.CellSize[dim] + g.ProbLo[dim]
}

// PeriodicShifts appends to out every non-zero periodic translation s, with
// each component in {-L, 0, L} (L being the domain width in cells), such that
// src shifted by s intersects target. A single cell outside the domain along
// periodic axes only has exactly one such shift; target minus that shift is
// its image inside the domain.
func (g *Geometry) PeriodicShifts(target, src Box, out []IntVect) []IntVect {
	if !g.IsAnyPeriodic() {
		return out
	}

	lo, hi := IntVect{}, IntVect{}
	for i := 0; i < g.Dim; i++ {
		if g.Periodic[i] {
			lo[i], hi[i] = -1, 1
		}
	}
	w := g.Domain.Width()

	r := lo
	for {
		if !r.IsZero() {
			s := r.Mul(w)
			if src.Shift(s).Intersects(target) {
				out = append(out, s)
			}
		}
		if !nextOffset(&r, lo, hi, g.Dim) {
			break
		}
	}
	return out
}

// nextOffset steps r through the integer lattice [lo, hi].
func nextOffset(r *IntVect, lo, hi IntVect, dim int) bool {
	for i := 0; i < dim; i++ {
		if r[i] < hi[i] {
			r[i]++
			return true
		}
		r[i] = lo[i]
	}
	return false
}
