package density

import (
	"github.com/phil-mansfield/amrpart/amr"
	"github.com/phil-mansfield/amrpart/geom"
	"github.com/phil-mansfield/amrpart/particle"
)

// CrseFine flags the corners of a coarse stencil which are covered by the
// next finer level.
type CrseFine struct {
	Which [geom.MaxCorners]bool
	// Shifts holds the periodic shift which, added to a flagged corner that
	// lies outside the domain, gives the covered cell inside it. It is zero for
	// corners inside the domain.
	Shifts [geom.MaxCorners]geom.IntVect
}

// CrseToFine reports which corners of the coarse-level stencil st are
// covered by cfba, the next finer level coarsened into this level's index
// space. g is the geometry of the coarse level. The second return value is
// false if no corner is covered.
func CrseToFine(cfba *geom.BoxArray, g *geom.Geometry, st *Stencil) (CrseFine, bool) {
	cf, hit := CrseFine{}, false
	var buf [geom.MaxCorners]geom.IntVect

	for k := 0; k < st.N; k++ {
		cell := st.Cells[k]
		if cfba.Contains(cell) {
			cf.Which[k], hit = true, true
			continue
		} else if g.Domain.Contains(cell) {
			continue
		}

		shifts := g.PeriodicShifts(g.Domain, geom.CellBox(g.Dim, cell), buf[:0])
		if len(shifts) == 0 {
			continue
		} else if len(shifts) > 1 {
			amr.Inconsistentf("Cell %v has %d periodic images.",
				cell.Format(g.Dim), len(shifts))
		}
		if cfba.Contains(cell.Add(shifts[0])) {
			cf.Which[k], cf.Shifts[k], hit = true, shifts[0], true
		}
	}

	return cf, hit
}

// FineCrse is a coarse-level stencil of a fine particle with the corners that
// fall outside the fine level flagged.
type FineCrse struct {
	Stencil
	// Which is true for corners that are not covered by the fine level.
	// Cells of flagged corners have been shifted into the domain.
	Which [geom.MaxCorners]bool
	// Outside is true for flagged corners beyond a non-periodic face of the
	// domain. They have no owner.
	Outside [geom.MaxCorners]bool
	// Grid is the coarse block owning each flagged corner and -1 otherwise.
	Grid [geom.MaxCorners]int
}

// FineToCrse checks whether the coarse-level stencil of p, a particle on a
// level above 0, reaches cells which are not covered by p's level. If so, it
// returns that stencil with the uncovered corners flagged and their owners on
// the coarse level. Uncovered corners beyond a non-periodic face are marked
// Outside instead. It panics with a ConsistencyError if any other uncovered
// corner does not have exactly one periodic image or exactly one coarse owner.
func FineToCrse(r *amr.Regions, p *particle.Particle) (FineCrse, bool) {
	if r == nil {
		amr.Preconditionf("No regions were given.")
	}
	h := r.Hierarchy()
	checkParticle(h, p)
	flev := p.Lev
	if flev < 1 {
		amr.Preconditionf("Particle %s is on level 0 and has no coarser level.",
			p.Format(amr.Dim(h)))
	}

	fba := h.BoxArray(flev)
	if p.Grid < 0 || p.Grid >= fba.Len() {
		amr.Preconditionf("Particle %s names grid block %d, but level %d "+
			"has %d blocks.", p.Format(amr.Dim(h)), p.Grid, flev, fba.Len())
	}

	// Stencils centered well inside a block never leave the level.
	inner := fba.Get(p.Grid).Grow(-1)
	if inner.Ok() && inner.Contains(p.Cell) {
		return FineCrse{}, false
	}
	if !r.Halo(flev).Contains(p.Cell) {
		return FineCrse{}, false
	}

	clev := flev - 1
	cg := h.Geom(clev)
	cba := h.BoxArray(clev)
	ratio := h.RefRatio(clev)

	fc := FineCrse{Stencil: StencilAt(cg, p.Pos)}
	hit := false
	var buf [geom.MaxCorners]geom.IntVect

	for k := 0; k < fc.N; k++ {
		fc.Grid[k] = -1
		cell := fc.Cells[k]
		if fba.Contains(cell.Mul(ratio).Max(cg.Dim, -1)) {
			continue
		}
		fc.Which[k], hit = true, true

		if !cg.Domain.Contains(cell) {
			if beyondFace(cg, cell) {
				fc.Outside[k] = true
				continue
			}
			shifts := cg.PeriodicShifts(cg.Domain, geom.CellBox(cg.Dim, cell), buf[:0])
			if len(shifts) != 1 {
				amr.Inconsistentf("Coarse cell %v of particle %s has %d "+
					"periodic images, expected exactly 1.",
					cell.Format(cg.Dim), p.Format(cg.Dim), len(shifts))
			}
			cell = cell.Add(shifts[0])
			fc.Cells[k] = cell
		}
		fc.Grid[k] = amr.MustOwningGrid(cba, clev, cell)
	}

	return fc, hit
}

// beyondFace returns true if cell is outside the domain of g along an axis
// which is not periodic.
func beyondFace(g *geom.Geometry, cell geom.IntVect) bool {
	for d := 0; d < g.Dim; d++ {
		if g.Periodic[d] {
			continue
		} else if cell[d] < g.Domain.Lo[d] || cell[d] > g.Domain.Hi[d] {
			return true
		}
	}
	return false
}

// FineCells is a reusable buffer of fine cells, their owning blocks and
// their share of a redistributed weight.
type FineCells struct {
	Cells []geom.IntVect
	Grids []int
	Fracs []float64
}

// Len returns the number of cells in fc.
func (fc *FineCells) Len() int { return len(fc.Cells) }

// Reset empties fc without releasing its storage.
func (fc *FineCells) Reset() {
	fc.Cells, fc.Grids, fc.Fracs = fc.Cells[:0], fc.Grids[:0], fc.Fracs[:0]
}

// FineCellsFromCrse splits the weight that the CIC footprint of p gives to
// coarse cell ccell on level lev between the cells of level lev+1 which
// refine it. The footprint is the cube of side one coarse cell centered on p.
// Each fine cell it overlaps receives its share of the overlap volume, and the
// shares are renormalized to sum to 1. If ccell is a periodic image, cshift is
// the shift that maps it inside the domain, as returned by CrseToFine, and
// the fine cells are reported inside the domain.
//
// The results replace the contents of out. If the footprint overlaps none of
// the fine cells, which happens when the corner's weight is at the level of
// rounding error, the whole weight goes to the fine cell of ccell nearest p.
// FineCellsFromCrse panics with a ConsistencyError if a fine cell is not
// owned by exactly one block of lev+1.
func FineCellsFromCrse(
	h amr.Hierarchy, p *particle.Particle, lev int,
	ccell, cshift geom.IntVect, out *FineCells,
) {
	amr.CheckHierarchy(h)
	if lev < 0 || lev >= h.FinestLevel() {
		amr.Preconditionf("Level %d has no finer level (finest is %d).",
			lev, h.FinestLevel())
	}
	out.Reset()

	ratio := h.RefRatio(lev)
	cg, fg := h.Geom(lev), h.Geom(lev+1)
	fba := h.BoxArray(lev + 1)
	dim := cg.Dim

	var footLo, footHi geom.Vec
	for d := 0; d < dim; d++ {
		footLo[d] = p.Pos[d] - cg.CellSize[d]/2
		footHi[d] = p.Pos[d] + cg.CellSize[d]/2
	}

	sum := 0.0
	fbx := geom.CellBox(dim, ccell).Refine(ratio)
	iv := fbx.Lo
	for ok := true; ok; ok = fbx.Next(&iv) {
		frac := 1.0
		for d := 0; d < dim && frac > 0; d++ {
			fdx := fg.CellSize[d]
			lo := fg.CellLo(iv, d)
			hi := lo + fdx
			if lo >= footHi[d] || hi <= footLo[d] {
				frac = 0
			} else if p.Pos[d] <= lo {
				frac *= minFloat(footHi[d]-lo, fdx)
			} else {
				frac *= minFloat(hi-footLo[d], fdx)
			}
		}
		if frac <= 0 {
			continue
		}

		out.Cells = append(out.Cells, iv)
		out.Fracs = append(out.Fracs, frac)
		sum += frac
	}

	if len(out.Fracs) == 0 {
		iv = fg.CellIndex(p.Pos)
		for d := 0; d < dim; d++ {
			if iv[d] < fbx.Lo[d] {
				iv[d] = fbx.Lo[d]
			} else if iv[d] > fbx.Hi[d] {
				iv[d] = fbx.Hi[d]
			}
		}
		out.Cells = append(out.Cells, iv)
		out.Fracs = append(out.Fracs, 1)
	} else {
		rest := 0.0
		last := len(out.Fracs) - 1
		for i := 0; i < last; i++ {
			out.Fracs[i] /= sum
			rest += out.Fracs[i]
		}
		out.Fracs[last] = 1 - rest
	}

	fshift := cshift.Mul(ratio)
	for i := range out.Cells {
		if !cshift.IsZero() {
			out.Cells[i] = out.Cells[i].Add(fshift)
		}
		out.Grids = append(out.Grids, amr.MustOwningGrid(fba, lev+1, out.Cells[i]))
	}
}

func minFloat(x, y float64) float64 {
	if x < y {
		return x
	}
	return y
}
