package density

import (
	"github.com/phil-mansfield/amrpart/amr"
	"github.com/phil-mansfield/amrpart/geom"
	"github.com/phil-mansfield/amrpart/particle"
)

// Sample returns the CIC-weighted average of comp over the cells of st.
func Sample(f Field, st *Stencil, comp int) float64 {
	sum := 0.0
	for k := 0; k < st.N; k++ {
		sum += st.Fracs[k] * f.Value(st.Cells[k], comp)
	}
	return sum
}

// Interp samples each component listed in comps at the position of p on p's
// own level and appends the results to out. f must cover the stencil, which
// for a block-sized field means one ghost cell around p's block.
func Interp(
	h amr.Hierarchy, p *particle.Particle, f Field, comps []int, out []float64,
) []float64 {
	amr.CheckHierarchy(h)
	checkParticle(h, p)

	st := StencilAt(h.Geom(p.Lev), p.Pos)
	for _, c := range comps {
		if c < 0 {
			amr.Preconditionf("Component index %d is negative.", c)
		}
		out = append(out, Sample(f, &st, c))
	}
	return out
}

// Gravity interpolates the first Dim components of f, taken as the
// components of an acceleration, to p.
func Gravity(h amr.Hierarchy, p *particle.Particle, f Field) geom.Vec {
	amr.CheckHierarchy(h)
	checkParticle(h, p)

	g := h.Geom(p.Lev)
	st := StencilAt(g, p.Pos)
	acc := geom.Vec{}
	for d := 0; d < g.Dim; d++ {
		acc[d] = Sample(f, &st, d)
	}
	return acc
}

func checkParticle(h amr.Hierarchy, p *particle.Particle) {
	if p == nil {
		amr.Preconditionf("No particle was given.")
	} else if !p.Valid() {
		amr.Preconditionf("Particle %s has been invalidated.", p.Format(amr.Dim(h)))
	} else if p.Lev < 0 || p.Lev > h.FinestLevel() {
		amr.Preconditionf("Particle %s is on level %d, outside [0, %d].",
			p.Format(amr.Dim(h)), p.Lev, h.FinestLevel())
	}
}
