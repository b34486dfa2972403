package particle

import (
	"github.com/phil-mansfield/amrpart/amr"
	"github.com/phil-mansfield/amrpart/geom"
)

// faceEps is how far a particle sitting exactly on a periodic domain face is
// pushed outside before being wrapped.
const faceEps = 1e-13

// Wrap translates pos back into the domain along every periodic axis it has
// left. Physical bounds are the same on every level, so level 0 is used.
// Non-periodic axes are left alone, so the result may still lie outside the
// domain.
func Wrap(h amr.Hierarchy, pos geom.Vec) geom.Vec {
	amr.CheckHierarchy(h)
	g := h.Geom(0)
	dmn := g.Domain
	iv := g.CellIndex(pos)

	for i := 0; i < g.Dim; i++ {
		if !g.Periodic[i] {
			continue
		}

		if iv[i] > dmn.Hi[i] {
			if pos[i] == g.ProbHi[i] {
				pos[i] += faceEps
			}
			pos[i] -= g.ProbLength(i)
		} else if iv[i] < dmn.Lo[i] {
			if pos[i] == g.ProbLo[i] {
				pos[i] -= faceEps
			}
			pos[i] += g.ProbLength(i)
		}
	}

	return pos
}

// PeriodicShift wraps p's position in place. It does not touch p's location
// fields; call one of the Locator methods afterwards.
func PeriodicShift(h amr.Hierarchy, p *Particle) {
	p.Pos = Wrap(h, p.Pos)
}
