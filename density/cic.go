package density

import (
	"math"

	"github.com/phil-mansfield/amrpart/geom"
)

// Stencil is the cloud-in-cell footprint of a single point: the 2^dim cells
// whose centers bracket it and the weight given to each.
//
// Corner k takes the upper cell along axis d if and only if bit d of k is
// set, so Cells[0] is the lowest corner and Cells[N-1] the highest.
type Stencil struct {
	N     int
	Cells [geom.MaxCorners]geom.IntVect
	Fracs [geom.MaxCorners]float64
}

// CellsAndFractions computes the stencil of pos on a grid with origin lo and
// spacing dx, with cell indices counted from zero at lo. Positions outside
// the grid produce cells outside it (and negative ones below lo).
func CellsAndFractions(dim int, pos, lo, dx geom.Vec) Stencil {
	st := Stencil{N: 1 << uint(dim)}

	var base geom.IntVect
	var frac geom.Vec
	for d := 0; d < dim; d++ {
		l := (pos[d]-lo[d])/dx[d] + 0.5
		c := math.Floor(l)
		frac[d] = l - c
		base[d] = int(c) - 1
	}

	for k := 0; k < st.N; k++ {
		iv, w := base, 1.0
		for d := 0; d < dim; d++ {
			if k>>uint(d)&1 == 1 {
				iv[d]++
				w *= frac[d]
			} else {
				w *= 1 - frac[d]
			}
		}
		st.Cells[k], st.Fracs[k] = iv, w
	}

	return st
}

// StencilAt is CellsAndFractions on the level described by g, with cells in
// that level's index space.
func StencilAt(g *geom.Geometry, pos geom.Vec) Stencil {
	st := CellsAndFractions(g.Dim, pos, g.ProbLo, g.CellSize)
	for k := 0; k < st.N; k++ {
		for d := 0; d < g.Dim; d++ {
			st.Cells[k][d] += g.Domain.Lo[d]
		}
	}
	return st
}
