/*package geom contains the index-space and physical-space primitives that the
rest of amrpart is built on: integer cell vectors, cell-aligned boxes, sets of
disjoint boxes, and per-level geometry.

Everything in this package is sized for at most MaxDim spatial dimensions.
Simulations with fewer dimensions leave the trailing components of every
vector at zero (and the trailing components of every box at [0, 0]).
*/
package geom

import (
	"fmt"
	"strings"
)

const (
	// MaxDim is the largest supported spatial dimension.
	MaxDim = 3
	// MaxCorners is the number of corners in a CIC stencil at MaxDim.
	MaxCorners = 1 << MaxDim
)

// IntVect is a cell index.
type IntVect [MaxDim]int

// Vec is a physical position.
type Vec [MaxDim]float64

// Unit returns a vector with the first dim components set to n and the rest
// set to zero.
func Unit(dim, n int) IntVect {
	iv := IntVect{}
	for i := 0; i < dim; i++ {
		iv[i] = n
	}
	return iv
}

func (iv IntVect) Add(u IntVect) IntVect {
	for i := range iv {
		iv[i] += u[i]
	}
	return iv
}

func (iv IntVect) Sub(u IntVect) IntVect {
	for i := range iv {
		iv[i] -= u[i]
	}
	return iv
}

// Mul multiplies iv component-wise by u.
func (iv IntVect) Mul(u IntVect) IntVect {
	for i := range iv {
		iv[i] *= u[i]
	}
	return iv
}

// Coarsen divides iv component-wise by ratio, rounding towards negative
// infinity.
func (iv IntVect) Coarsen(ratio IntVect) IntVect {
	for i := range iv {
		iv[i] = floorDiv(iv[i], ratio[i])
	}
	return iv
}

// Max returns the component-wise maximum of iv and n over the first dim
// components.
func (iv IntVect) Max(dim, n int) IntVect {
	for i := 0; i < dim; i++ {
		if iv[i] < n {
			iv[i] = n
		}
	}
	return iv
}

// IsZero returns true if every component of iv is zero.
func (iv IntVect) IsZero() bool { return iv == IntVect{} }

// Format writes the first dim components as "(i,j,k)".
func (iv IntVect) Format(dim int) string {
	sb := &strings.Builder{}
	sb.WriteByte('(')
	for i := 0; i < dim; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(sb, "%d", iv[i])
	}
	sb.WriteByte(')')
	return sb.String()
}

func (iv IntVect) String() string { return iv.Format(MaxDim) }

// floorDiv computes floor(x / y) for y > 0.
func floorDiv(x, y int) int {
	q := x / y
	if (x%y != 0) && (x < 0) {
		q--
	}
	return q
}
