package geom

import (
	"fmt"
)

// Box is a rectangular region of index space. Both corners are inclusive.
type Box struct {
	Dim    int
	Lo, Hi IntVect
}

// NewBox returns a Box with the given corners. Components past dim are zeroed.
func NewBox(dim int, lo, hi IntVect) Box {
	b := Box{Dim: dim}
	for i := 0; i < dim; i++ {
		b.Lo[i], b.Hi[i] = lo[i], hi[i]
	}
	return b
}

// CellBox returns the Box containing only iv.
func CellBox(dim int, iv IntVect) Box { return NewBox(dim, iv, iv) }

// Ok returns true if the box is non-empty.
func (b Box) Ok() bool {
	if b.Dim <= 0 || b.Dim > MaxDim {
		return false
	}
	for i := 0; i < b.Dim; i++ {
		if b.Hi[i] < b.Lo[i] {
			return false
		}
	}
	return true
}

// Width returns the number of cells along each axis.
func (b Box) Width() IntVect {
	w := IntVect{}
	for i := 0; i < b.Dim; i++ {
		w[i] = b.Hi[i] - b.Lo[i] + 1
	}
	return w
}

// Volume returns the number of cells in b.
func (b Box) Volume() int {
	if !b.Ok() {
		return 0
	}
	n, w := 1, b.Width()
	for i := 0; i < b.Dim; i++ {
		n *= w[i]
	}
	return n
}

// Contains returns true if iv lies inside b.
func (b Box) Contains(iv IntVect) bool {
	for i := 0; i < b.Dim; i++ {
		if iv[i] < b.Lo[i] || iv[i] > b.Hi[i] {
			return false
		}
	}
	return true
}

// ContainsBox returns true if every cell of c lies inside b.
func (b Box) ContainsBox(c Box) bool {
	return c.Ok() && b.Contains(c.Lo) && b.Contains(c.Hi)
}

// Intersects returns true if the two boxes overlap.
func (b Box) Intersects(c Box) bool {
	_, ok := b.Intersect(c)
	return ok
}

// Intersect returns the overlap of two boxes and true, or false if they are
// disjoint.
func (b Box) Intersect(c Box) (Box, bool) {
	out := Box{Dim: b.Dim}
	for i := 0; i < b.Dim; i++ {
		out.Lo[i] = maxInt(b.Lo[i], c.Lo[i])
		out.Hi[i] = minInt(b.Hi[i], c.Hi[i])
		if out.Hi[i] < out.Lo[i] {
			return Box{}, false
		}
	}
	return out, true
}

// Grow returns b extended by n cells on every face. Negative n shrinks it.
func (b Box) Grow(n int) Box {
	for i := 0; i < b.Dim; i++ {
		b.Lo[i] -= n
		b.Hi[i] += n
	}
	return b
}

// Shift returns b translated by s.
func (b Box) Shift(s IntVect) Box {
	for i := 0; i < b.Dim; i++ {
		b.Lo[i] += s[i]
		b.Hi[i] += s[i]
	}
	return b
}

// Refine returns the box covering the same region at a resolution ratio
// times finer.
func (b Box) Refine(ratio IntVect) Box {
	for i := 0; i < b.Dim; i++ {
		b.Lo[i] *= ratio[i]
		b.Hi[i] = (b.Hi[i]+1)*ratio[i] - 1
	}
	return b
}

// Coarsen returns the smallest box at a resolution ratio times coarser which
// covers b.
func (b Box) Coarsen(ratio IntVect) Box {
	for i := 0; i < b.Dim; i++ {
		b.Lo[i] = floorDiv(b.Lo[i], ratio[i])
		b.Hi[i] = floorDiv(b.Hi[i], ratio[i])
	}
	return b
}

// Next advances iv through b in x-fastest order. It returns false once iv has
// passed the last cell.
func (b Box) Next(iv *IntVect) bool {
	for i := 0; i < b.Dim; i++ {
		if iv[i] < b.Hi[i] {
			iv[i]++
			return true
		}
		iv[i] = b.Lo[i]
	}
	return false
}

// Index returns the x-fastest offset of iv into a flat array over b.
func (b Box) Index(iv IntVect) int {
	idx, stride, w := 0, 1, b.Width()
	for i := 0; i < b.Dim; i++ {
		idx += (iv[i] - b.Lo[i]) * stride
		stride *= w[i]
	}
	return idx
}

// Subtract returns the pieces of b not covered by c, appended to out. The
// pieces are disjoint.
func (b Box) Subtract(c Box, out []Box) []Box {
	isect, ok := b.Intersect(c)
	if !ok {
		return append(out, b)
	}

	rem := b
	for i := 0; i < b.Dim; i++ {
		if rem.Lo[i] < isect.Lo[i] {
			lo := rem
			lo.Hi[i] = isect.Lo[i] - 1
			out = append(out, lo)
			rem.Lo[i] = isect.Lo[i]
		}
		if rem.Hi[i] > isect.Hi[i] {
			hi := rem
			hi.Lo[i] = isect.Hi[i] + 1
			out = append(out, hi)
			rem.Hi[i] = isect.Hi[i]
		}
	}
	return out
}

func (b Box) String() string {
	return fmt.Sprintf("[%s %s]", b.Lo.Format(b.Dim), b.Hi.Format(b.Dim))
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}

func maxInt(x, y int) int {
	if x > y {
		return x
	}
	return y
}
