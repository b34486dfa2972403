package geom

// Isect is one entry of a BoxArray intersection query: the id of the block
// that was hit and the overlapping region.
type Isect struct {
	Grid int
	Box  Box
}

// BoxArray is an immutable set of boxes on one level. The id of a box is its
// index in the array. Lookups go through a bucket hash keyed by coarsened cell
// index, so they cost O(1) in the number of boxes for single cells.
//
// A BoxArray is safe for concurrent reads.
type BoxArray struct {
	dim    int
	boxes  []Box
	bucket IntVect
	hash   map[IntVect][]int
}

// NewBoxArray builds a BoxArray over a copy of boxes. It does not check for
// disjointness; see Disjoint.
func NewBoxArray(dim int, boxes []Box) *BoxArray {
	ba := &BoxArray{
		dim:   dim,
		boxes: make([]Box, len(boxes)),
		hash:  map[IntVect][]int{},
	}
	copy(ba.boxes, boxes)

	ba.bucket = Unit(MaxDim, 1)
	for _, b := range ba.boxes {
		w := b.Width()
		for i := 0; i < dim; i++ {
			if w[i] > ba.bucket[i] {
				ba.bucket[i] = w[i]
			}
		}
	}

	for id, b := range ba.boxes {
		if !b.Ok() {
			continue
		}
		keys := b.Coarsen(ba.bucket)
		key := keys.Lo
		for ok := true; ok; ok = keys.Next(&key) {
			ba.hash[key] = append(ba.hash[key], id)
		}
	}

	return ba
}

func (ba *BoxArray) Dim() int      { return ba.dim }
func (ba *BoxArray) Len() int      { return len(ba.boxes) }
func (ba *BoxArray) Get(i int) Box { return ba.boxes[i] }
func (ba *BoxArray) Boxes() []Box  { return ba.boxes }

// Intersections appends every box overlapping bx to out and returns it.
func (ba *BoxArray) Intersections(bx Box, out []Isect) []Isect {
	if !bx.Ok() {
		return out
	}
	start := len(out)
	keys := bx.Coarsen(ba.bucket)
	key := keys.Lo
	for ok := true; ok; ok = keys.Next(&key) {
	Candidates:
		for _, id := range ba.hash[key] {
			for _, prev := range out[start:] {
				if prev.Grid == id {
					continue Candidates
				}
			}
			if isect, hit := ba.boxes[id].Intersect(bx); hit {
				out = append(out, Isect{id, isect})
			}
		}
	}
	return out
}

// Owners returns the id of a box containing iv and the total number of boxes
// which contain it. For a disjoint BoxArray n is 0 or 1.
func (ba *BoxArray) Owners(iv IntVect) (id, n int) {
	id = -1
	key := iv.Coarsen(ba.bucket)
	for i := ba.dim; i < MaxDim; i++ {
		key[i] = 0
	}
	for _, j := range ba.hash[key] {
		if ba.boxes[j].Contains(iv) {
			if n == 0 {
				id = j
			}
			n++
		}
	}
	return id, n
}

// Contains returns true if some box contains iv.
func (ba *BoxArray) Contains(iv IntVect) bool {
	_, n := ba.Owners(iv)
	return n > 0
}

// ContainsBox returns true if the union of the boxes covers bx.
func (ba *BoxArray) ContainsBox(bx Box) bool {
	if !bx.Ok() {
		return false
	}
	var buf [16]Isect
	covered := 0
	for _, isect := range ba.Intersections(bx, buf[:0]) {
		covered += isect.Box.Volume()
	}
	// Only exact for disjoint arrays.
	return covered == bx.Volume()
}

// Disjoint returns true if no two boxes overlap. Otherwise it returns the
// ids of an overlapping pair.
func (ba *BoxArray) Disjoint() (i, j int, ok bool) {
	var buf []Isect
	for i := range ba.boxes {
		buf = ba.Intersections(ba.boxes[i], buf[:0])
		for _, isect := range buf {
			if isect.Grid != i {
				return i, isect.Grid, false
			}
		}
	}
	return -1, -1, true
}

// Coarsen returns a new BoxArray with every box coarsened by ratio.
func (ba *BoxArray) Coarsen(ratio IntVect) *BoxArray {
	boxes := make([]Box, len(ba.boxes))
	for i, b := range ba.boxes {
		boxes[i] = b.Coarsen(ratio)
	}
	return NewBoxArray(ba.dim, boxes)
}

// Complement returns the disjoint pieces of domain not covered by ba.
func (ba *BoxArray) Complement(domain Box) []Box {
	pieces := []Box{domain}
	var next []Box
	for _, b := range ba.boxes {
		next = next[:0]
		for _, p := range pieces {
			next = p.Subtract(b, next)
		}
		pieces, next = next, pieces
	}
	return pieces
}
