/*package density moves quantities between particles and the grid blocks of
an AMR hierarchy with cloud-in-cell (CIC) weights.

Interpolation reads a field at a particle's position on the particle's own
level. Deposition spreads particle mass onto the hierarchy, redistributing the
share of any stencil corner which falls on a different level so that the
total mass is conserved across coarse/fine boundaries.
*/
package density

import (
	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/amrpart/amr"
	"github.com/phil-mansfield/amrpart/geom"
)

// Field is a cell-centered, multi-component quantity which can be sampled at
// individual cells.
type Field interface {
	Value(cell geom.IntVect, comp int) float64
}

// FieldFunc adapts a plain function to the Field interface.
type FieldFunc func(cell geom.IntVect, comp int) float64

func (f FieldFunc) Value(cell geom.IntVect, comp int) float64 {
	return f(cell, comp)
}

// FArray stores ncomp values for every cell of Box. Values are laid out
// x-fastest with the component index varying slowest.
type FArray struct {
	Box   geom.Box
	NComp int
	Data  []float64
}

var _ Field = &FArray{}

// NewFArray allocates a zeroed FArray over b.
func NewFArray(b geom.Box, ncomp int) *FArray {
	if ncomp < 1 {
		amr.Preconditionf("FArray needs at least one component, got %d.", ncomp)
	}
	return &FArray{Box: b, NComp: ncomp, Data: make([]float64, b.Volume()*ncomp)}
}

func (a *FArray) index(cell geom.IntVect, comp int) int {
	if !a.Box.Contains(cell) {
		amr.Preconditionf("Cell %v is outside the FArray box %v.",
			cell.Format(a.Box.Dim), a.Box)
	} else if comp < 0 || comp >= a.NComp {
		amr.Preconditionf("Component %d is outside the range [0, %d).",
			comp, a.NComp)
	}
	return comp*a.Box.Volume() + a.Box.Index(cell)
}

func (a *FArray) Value(cell geom.IntVect, comp int) float64 {
	return a.Data[a.index(cell, comp)]
}

// Add adds x to the value of comp at cell.
func (a *FArray) Add(cell geom.IntVect, comp int, x float64) {
	a.Data[a.index(cell, comp)] += x
}

// Set overwrites the value of comp at cell.
func (a *FArray) Set(cell geom.IntVect, comp int, x float64) {
	a.Data[a.index(cell, comp)] = x
}

// Comp returns the values of a single component.
func (a *FArray) Comp(comp int) []float64 {
	n := a.Box.Volume()
	return a.Data[comp*n : (comp+1)*n]
}

// Mesh holds one FArray per grid block per level of a hierarchy. Lost
// accumulates deposited mass that left the domain through a non-periodic
// face.
type Mesh struct {
	Levels [][]*FArray
	Lost   float64
}

// NewMesh allocates a zeroed Mesh over every block of h, with each block grown
// by ngrow ghost cells.
func NewMesh(h amr.Hierarchy, ncomp, ngrow int) *Mesh {
	amr.CheckHierarchy(h)
	m := &Mesh{Levels: make([][]*FArray, h.FinestLevel()+1)}
	for lev := range m.Levels {
		ba := h.BoxArray(lev)
		m.Levels[lev] = make([]*FArray, ba.Len())
		for i := range m.Levels[lev] {
			m.Levels[lev][i] = NewFArray(ba.Get(i).Grow(ngrow), ncomp)
		}
	}
	return m
}

// At returns the FArray of grid block grid on level lev.
func (m *Mesh) At(lev, grid int) *FArray {
	if lev < 0 || lev >= len(m.Levels) {
		amr.Preconditionf("Level %d is outside the range [0, %d].",
			lev, len(m.Levels)-1)
	} else if grid < 0 || grid >= len(m.Levels[lev]) {
		amr.Preconditionf("Grid block %d is outside the range [0, %d) "+
			"on level %d.", grid, len(m.Levels[lev]), lev)
	}
	return m.Levels[lev][grid]
}

// Add adds every value of other into m. Both must have been allocated over
// the same hierarchy with the same layout.
func (m *Mesh) Add(other *Mesh) {
	if len(m.Levels) != len(other.Levels) {
		amr.Preconditionf("Cannot add a %d-level Mesh to a %d-level Mesh.",
			len(other.Levels), len(m.Levels))
	}
	for lev := range m.Levels {
		for i, a := range m.Levels[lev] {
			b := other.Levels[lev][i]
			if len(a.Data) != len(b.Data) {
				amr.Preconditionf("Mesh layouts differ at block %d of "+
					"level %d.", i, lev)
			}
			floats.Add(a.Data, b.Data)
		}
	}
	m.Lost += other.Lost
}

// LevelTotal returns the sum of comp over every block of level lev,
// ghost cells included.
func (m *Mesh) LevelTotal(lev, comp int) float64 {
	sum := 0.0
	for i := range m.Levels[lev] {
		sum += floats.Sum(m.At(lev, i).Comp(comp))
	}
	return sum
}

// Total returns the sum of comp over every level. Together with Lost it
// accounts for everything deposited into m.
func (m *Mesh) Total(comp int) float64 {
	sum := 0.0
	for lev := range m.Levels {
		sum += m.LevelTotal(lev, comp)
	}
	return sum
}
