package amr

import (
	"github.com/phil-mansfield/amrpart/geom"
)

// LocateCell returns the index of the cell on level lev which contains pos.
// The result may lie outside the level's domain.
func LocateCell(h Hierarchy, lev int, pos geom.Vec) geom.IntVect {
	CheckHierarchy(h)
	checkLevel(h, lev)
	return h.Geom(lev).CellIndex(pos)
}

// FindOwningGrid returns the id of the grid block on level lev which contains
// cell, or false if no block does. It panics with a ConsistencyError if more
// than one block does.
func FindOwningGrid(h Hierarchy, lev int, cell geom.IntVect) (int, bool) {
	CheckHierarchy(h)
	checkLevel(h, lev)
	id, n := h.BoxArray(lev).Owners(cell)
	if n > 1 {
		Inconsistentf("Cell %v is owned by %d grid blocks on level %d.",
			cell.Format(Dim(h)), n, lev)
	}
	return id, n == 1
}

// MustOwningGrid is FindOwningGrid for cells that are known to be valid. It
// panics with a ConsistencyError if zero or several blocks of ba own cell.
func MustOwningGrid(ba *geom.BoxArray, lev int, cell geom.IntVect) int {
	id, n := ba.Owners(cell)
	if n != 1 {
		Inconsistentf("Cell %v is owned by %d grid blocks on level %d, "+
			"expected exactly 1.", cell.Format(ba.Dim()), n, lev)
	}
	return id
}
