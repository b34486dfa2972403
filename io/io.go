/*package io reads hierarchy configuration files and particle tables, and reads
and writes deposited meshes.

The binary format used for meshes is as follows:
    |-- 1 --||-- 2 --||-- 3 --||-- ... 4 ... --||-- ... 5 ... --| ...

    1 - (int32) Flag indicating the endianness of the file. 0 indicates a
        little endian byte ordering and -1 indicates a big endian byte order.
    2 - (int32) Size of a BlockHeader struct. Checked for consistency.
    3 - (int64) Number of blocks in the file.
    4 - (BlockHeader) Header describing the first block.
    5 - ([]float64) The block's values, x-fastest, component slowest.

Blocks 4 and 5 repeat once per block, coarse levels first.
*/
package io

import (
	"encoding/binary"
	"fmt"
	goio "io"

	"github.com/phil-mansfield/amrpart/density"
	"github.com/phil-mansfield/amrpart/geom"
)

const (
	// Endianness used by default when writing meshes. Meshes of either
	// endianness can be read.
	DefaultEndiannessFlag int32 = 0

	// MaxMeshBlocks and MaxBlockValues bound what ReadMesh will allocate
	// for a single file and a single block.
	MaxMeshBlocks  = 1 << 20
	MaxBlockValues = 1 << 30
)

// BlockHeader describes one grid block of a mesh file.
type BlockHeader struct {
	Dim, Lev, Grid, NComp int64
	Lo, Hi                [geom.MaxDim]int64
	// Lost is the mass that left the domain. It is the same for every
	// block of a file.
	Lost float64
}

// Box returns the index box covered by the block.
func (hd *BlockHeader) Box() geom.Box {
	lo, hi := geom.IntVect{}, geom.IntVect{}
	for i := 0; i < geom.MaxDim; i++ {
		lo[i], hi[i] = int(hd.Lo[i]), int(hd.Hi[i])
	}
	return geom.NewBox(int(hd.Dim), lo, hi)
}

// Block is one grid block read back from a mesh file.
type Block struct {
	Header BlockHeader
	Data   *density.FArray
}

// endianness is a utility function converting an endianness flag to a
// byte order.
func endianness(flag int32) (binary.ByteOrder, error) {
	switch flag {
	case 0:
		return binary.LittleEndian, nil
	case -1:
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("Unrecognized endianness flag, %d.", flag)
}

// WriteMesh writes every block of m to w.
func WriteMesh(w goio.Writer, m *density.Mesh) error {
	order, err := endianness(DefaultEndiannessFlag)
	if err != nil {
		return err
	}

	n := int64(0)
	for lev := range m.Levels {
		n += int64(len(m.Levels[lev]))
	}

	if err := binary.Write(w, order, DefaultEndiannessFlag); err != nil {
		return err
	}
	if err := binary.Write(w, order, int32(binary.Size(BlockHeader{}))); err != nil {
		return err
	}
	if err := binary.Write(w, order, n); err != nil {
		return err
	}

	for lev := range m.Levels {
		for grid, a := range m.Levels[lev] {
			hd := BlockHeader{
				Dim: int64(a.Box.Dim), Lev: int64(lev), Grid: int64(grid),
				NComp: int64(a.NComp), Lost: m.Lost,
			}
			for i := 0; i < geom.MaxDim; i++ {
				hd.Lo[i], hd.Hi[i] = int64(a.Box.Lo[i]), int64(a.Box.Hi[i])
			}

			if err := binary.Write(w, order, &hd); err != nil {
				return err
			}
			if err := binary.Write(w, order, a.Data); err != nil {
				return err
			}
		}
	}

	return nil
}

// ReadMesh reads every block written by WriteMesh.
func ReadMesh(r goio.Reader) ([]Block, error) {
	var flag int32
	// Order doesn't matter for this read, since flags are symmetric.
	if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
		return nil, err
	}
	order, err := endianness(flag)
	if err != nil {
		return nil, err
	}

	var headerSize int32
	if err := binary.Read(r, order, &headerSize); err != nil {
		return nil, err
	} else if int(headerSize) != binary.Size(BlockHeader{}) {
		return nil, fmt.Errorf("Expected BlockHeader size of %d, found %d.",
			binary.Size(BlockHeader{}), headerSize)
	}

	var n int64
	if err := binary.Read(r, order, &n); err != nil {
		return nil, err
	} else if n < 0 || n > MaxMeshBlocks {
		return nil, fmt.Errorf(
			"Mesh file claims to hold %d blocks, but the limit is %d.",
			n, MaxMeshBlocks,
		)
	}

	blocks := []Block{}
	for i := int64(0); i < n; i++ {
		hd := BlockHeader{}
		if err := binary.Read(r, order, &hd); err != nil {
			return nil, err
		}
		b := hd.Box()
		if hd.Dim < 1 || hd.Dim > geom.MaxDim || !b.Ok() || hd.NComp < 1 {
			return nil, fmt.Errorf("Block %d has an invalid header.", i)
		} else if !blockFits(&hd) {
			return nil, fmt.Errorf(
				"Block %d holds more than %d values.", i, MaxBlockValues,
			)
		}

		a := density.NewFArray(b, int(hd.NComp))
		if err := binary.Read(r, order, a.Data); err != nil {
			return nil, err
		}
		blocks = append(blocks, Block{hd, a})
	}

	return blocks, nil
}

// blockFits returns true if the block described by hd has at most
// MaxBlockValues values.
func blockFits(hd *BlockHeader) bool {
	n := hd.NComp
	if n > MaxBlockValues {
		return false
	}
	for i := int64(0); i < hd.Dim; i++ {
		w := hd.Hi[i] - hd.Lo[i] + 1
		if w < 1 || w > MaxBlockValues {
			return false
		}
		n *= w
		if n > MaxBlockValues {
			return false
		}
	}
	return true
}
