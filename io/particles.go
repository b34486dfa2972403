package io

import (
	"bufio"
	"fmt"
	goio "io"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/amrpart/geom"
	"github.com/phil-mansfield/amrpart/particle"
)

// ReadParticles reads a whitespace-separated text table of particles. Column
// 0 is the particle id and columns 1 to dim are its position. The returned
// particles have not been located: their level and grid are -1.
func ReadParticles(fname string, dim int) ([]particle.Particle, error) {
	if dim < 1 || dim > geom.MaxDim {
		return nil, fmt.Errorf(
			"Dimension must be in range [1, %d], but is %d.", geom.MaxDim, dim,
		)
	}

	colIdxs := make([]int, dim+1)
	for i := range colIdxs {
		colIdxs[i] = i
	}
	cols, err := table.ReadTable(fname, colIdxs, nil)
	if err != nil {
		return nil, err
	}

	ids := cols[0]
	ps := make([]particle.Particle, len(ids))
	for i := range ps {
		if ids[i] < 1 || ids[i] != float64(int(ids[i])) {
			return nil, fmt.Errorf(
				"Particle %d in %s has id %g, but ids must be positive "+
					"integers.", i, fname, ids[i],
			)
		}
		ps[i].ID = int(ids[i])
		ps[i].Lev, ps[i].Grid = -1, -1
		for d := 0; d < dim; d++ {
			ps[i].Pos[d] = cols[d+1][i]
		}
	}

	return ps, nil
}

// WriteParticles writes one line per particle in the debug format
// "id cpu lev grid (i,j,k) x y z".
func WriteParticles(w goio.Writer, ps []particle.Particle, dim int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# id cpu lev grid cell pos")
	for i := range ps {
		fmt.Fprintln(bw, ps[i].Format(dim))
	}
	return bw.Flush()
}
