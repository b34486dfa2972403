package density

import (
	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/amrpart/amr"
	"github.com/phil-mansfield/amrpart/geom"
	"github.com/phil-mansfield/amrpart/particle"
)

// Assign deposits mass for every valid particle of ps onto a new single
// component Mesh over the hierarchy of r, using workers goroutines.
//
// Each particle's CIC weights go to its own level, except that corners
// covered by the next finer level are split among the fine cells under the
// particle's footprint, and the corners of a fine particle's coarse stencil
// which leave the fine level go to the coarse level. Weight pushed through a
// non-periodic face of the domain is added to Mesh.Lost, so Total(0) + Lost
// equals mass times the number of valid particles.
//
// A PreconditionError or ConsistencyError raised by a worker is re-raised on
// the calling goroutine once every worker has stopped.
func Assign(r *amr.Regions, ps []particle.Particle, mass float64, workers int) *Mesh {
	if r == nil {
		amr.Preconditionf("No regions were given.")
	}
	h := r.Hierarchy()
	if workers < 1 {
		workers = 1
	}

	meshes := make([]*Mesh, workers)
	g := &errgroup.Group{}
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() (err error) {
			defer amr.Recover(&err)
			d := newDepositor(r, NewMesh(h, 1, 0))
			d.depositRange(ps, mass, w, len(ps), workers)
			meshes[w] = d.mesh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}

	for w := 1; w < workers; w++ {
		meshes[0].Add(meshes[w])
	}
	return meshes[0]
}

type depositor struct {
	r      *amr.Regions
	h      amr.Hierarchy
	mesh   *Mesh
	fine   FineCells
	shifts []geom.IntVect
}

func newDepositor(r *amr.Regions, mesh *Mesh) *depositor {
	return &depositor{r: r, h: r.Hierarchy(), mesh: mesh}
}

func (d *depositor) depositRange(
	ps []particle.Particle, mass float64, low, high, jump int,
) {
	for i := low; i < high; i += jump {
		if ps[i].Valid() {
			d.deposit(&ps[i], mass)
		}
	}
}

func (d *depositor) deposit(p *particle.Particle, mass float64) {
	lev := p.Lev

	if lev > 0 {
		if fc, ok := FineToCrse(d.r, p); ok {
			for k := 0; k < fc.N; k++ {
				w := mass * fc.Fracs[k]
				if w == 0 {
					continue
				} else if fc.Outside[k] {
					d.mesh.Lost += w
				} else if fc.Which[k] {
					d.mesh.At(lev-1, fc.Grid[k]).Add(fc.Cells[k], 0, w)
				} else {
					d.toFine(p, lev-1, fc.Cells[k], geom.IntVect{}, w)
				}
			}
			return
		}
	}

	st := StencilAt(d.h.Geom(lev), p.Pos)
	cf, crossed := CrseFine{}, false
	if lev < d.h.FinestLevel() {
		cf, crossed = CrseToFine(d.r.CoarsenedFine(lev), d.h.Geom(lev), &st)
	}

	for k := 0; k < st.N; k++ {
		w := mass * st.Fracs[k]
		if w == 0 {
			continue
		} else if crossed && cf.Which[k] {
			d.toFine(p, lev, st.Cells[k], cf.Shifts[k], w)
		} else {
			d.toLevel(lev, st.Cells[k], w)
		}
	}
}

// toLevel adds w to cell on lev, wrapping it into the domain if needed.
func (d *depositor) toLevel(lev int, cell geom.IntVect, w float64) {
	g := d.h.Geom(lev)
	if !g.Domain.Contains(cell) {
		d.shifts = g.PeriodicShifts(g.Domain, geom.CellBox(g.Dim, cell), d.shifts[:0])
		if len(d.shifts) == 0 {
			d.mesh.Lost += w
			return
		} else if len(d.shifts) > 1 {
			amr.Inconsistentf("Cell %v has %d periodic images.",
				cell.Format(g.Dim), len(d.shifts))
		}
		cell = cell.Add(d.shifts[0])
	}

	grid, n := d.h.BoxArray(lev).Owners(cell)
	switch {
	case n == 0:
		d.mesh.Lost += w
	case n > 1:
		amr.Inconsistentf("Cell %v is owned by %d grid blocks on level %d.",
			cell.Format(g.Dim), n, lev)
	default:
		d.mesh.At(lev, grid).Add(cell, 0, w)
	}
}

// toFine splits w from coarse cell ccell on lev over the cells of lev+1.
func (d *depositor) toFine(
	p *particle.Particle, lev int, ccell, cshift geom.IntVect, w float64,
) {
	FineCellsFromCrse(d.h, p, lev, ccell, cshift, &d.fine)
	for i := 0; i < d.fine.Len(); i++ {
		d.mesh.At(lev+1, d.fine.Grids[i]).Add(d.fine.Cells[i], 0, w*d.fine.Fracs[i])
	}
}
