/*package particle tracks where particles live in an AMR hierarchy. It assigns
particle ids, maps positions to (level, grid, cell) triples, keeps those
triples current as positions change, and wraps or invalidates particles that
leave the domain.
*/
package particle

import (
	"strconv"
	"strings"

	"github.com/phil-mansfield/amrpart/geom"
)

// Particle is the location state of one particle. A positive ID means the
// particle is active; a negative ID means it has been invalidated and should
// be removed by whatever owns the particle storage.
//
// For an active particle, Cell lies inside grid block Grid of level Lev, and
// that block is the only one on Lev which contains Cell.
type Particle struct {
	ID   int
	CPU  int
	Lev  int
	Grid int
	Cell geom.IntVect
	Pos  geom.Vec
}

// Valid returns true if p has not been invalidated.
func (p *Particle) Valid() bool { return p.ID > 0 }

// Format returns the one-line debug form of p, using the first dim components
// of the cell and position:
//
//	id cpu lev grid (i,j,k) x y z
func (p *Particle) Format(dim int) string {
	sb := &strings.Builder{}
	sb.WriteString(strconv.Itoa(p.ID))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.CPU))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.Lev))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.Grid))
	sb.WriteByte(' ')
	sb.WriteString(p.Cell.Format(dim))
	for i := 0; i < dim; i++ {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(p.Pos[i], 'g', -1, 64))
	}
	return sb.String()
}

func (p *Particle) String() string { return p.Format(geom.MaxDim) }
