package particle

import (
	"math"
	"sync"
)

// IDAllocator hands out strictly increasing positive particle ids. Ids are
// only unique within one process; pair them with Particle.CPU for global
// uniqueness.
type IDAllocator struct {
	mu   sync.Mutex
	next int
}

// NewIDAllocator returns an allocator whose first id is 1.
func NewIDAllocator() *IDAllocator { return &IDAllocator{next: 1} }

// Next returns a fresh id. It is safe to call from many goroutines at once.
// Next panics once the int range is exhausted.
func (a *IDAllocator) Next() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.next == math.MaxInt {
		panic("particle.IDAllocator.Next: too many particles.")
	}
	id := a.next
	a.next++
	return id
}

// Reset makes start the next id handed out. It is meant for resuming id
// numbering after a restart and must not race with Next.
func (a *IDAllocator) Reset(start int) {
	if start <= 0 {
		panic("particle.IDAllocator.Reset: ids must be positive.")
	}
	a.mu.Lock()
	a.next = start
	a.mu.Unlock()
}

var ids = NewIDAllocator()

// NextID returns a fresh id from the process-wide allocator.
func NextID() int { return ids.Next() }

// SetNextID resets the process-wide allocator. See IDAllocator.Reset.
func SetNextID(start int) { ids.Reset(start) }
