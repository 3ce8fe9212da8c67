package radar

import (
	"sync"

	"github.com/FC2Observ/observ/internal/queue"
	geom "github.com/peterstace/simplefeatures/geom"
)

// DefaultTrailLength bounds the trail of each slot when none is configured.
const DefaultTrailLength = 30

type slotState struct {
	split int
	trail *queue.Queue[Point]
}

// Pool holds the split membership and trailing positions of every slot.
// One mutex guards all slots so compare-and-clear is atomic.
type Pool struct {
	mu    sync.Mutex
	slots [MaxSlots]slotState
}

func NewPool(trailLength int) *Pool {
	if trailLength <= 0 {
		trailLength = DefaultTrailLength
	}
	p := &Pool{}
	for i := range p.slots {
		p.slots[i] = slotState{
			split: Ground,
			trail: queue.NewBounded[Point](trailLength),
		}
	}
	return p
}

func validSlot(slot int) bool {
	return slot >= 0 && slot < MaxSlots
}

// Observe records split for slot, clearing the trail when it differs from the
// stored split. It reports whether the trail was cleared.
func (p *Pool) Observe(slot, split int) bool {
	if !validSlot(slot) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.slots[slot]
	cleared := false
	if s.split != split {
		s.trail.Clear()
		cleared = true
	}
	s.split = split
	return cleared
}

// Split returns the stored split of slot, Ground for invalid slots.
func (p *Pool) Split(slot int) int {
	if !validSlot(slot) {
		return Ground
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[slot].split
}

func (p *Pool) Append(slot int, pt Point) {
	if !validSlot(slot) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots[slot].trail.Push(pt)
}

// Trail returns a copy of the slot's trail, oldest first.
func (p *Pool) Trail(slot int) []Point {
	if !validSlot(slot) {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[slot].trail.Items()
}

// Reset returns every slot to Ground with an empty trail.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		p.slots[i].split = Ground
		p.slots[i].trail.Clear()
	}
}

// TrailLine returns the slot's trail as a LineString in radar percentage space.
// ok is false when fewer than two points are stored.
func (p *Pool) TrailLine(slot int) (geom.LineString, bool) {
	trail := p.Trail(slot)
	if len(trail) < 2 {
		return geom.LineString{}, false
	}

	coords := make([]float64, 0, len(trail)*2)
	for _, pt := range trail {
		coords = append(coords, pt.X, pt.Y)
	}
	return geom.NewLineString(geom.NewSequence(coords, geom.DimXY)), true
}
