package allocation

import (
	"fmt"
	"strconv"
	"time"
)

const (
	DefaultPoolSize = 100
	DefaultPerRow   = 10
)

// Pool is the fixed set of slots. Iteration order is the grid order A1, A2, ... and
// never changes after construction.
type Pool struct {
	ids  []string
	sets map[string]*IntervalSet
}

func NewPool(size, perRow int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if perRow <= 0 {
		perRow = DefaultPerRow
	}

	p := &Pool{
		ids:  make([]string, 0, size),
		sets: make(map[string]*IntervalSet, size),
	}
	for i := 0; i < size; i++ {
		id := SlotName(i, perRow)
		p.ids = append(p.ids, id)
		p.sets[id] = NewIntervalSet()
	}
	return p
}

// SlotName maps a zero-based slot index to its grid label: a row label followed by the
// one-based column. Row labels run A..Z, AA, AB, ...
func SlotName(index, perRow int) string {
	return rowLabel(index/perRow) + strconv.Itoa(index%perRow+1)
}

func rowLabel(row int) string {
	label := ""
	for n := row + 1; n > 0; n = (n - 1) / 26 {
		label = string(rune('A'+(n-1)%26)) + label
	}
	return label
}

func (p *Pool) Size() int {
	return len(p.ids)
}

// IDs returns every slot id in pool order.
func (p *Pool) IDs() []string {
	out := make([]string, len(p.ids))
	copy(out, p.ids)
	return out
}

// FreeIDs returns, in pool order, the slots holding no intervals at all.
func (p *Pool) FreeIDs() []string {
	var out []string
	for _, id := range p.ids {
		if p.sets[id].Empty() {
			out = append(out, id)
		}
	}
	return out
}

func (p *Pool) Intervals(id string) (*IntervalSet, bool) {
	set, ok := p.sets[id]
	return set, ok
}

func (p *Pool) mustIntervals(id string) *IntervalSet {
	set, ok := p.sets[id]
	if !ok {
		panic(fmt.Sprintf("allocation: booking references unknown slot %q", id))
	}
	return set
}

// Status is derived from a slot's interval set and the current time.
type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
)

func (p *Pool) Status(id string, now time.Time) (Status, error) {
	set, ok := p.sets[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSlot, id)
	}
	if set.BusyAt(now) {
		return StatusOccupied, nil
	}
	return StatusAvailable, nil
}
