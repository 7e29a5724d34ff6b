package allocation

import (
	"fmt"
	"math/rand/v2"
)

// Picker chooses one slot out of the fully free ones when best-fit finds nothing.
// free is never empty when Pick is called.
type Picker interface {
	Pick(free []string) string
}

const (
	StrategyRandom     = "random"
	StrategyRoundRobin = "round_robin"
)

func NewPicker(strategy string) (Picker, error) {
	switch strategy {
	case "", StrategyRandom:
		return NewRandomPicker(nil), nil
	case StrategyRoundRobin:
		return &RoundRobinPicker{}, nil
	}
	return nil, fmt.Errorf("unknown fallback strategy %q", strategy)
}

type RandomPicker struct {
	rnd *rand.Rand
}

// NewRandomPicker uses rnd when given, otherwise the global source.
func NewRandomPicker(rnd *rand.Rand) *RandomPicker {
	return &RandomPicker{rnd: rnd}
}

func (p *RandomPicker) Pick(free []string) string {
	if p.rnd == nil {
		return free[rand.IntN(len(free))]
	}
	return free[p.rnd.IntN(len(free))]
}

// RoundRobinPicker walks the free list with a rolling cursor.
type RoundRobinPicker struct {
	next int
}

func (p *RoundRobinPicker) Pick(free []string) string {
	id := free[p.next%len(free)]
	p.next++
	return id
}

type firstPicker struct{}

func (firstPicker) Pick(free []string) string {
	return free[0]
}

// FirstFree always picks the lowest free slot in pool order.
var FirstFree Picker = firstPicker{}
