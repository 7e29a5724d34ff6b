package allocation

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// Interval is a half-open occupancy range [Start, End) held by one occupant.
type Interval struct {
	Start    time.Time
	End      time.Time
	Occupant string
}

func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Fit describes how a candidate interval sits between its neighbours in an IntervalSet.
// The gap fields are only meaningful when the matching Has* flag is set.
type Fit struct {
	Overlap   bool
	GapBefore time.Duration
	HasBefore bool
	GapAfter  time.Duration
	HasAfter  bool
}

// Usable returns the smaller of the two neighbour gaps, or the only one present.
// ok is false when the candidate overlaps or has no neighbours at all.
func (f Fit) Usable() (gap time.Duration, ok bool) {
	if f.Overlap {
		return 0, false
	}
	switch {
	case f.HasBefore && f.HasAfter:
		return min(f.GapBefore, f.GapAfter), true
	case f.HasBefore:
		return f.GapBefore, true
	case f.HasAfter:
		return f.GapAfter, true
	}
	return 0, false
}

// IntervalSet keeps the bookings of a single slot sorted by start time.
// Adjacent members never overlap: items[i].End <= items[i+1].Start.
type IntervalSet struct {
	items []Interval
}

func NewIntervalSet() *IntervalSet {
	return &IntervalSet{}
}

func (s *IntervalSet) Len() int {
	return len(s.items)
}

func (s *IntervalSet) Empty() bool {
	return len(s.items) == 0
}

// Intervals returns a copy of the members in start order.
func (s *IntervalSet) Intervals() []Interval {
	return slices.Clone(s.items)
}

// position returns the index of the first member whose start is not before start.
func (s *IntervalSet) position(start time.Time) int {
	return sort.Search(len(s.items), func(i int) bool {
		return !s.items[i].Start.Before(start)
	})
}

// Conflicts checks the candidate against its immediate predecessor and successor only.
// The non-overlap invariant makes those two neighbours sufficient.
func (s *IntervalSet) Conflicts(candidate Interval) Fit {
	var fit Fit
	idx := s.position(candidate.Start)

	if idx > 0 {
		prev := s.items[idx-1]
		if candidate.Start.Before(prev.End) {
			fit.Overlap = true
		} else {
			fit.GapBefore = candidate.Start.Sub(prev.End)
			fit.HasBefore = true
		}
	}

	if idx < len(s.items) {
		next := s.items[idx]
		if candidate.End.After(next.Start) {
			fit.Overlap = true
		} else {
			fit.GapAfter = next.Start.Sub(candidate.End)
			fit.HasAfter = true
		}
	}

	return fit
}

// Insert places the candidate in start order. Inserting an interval that overlaps an
// existing member breaks the set invariant and panics.
func (s *IntervalSet) Insert(candidate Interval) {
	if !candidate.Valid() {
		panic(fmt.Sprintf("allocation: inserting empty interval for %q", candidate.Occupant))
	}
	if s.Conflicts(candidate).Overlap {
		panic(fmt.Sprintf("allocation: inserting overlapping interval for %q", candidate.Occupant))
	}
	s.items = slices.Insert(s.items, s.position(candidate.Start), candidate)
}

// Remove deletes the interval owned by occupant and reports whether one was found.
func (s *IntervalSet) Remove(occupant string) (Interval, bool) {
	for i, iv := range s.items {
		if iv.Occupant == occupant {
			s.items = slices.Delete(s.items, i, i+1)
			return iv, true
		}
	}
	return Interval{}, false
}

// BusyAt reports whether some member ends after now, i.e. the slot is held
// currently or in the future. The last member has the latest end.
func (s *IntervalSet) BusyAt(now time.Time) bool {
	if len(s.items) == 0 {
		return false
	}
	return s.items[len(s.items)-1].End.After(now)
}

// Current returns the member covering now, if any.
func (s *IntervalSet) Current(now time.Time) (Interval, bool) {
	idx := sort.Search(len(s.items), func(i int) bool {
		return s.items[i].Start.After(now)
	})
	if idx == 0 {
		return Interval{}, false
	}
	iv := s.items[idx-1]
	if now.Before(iv.End) {
		return iv, true
	}
	return Interval{}, false
}
