package allocation

import (
	"fmt"
	"time"
)

// DefaultThreshold is the smallest neighbour gap a best-fit placement may leave.
const DefaultThreshold = 1799 * time.Second

type Option func(*Engine)

func WithThreshold(d time.Duration) Option {
	return func(e *Engine) {
		e.threshold = d
	}
}

func WithPicker(p Picker) Option {
	return func(e *Engine) {
		if p != nil {
			e.picker = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Placement is the outcome of a successful Request.
type Placement struct {
	Booking Booking
	// BestFit is set when the slot was chosen by gap, Gap then holds the chosen gap.
	BestFit bool
	Gap     time.Duration
	// CheckedIn is set when an existing pre-booking was converted instead of placing anew.
	CheckedIn bool
}

// Engine places intervals onto slots. It is not safe for concurrent use: callers
// serialise every call, including reads, behind one lock.
type Engine struct {
	pool      *Pool
	dir       *Directory
	threshold time.Duration
	picker    Picker
	now       func() time.Time
}

func NewEngine(pool *Pool, dir *Directory, opts ...Option) *Engine {
	e := &Engine{
		pool:      pool,
		dir:       dir,
		threshold: DefaultThreshold,
		picker:    NewRandomPicker(nil),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Threshold() time.Duration {
	return e.threshold
}

func (e *Engine) Now() time.Time {
	return e.now()
}

func (e *Engine) Request(occupant string, start, end time.Time, kind Kind) (Placement, error) {
	if occupant == "" {
		return Placement{}, ErrEmptyOccupant
	}
	if !kind.Valid() {
		return Placement{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	candidate := Interval{Start: start, End: end, Occupant: occupant}
	if !candidate.Valid() {
		return Placement{}, ErrInvalidInterval
	}

	if existing, ok := e.dir.Get(occupant); ok {
		return e.resume(existing, kind)
	}

	if id, gap, ok := e.bestFit(candidate); ok {
		return Placement{Booking: e.commit(id, candidate, kind), BestFit: true, Gap: gap}, nil
	}

	free := e.pool.FreeIDs()
	if len(free) == 0 {
		return Placement{}, ErrNoCapacity
	}
	return Placement{Booking: e.commit(e.picker.Pick(free), candidate, kind)}, nil
}

// resume handles a request from an occupant that already holds a booking. Only a
// check-in inside a pre-booked window is accepted.
func (e *Engine) resume(existing Booking, kind Kind) (Placement, error) {
	if kind != KindCheckIn || existing.Kind != KindPreBooking {
		return Placement{}, ErrAlreadyBooked
	}
	now := e.now()
	if now.Before(existing.Interval.Start) || !now.Before(existing.Interval.End) {
		return Placement{}, ErrOutsideWindow
	}
	return Placement{Booking: e.dir.setKind(existing.Occupant, KindCheckIn), CheckedIn: true}, nil
}

// bestFit scans the slots that already hold bookings and returns the one whose usable
// gap is the smallest at or above the threshold. Ties keep the earlier slot.
func (e *Engine) bestFit(candidate Interval) (string, time.Duration, bool) {
	var (
		chosen string
		best   time.Duration
		found  bool
	)
	for _, id := range e.pool.ids {
		set := e.pool.sets[id]
		if set.Empty() {
			continue
		}
		gap, ok := set.Conflicts(candidate).Usable()
		if !ok || gap < e.threshold {
			continue
		}
		if !found || gap < best {
			chosen, best, found = id, gap, true
		}
	}
	return chosen, best, found
}

func (e *Engine) commit(id string, candidate Interval, kind Kind) Booking {
	b := Booking{
		Occupant: candidate.Occupant,
		SlotID:   id,
		Interval: candidate,
		Kind:     kind,
	}
	e.pool.mustIntervals(id).Insert(candidate)
	e.dir.Put(b)
	return b
}

// Release drops the occupant's booking and returns the slot it held.
func (e *Engine) Release(occupant string) (string, error) {
	b, ok := e.dir.Remove(occupant)
	if !ok {
		return "", ErrNotFound
	}
	if _, ok := e.pool.mustIntervals(b.SlotID).Remove(occupant); !ok {
		panic(fmt.Sprintf("allocation: %q booked on %s but missing from its intervals", occupant, b.SlotID))
	}
	return b.SlotID, nil
}

// SweepExpired releases every booking whose end is at or before now and returns them.
// A second call with the same now finds nothing left to release.
func (e *Engine) SweepExpired(now time.Time) []Booking {
	var expired []Booking
	for _, b := range e.dir.All() {
		if b.Interval.End.After(now) {
			continue
		}
		if _, err := e.Release(b.Occupant); err != nil {
			continue
		}
		expired = append(expired, b)
	}
	return expired
}

func (e *Engine) ResourceStatus(id string) (Status, error) {
	return e.pool.Status(id, e.now())
}

func (e *Engine) ActiveBooking(occupant string) (Booking, bool) {
	return e.dir.Get(occupant)
}

// SlotView is a read-only copy of one slot for rendering.
type SlotView struct {
	ID        string
	Status    Status
	Current   *Interval
	Intervals []Interval
}

func (e *Engine) Slot(id string) (SlotView, error) {
	set, ok := e.pool.Intervals(id)
	if !ok {
		return SlotView{}, fmt.Errorf("%w: %s", ErrUnknownSlot, id)
	}
	return e.view(id, set, e.now()), nil
}

// Snapshot copies every slot in pool order.
func (e *Engine) Snapshot() []SlotView {
	now := e.now()
	out := make([]SlotView, 0, e.pool.Size())
	for _, id := range e.pool.ids {
		out = append(out, e.view(id, e.pool.sets[id], now))
	}
	return out
}

func (e *Engine) view(id string, set *IntervalSet, now time.Time) SlotView {
	v := SlotView{
		ID:        id,
		Status:    StatusAvailable,
		Intervals: set.Intervals(),
	}
	if set.BusyAt(now) {
		v.Status = StatusOccupied
	}
	if cur, ok := set.Current(now); ok {
		v.Current = &cur
	}
	return v
}

// Bookings returns all active bookings ordered by occupant.
func (e *Engine) Bookings() []Booking {
	return e.dir.All()
}
