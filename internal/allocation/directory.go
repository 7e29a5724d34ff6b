package allocation

import (
	"fmt"
	"sort"
)

type Kind string

const (
	KindPreBooking Kind = "prebooking"
	KindCheckIn    Kind = "checkin"
)

func (k Kind) Valid() bool {
	return k == KindPreBooking || k == KindCheckIn
}

// Booking ties one occupant to one slot over one interval.
type Booking struct {
	Occupant string
	SlotID   string
	Interval Interval
	Kind     Kind
}

// Directory indexes active bookings by occupant. It also serves as the
// occupant -> slot index used when releasing.
type Directory struct {
	bookings map[string]Booking
}

func NewDirectory() *Directory {
	return &Directory{bookings: make(map[string]Booking)}
}

func (d *Directory) HasActive(occupant string) bool {
	_, ok := d.bookings[occupant]
	return ok
}

func (d *Directory) Get(occupant string) (Booking, bool) {
	b, ok := d.bookings[occupant]
	return b, ok
}

// Put records a new booking. The caller must have checked HasActive first; a duplicate
// here means the engine lost track of an occupant and panics.
func (d *Directory) Put(b Booking) {
	if _, exists := d.bookings[b.Occupant]; exists {
		panic(fmt.Sprintf("allocation: duplicate booking for %q", b.Occupant))
	}
	d.bookings[b.Occupant] = b
}

func (d *Directory) Remove(occupant string) (Booking, bool) {
	b, ok := d.bookings[occupant]
	if ok {
		delete(d.bookings, occupant)
	}
	return b, ok
}

func (d *Directory) setKind(occupant string, kind Kind) Booking {
	b, ok := d.bookings[occupant]
	if !ok {
		panic(fmt.Sprintf("allocation: changing kind of missing booking %q", occupant))
	}
	b.Kind = kind
	d.bookings[occupant] = b
	return b
}

func (d *Directory) Len() int {
	return len(d.bookings)
}

// All returns the active bookings ordered by occupant.
func (d *Directory) All() []Booking {
	out := make([]Booking, 0, len(d.bookings))
	for _, b := range d.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Occupant < out[j].Occupant
	})
	return out
}
