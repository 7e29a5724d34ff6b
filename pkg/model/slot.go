package model

import "time"

const (
	SlotAvailable = "available"
	SlotOccupied  = "occupied"
)

type Interval struct {
	VehicleNumber string    `json:"vehicle_number"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

type Slot struct {
	ID       string     `json:"id"`
	Status   string     `json:"status"`
	Current  *Interval  `json:"current,omitempty"`
	Upcoming []Interval `json:"upcoming,omitempty"`
}

// Grid is the whole lot at one instant, slots in pool order.
type Grid struct {
	Total     int       `json:"total"`
	Occupied  int       `json:"occupied"`
	Available int       `json:"available"`
	AsOf      time.Time `json:"as_of"`
	Slots     []Slot    `json:"slots"`
}
