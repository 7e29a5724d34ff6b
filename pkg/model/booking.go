package model

import "time"

const (
	KindPreBooking = "prebooking"
	KindCheckIn    = "checkin"
)

type CheckInRequest struct {
	VehicleNumber string `json:"vehicle_number" validate:"required,plate"`
	// Hours of 0 means the configured default.
	Hours int `json:"hours" validate:"omitempty,min=1"`
}

type PreBookingRequest struct {
	VehicleNumber string `json:"vehicle_number" validate:"required,plate"`
	InDate        string `json:"in_date" validate:"required,ddmmyy"`
	InTime        string `json:"in_time" validate:"required,hhmm"`
	OutDate       string `json:"out_date" validate:"required,ddmmyy"`
	OutTime       string `json:"out_time" validate:"required,hhmm"`
}

type Booking struct {
	Reference     string    `json:"reference"`
	VehicleNumber string    `json:"vehicle_number"`
	Slot          string    `json:"slot"`
	Kind          string    `json:"kind"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	BestFit       bool      `json:"best_fit"`
	CheckedIn     bool      `json:"checked_in,omitempty"`
}

type CheckOut struct {
	VehicleNumber string    `json:"vehicle_number"`
	Slot          string    `json:"slot"`
	ReleasedAt    time.Time `json:"released_at"`
}
