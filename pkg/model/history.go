package model

import "time"

const (
	OutcomeCheckedOut = "checked_out"
	OutcomeExpired    = "expired"
)

// HistoryRecord is an archived booking. Records are written once and never
// read back into the allocator.
type HistoryRecord struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	Reference     string    `json:"reference" bson:"reference"`
	VehicleNumber string    `json:"vehicle_number" bson:"vehicle_number"`
	Slot          string    `json:"slot" bson:"slot"`
	Kind          string    `json:"kind" bson:"kind"`
	StartTime     time.Time `json:"start_time" bson:"start_time"`
	EndTime       time.Time `json:"end_time" bson:"end_time"`
	Outcome       string    `json:"outcome" bson:"outcome"`
	ClosedAt      time.Time `json:"closed_at" bson:"closed_at"`
}
