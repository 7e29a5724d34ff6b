package errors

import (
	"errors"
	"smartpark/internal/allocation"
	"smartpark/internal/parking/repository"
	apperrors "smartpark/pkg/errors"
	"smartpark/pkg/timeparse"
)

// ErrInvalidVehicleNumber is returned when a vehicle number is blank after sanitizing.
var ErrInvalidVehicleNumber = errors.New("vehicle number is required")

// Subject names the vehicle and slot an error is about, for the response details.
type Subject struct {
	Vehicle string
	Slot    string
}

// ToAppError translates allocation, parsing and storage errors into AppErrors.
// Errors that already are AppErrors pass through unchanged.
func ToAppError(err error, s Subject) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}

	switch {
	case errors.Is(err, allocation.ErrInvalidInterval):
		return apperrors.InvalidInterval("Check-out time must be after check-in time")
	case errors.Is(err, allocation.ErrEmptyOccupant), errors.Is(err, ErrInvalidVehicleNumber):
		return apperrors.InvalidInput("vehicle_number is required")
	case errors.Is(err, allocation.ErrInvalidKind):
		return apperrors.InvalidInput("kind must be checkin or prebooking")
	case errors.Is(err, allocation.ErrAlreadyBooked):
		return apperrors.AlreadyBooked(s.Vehicle, s.Slot)
	case errors.Is(err, allocation.ErrOutsideWindow):
		return apperrors.OutsideWindow(s.Vehicle)
	case errors.Is(err, allocation.ErrNoCapacity):
		return apperrors.NoCapacity()
	case errors.Is(err, allocation.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", s.Vehicle)
	case errors.Is(err, allocation.ErrUnknownSlot):
		return apperrors.NotFoundWithID("Slot", s.Slot)
	case errors.Is(err, repository.ErrHistoryDisabled):
		return apperrors.Unavailable("Booking history")
	case errors.Is(err, timeparse.ErrInvalidTimeFormat),
		errors.Is(err, timeparse.ErrHourOutOfRange),
		errors.Is(err, timeparse.ErrMinuteOutOfRange),
		errors.Is(err, timeparse.ErrInvalidDateFormat):
		return apperrors.Validation(err.Error(), nil)
	}
	return apperrors.Internal("Unexpected error", err)
}
