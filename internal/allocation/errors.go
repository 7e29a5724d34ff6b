package allocation

import "errors"

var (
	ErrInvalidInterval = errors.New("interval start must be before end")

	ErrEmptyOccupant = errors.New("occupant cannot be empty")

	ErrInvalidKind = errors.New("invalid booking kind")

	ErrAlreadyBooked = errors.New("occupant already has an active booking")

	ErrOutsideWindow = errors.New("check-in is outside the reserved window")

	ErrNoCapacity = errors.New("no slot can hold the requested interval")

	ErrNotFound = errors.New("no active booking for occupant")

	ErrUnknownSlot = errors.New("unknown slot")
)
