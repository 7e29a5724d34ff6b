package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"smartpark/internal/allocation"
	"smartpark/internal/parking/repository"
	apperrors "smartpark/pkg/errors"
	"smartpark/pkg/timeparse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAppError(t *testing.T) {
	subject := Subject{Vehicle: "KA01", Slot: "C3"}

	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"invalid interval", allocation.ErrInvalidInterval, apperrors.CodeInvalidInterval, http.StatusBadRequest},
		{"empty occupant", allocation.ErrEmptyOccupant, apperrors.CodeInvalidInput, http.StatusBadRequest},
		{"blank vehicle", ErrInvalidVehicleNumber, apperrors.CodeInvalidInput, http.StatusBadRequest},
		{"invalid kind", fmt.Errorf("%w: %q", allocation.ErrInvalidKind, "valet"), apperrors.CodeInvalidInput, http.StatusBadRequest},
		{"already booked", allocation.ErrAlreadyBooked, apperrors.CodeAlreadyBooked, http.StatusConflict},
		{"outside window", allocation.ErrOutsideWindow, apperrors.CodeOutsideWindow, http.StatusUnprocessableEntity},
		{"no capacity", allocation.ErrNoCapacity, apperrors.CodeNoCapacity, http.StatusConflict},
		{"booking not found", allocation.ErrNotFound, apperrors.CodeNotFound, http.StatusNotFound},
		{"unknown slot", fmt.Errorf("%w: Z9", allocation.ErrUnknownSlot), apperrors.CodeNotFound, http.StatusNotFound},
		{"history disabled", repository.ErrHistoryDisabled, apperrors.CodeUnavailable, http.StatusServiceUnavailable},
		{"bad clock", fmt.Errorf("%w: \"9:3\"", timeparse.ErrInvalidTimeFormat), apperrors.CodeValidation, http.StatusUnprocessableEntity},
		{"bad date", timeparse.ErrInvalidDateFormat, apperrors.CodeValidation, http.StatusUnprocessableEntity},
		{"unknown", errors.New("disk on fire"), apperrors.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := apperrors.AsAppError(ToAppError(tt.err, subject))
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.StatusCode())
		})
	}
}

func TestToAppError_PassesThrough(t *testing.T) {
	assert.NoError(t, ToAppError(nil, Subject{}))

	original := apperrors.Conflict("taken")
	assert.Same(t, original, ToAppError(original, Subject{}))
}

func TestToAppError_Details(t *testing.T) {
	appErr := apperrors.AsAppError(ToAppError(allocation.ErrAlreadyBooked, Subject{Vehicle: "KA01", Slot: "C3"}))
	require.NotNil(t, appErr.Details)
	assert.Equal(t, "C3", appErr.Details["slot"])
}

func TestToAppError_CoversEveryEngineError(t *testing.T) {
	sentinels := []error{
		allocation.ErrInvalidInterval,
		allocation.ErrEmptyOccupant,
		allocation.ErrInvalidKind,
		allocation.ErrAlreadyBooked,
		allocation.ErrOutsideWindow,
		allocation.ErrNoCapacity,
		allocation.ErrNotFound,
		allocation.ErrUnknownSlot,
	}
	for _, sentinel := range sentinels {
		appErr := apperrors.AsAppError(ToAppError(sentinel, Subject{}))
		assert.NotEqual(t, apperrors.CodeInternal, appErr.Code, "%v has no mapping", sentinel)
	}
}
