package repository

import "errors"

var (
	// ErrHistoryDisabled is returned by reads when no history store is configured.
	ErrHistoryDisabled = errors.New("booking history is disabled")
)
