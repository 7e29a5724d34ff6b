// Package timeparse reads the DD-MM-YY date and HHMM clock fields used by
// parking kiosks into a time.Time.
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const DateLayout = "02-01-06"

var (
	ErrInvalidTimeFormat = errors.New("time must be four digits in HHMM form")
	ErrHourOutOfRange    = errors.New("hour must be between 00 and 23")
	ErrMinuteOutOfRange  = errors.New("minute must be between 00 and 59")
	ErrInvalidDateFormat = errors.New("date must be in DD-MM-YY form")
)

// Clock splits an HHMM string into hour and minute.
func Clock(hhmm string) (hour, minute int, err error) {
	if len(hhmm) != 4 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	for _, c := range hhmm {
		if c < '0' || c > '9' {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
		}
	}
	hour, _ = strconv.Atoi(hhmm[:2])
	minute, _ = strconv.Atoi(hhmm[2:])
	if hour > 23 {
		return 0, 0, fmt.Errorf("%w: %02d", ErrHourOutOfRange, hour)
	}
	if minute > 59 {
		return 0, 0, fmt.Errorf("%w: %02d", ErrMinuteOutOfRange, minute)
	}
	return hour, minute, nil
}

func Date(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, date)
	}
	return d, nil
}

// Parse combines a DD-MM-YY date and an HHMM clock into an instant in loc.
func Parse(date, hhmm string, loc *time.Location) (time.Time, error) {
	hour, minute, err := Clock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	d, err := Date(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location()), nil
}
