package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors returned by the store and the booking services. Handlers
// translate these into user-facing responses; the core never wraps them in
// free-text messages.
var (
	// Validation failures for a candidate interval.
	ErrInvalidRange       = errors.New("end must be after start")
	ErrCrossesDayBoundary = errors.New("booking must stay within one calendar day")
	ErrOutsideWorkday     = errors.New("booking day is outside the configured workdays")
	ErrOutsideWorkHours   = errors.New("booking time is outside working hours")

	// Conflict and state failures.
	ErrTimeConflict           = errors.New("time conflict with an active booking")
	ErrRoomNotFound           = errors.New("room not found")
	ErrRoomInactive           = errors.New("room is not active")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrForbidden              = errors.New("caller may not modify this booking")
	ErrConcurrentModification = errors.New("booking was modified concurrently")

	// Storage constraint violations (unique name, foreign keys).
	ErrConstraintViolation = errors.New("constraint violation")
)

// constraintError maps sqlite constraint failures onto the sentinel so
// callers do not have to know the driver.
func constraintError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrConstraintViolation
	}
	return err
}

// IsValidationError reports whether err is one of the interval validation
// failures.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrCrossesDayBoundary) ||
		errors.Is(err, ErrOutsideWorkday) ||
		errors.Is(err, ErrOutsideWorkHours)
}
