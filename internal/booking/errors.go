package booking

import (
	"errors"
	"fmt"
	"strings"

	"besedka/internal/availability"
	"besedka/internal/pricing"
)

var (
	ErrPastDate               = errors.New("date is in the past")
	ErrDurationTooShort       = pricing.ErrDurationTooShort
	ErrInvalidTimeFormat      = errors.New("invalid time format")
	ErrSlotConflict           = errors.New("slot conflict")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrReconciliationMismatch = errors.New("no pending reservation to confirm")
	ErrStaleAction            = errors.New("action does not match conversation state")
	ErrEndNotAfterStart       = errors.New("end time is not after start time")
	ErrEmptyInput             = errors.New("empty input")
	ErrSessionExpired         = errors.New("session expired")
)

// ConflictError lists the busy intervals that blocked a candidate.
type ConflictError struct {
	Phase string // advisory or authoritative
	Busy  []availability.BusySlot
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Busy))
	for _, b := range e.Busy {
		parts = append(parts, b.String())
	}
	return fmt.Sprintf("%s check: slot conflict with %s", e.Phase, strings.Join(parts, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrSlotConflict }

// StoreError records which store operation failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

// Is makes a StoreError match ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *StoreError) Unwrap() error { return e.Err }

// Recoverable reports whether err leaves the conversation in place.
func Recoverable(err error) bool {
	return errors.Is(err, ErrPastDate) ||
		errors.Is(err, ErrDurationTooShort) ||
		errors.Is(err, ErrInvalidTimeFormat) ||
		errors.Is(err, ErrEndNotAfterStart) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrStaleAction)
}
