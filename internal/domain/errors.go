package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("schedule conflict")
	ErrSoldOut          = errors.New("no seats left on this flight")
	ErrSeatTaken        = errors.New("seat is already taken")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrCapacityBelowBooked = fmt.Errorf("%w: seats_total below booked seats", ErrInvalidInput)
)

type ConflictReason string

const (
	DepartureCollision ConflictReason = "DEPARTURE_COLLISION"
	ArrivalCollision   ConflictReason = "ARRIVAL_COLLISION"
	TicketsOutstanding ConflictReason = "TICKETS_OUTSTANDING"
)

// ConflictError is returned when a flight mutation would break the schedule
// or orphan issued tickets. It matches ErrConflict with errors.Is.
type ConflictError struct {
	Reason  ConflictReason
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func NewConflict(reason ConflictReason) *ConflictError {
	var msg string
	switch reason {
	case DepartureCollision:
		msg = "another flight departs from the same origin at the same time"
	case ArrivalCollision:
		msg = "another flight arrives at the same destination at the same time"
	case TicketsOutstanding:
		msg = "flight has issued tickets"
	default:
		msg = string(reason)
	}
	return &ConflictError{Reason: reason, Message: msg}
}

// InvalidInput wraps ErrInvalidInput with a field level message.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
