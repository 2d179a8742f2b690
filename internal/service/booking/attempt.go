package booking

import (
	"log/slog"
)

type attemptState string

const (
	stateStarted         attemptState = "started"
	stateSeatChecked     attemptState = "seat_checked"
	stateSeatReserved    attemptState = "seat_reserved"
	stateTicketPersisted attemptState = "ticket_persisted"
	stateFailed          attemptState = "failed"
)

// attempt traces one Book call through its states. Moving from
// seat_reserved back to seat_checked records a rollback.
type attempt struct {
	log   *slog.Logger
	state attemptState
}

func (s *BookingService) startAttempt(flightID string) *attempt {
	a := &attempt{
		log:   s.log.With("flight_id", flightID),
		state: stateStarted,
	}
	a.log.Debug("booking attempt", "state", stateStarted)
	return a
}

func (a *attempt) to(next attemptState, cause error) {
	from := a.state
	a.state = next

	switch {
	case next == stateFailed:
		a.log.Info("booking attempt", "from", from, "state", next, "error", cause)
	case from == stateSeatReserved && next == stateSeatChecked:
		a.log.Warn("booking rolled back", "from", from, "state", next, "error", cause)
	default:
		a.log.Debug("booking attempt", "from", from, "state", next)
	}
}
