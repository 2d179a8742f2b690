package kafka

import (
	"time"

	"github.com/Domenick1991/skyinventory/internal/domain"
)

const (
	EventTicketBooked  = "ticket_booked"
	EventFlightCreated = "flight_created"
	EventFlightUpdated = "flight_updated"
	EventFlightDeleted = "flight_deleted"
)

type TicketEvent struct {
	Type           string    `json:"type"`
	TicketID       string    `json:"ticket_id"`
	FlightID       string    `json:"flight_id"`
	Email          string    `json:"email"`
	SeatLabel      string    `json:"seat_label,omitempty"`
	SeatsRemaining int       `json:"seats_remaining"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// FlightEvent carries the flight after the change; Flight is nil for deletes.
type FlightEvent struct {
	Type       string         `json:"type"`
	FlightID   string         `json:"flight_id"`
	Flight     *domain.Flight `json:"flight,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func DecodeFlightEvent(data []byte) (FlightEvent, error) {
	var event FlightEvent
	err := json.Unmarshal(data, &event)
	return event, err
}
