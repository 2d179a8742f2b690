package domain

import "time"

type Ticket struct {
	ID               string    `json:"id"`
	FlightID         string    `json:"flight_id"`
	PassengerName    string    `json:"passenger_name"`
	PassengerSurname string    `json:"passenger_surname"`
	Email            string    `json:"email"`
	SeatLabel        string    `json:"seat_label,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// TicketSummary is a ticket joined with the schedule of its flight.
type TicketSummary struct {
	Ticket
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartureAt time.Time `json:"departure_at"`
	ArrivalAt   time.Time `json:"arrival_at"`
	PriceCents  int64     `json:"price_cents"`
}
