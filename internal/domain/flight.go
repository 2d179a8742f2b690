package domain

import "time"

type Flight struct {
	ID             string    `json:"id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureAt    time.Time `json:"departure_at"`
	ArrivalAt      time.Time `json:"arrival_at"`
	PriceCents     int64     `json:"price_cents"`
	SeatsTotal     int       `json:"seats_total"`
	SeatsAvailable int       `json:"seats_available"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Booked is the number of seats held by issued tickets.
func (f Flight) Booked() int {
	return f.SeatsTotal - f.SeatsAvailable
}

// FlightFilter narrows a flight search. Empty fields do not filter.
type FlightFilter struct {
	Origin      string
	Destination string
	// Date matches flights departing on that UTC calendar day.
	Date time.Time
}

// Slot is the part of a flight that takes part in schedule collision checks.
type Slot struct {
	Origin      string
	Destination string
	DepartureAt time.Time
	ArrivalAt   time.Time
}

func (f Flight) Slot() Slot {
	return Slot{
		Origin:      f.Origin,
		Destination: f.Destination,
		DepartureAt: f.DepartureAt,
		ArrivalAt:   f.ArrivalAt,
	}
}
