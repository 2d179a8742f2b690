// Package inventory owns seats_available. Every change to the counter goes
// through this package, inside a per-flight exclusive section and a store
// transaction that holds the flight row lock.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/Domenick1991/skyinventory/internal/logger"
	"github.com/Domenick1991/skyinventory/internal/metrics"
	"github.com/Domenick1991/skyinventory/internal/repository"
)

var (
	ErrNothingToRelease = errors.New("no booked seat to release")
	ErrSeatNotHeld      = fmt.Errorf("%w: seat label is not held by a ticket", domain.ErrNotFound)
)

// SeatToken describes a seat taken by Reserve.
type SeatToken struct {
	FlightID  string
	SeatLabel string
	Remaining int
}

// Drift is the result of comparing the seat counter with issued tickets.
type Drift struct {
	FlightID  string
	Total     int
	Available int
	Tickets   int
	Repaired  bool
}

// Expected is the seats_available value implied by the ticket count.
func (d Drift) Expected() int {
	return d.Total - d.Tickets
}

func (d Drift) Detected() bool {
	return d.Available != d.Expected()
}

type Inventory struct {
	store  repository.Store
	locker Locker
	log    *slog.Logger
}

type Option func(*Inventory)

func WithLocker(l Locker) Option {
	return func(i *Inventory) {
		i.locker = l
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(i *Inventory) {
		i.log = l
	}
}

func New(store repository.Store, opts ...Option) *Inventory {
	inv := &Inventory{
		store:  store,
		locker: NewLocalLocker(),
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Exclusive runs fn inside the flight's exclusive section and one store
// transaction. Callers compose Reserve/Release/Resize with their own writes
// in fn; an error from fn rolls all of it back.
func (i *Inventory) Exclusive(ctx context.Context, flightID string, fn func(ctx context.Context, tx repository.Store) error) error {
	start := time.Now()
	unlock, err := i.locker.Lock(ctx, flightID)
	if err != nil {
		return err
	}
	defer unlock()
	metrics.ObserveLockWait(time.Since(start))

	return i.store.WithinTx(ctx, fn)
}

// Reserve takes one seat on the flight, optionally binding seatLabel. The
// label check and the decrement run under the flight row lock held by tx.
func (i *Inventory) Reserve(ctx context.Context, tx repository.Store, flightID, seatLabel string) (SeatToken, error) {
	flight, err := tx.Flights().GetForUpdate(ctx, flightID)
	if err != nil {
		return SeatToken{}, fmt.Errorf("lock flight %s: %w", flightID, err)
	}
	if flight.SeatsAvailable <= 0 {
		return SeatToken{}, domain.ErrSoldOut
	}

	if seatLabel != "" {
		taken, err := tx.Tickets().SeatTaken(ctx, flightID, seatLabel)
		if err != nil {
			return SeatToken{}, fmt.Errorf("check seat %s: %w", seatLabel, err)
		}
		if taken {
			return SeatToken{}, domain.ErrSeatTaken
		}
	}

	remaining, ok, err := tx.Flights().DecrementAvailable(ctx, flightID)
	if err != nil {
		return SeatToken{}, fmt.Errorf("decrement seats: %w", err)
	}
	if !ok {
		return SeatToken{}, domain.ErrSoldOut
	}

	return SeatToken{FlightID: flightID, SeatLabel: seatLabel, Remaining: remaining}, nil
}

// Release gives one seat back: it deletes the ticket holding seatLabel and
// increments seats_available under the same row lock, so booked plus
// available stays equal to seats_total. A label no ticket holds fails with
// ErrSeatNotHeld and changes nothing.
func (i *Inventory) Release(ctx context.Context, tx repository.Store, flightID, seatLabel string) error {
	if seatLabel == "" {
		return domain.InvalidInput("seat_label is required to release a seat")
	}
	if _, err := tx.Flights().GetForUpdate(ctx, flightID); err != nil {
		return fmt.Errorf("lock flight %s: %w", flightID, err)
	}

	removed, err := tx.Tickets().DeleteBySeat(ctx, flightID, seatLabel)
	if err != nil {
		return fmt.Errorf("delete ticket for seat %s: %w", seatLabel, err)
	}
	if removed == 0 {
		return ErrSeatNotHeld
	}

	_, ok, err := tx.Flights().IncrementAvailable(ctx, flightID)
	if err != nil {
		return fmt.Errorf("increment seats: %w", err)
	}
	if !ok {
		return ErrNothingToRelease
	}
	i.log.Info("seat released", "flight_id", flightID, "seat_label", seatLabel)
	return nil
}

// Resize changes seats_total and shifts seats_available by the same delta,
// so seats held by tickets stay held. Shrinking below the booked count fails
// with domain.ErrCapacityBelowBooked.
func (i *Inventory) Resize(ctx context.Context, tx repository.Store, flightID string, total int) (*domain.Flight, error) {
	if total <= 0 {
		return nil, domain.InvalidInput("seats_total must be positive")
	}

	current, err := tx.Flights().GetForUpdate(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("lock flight %s: %w", flightID, err)
	}
	if current.SeatsTotal == total {
		return current, nil
	}

	updated, ok, err := tx.Flights().Resize(ctx, flightID, total)
	if err != nil {
		return nil, fmt.Errorf("resize flight %s: %w", flightID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d booked, requested %d", domain.ErrCapacityBelowBooked, current.Booked(), total)
	}
	return updated, nil
}

// Reconcile compares seats_available with seats_total minus issued tickets.
// With repair it rewrites the counter to the ticket-derived value.
func (i *Inventory) Reconcile(ctx context.Context, flightID string, repair bool) (Drift, error) {
	var drift Drift
	err := i.Exclusive(ctx, flightID, func(ctx context.Context, tx repository.Store) error {
		flight, err := tx.Flights().GetForUpdate(ctx, flightID)
		if err != nil {
			return fmt.Errorf("lock flight %s: %w", flightID, err)
		}
		tickets, err := tx.Tickets().CountByFlight(ctx, flightID)
		if err != nil {
			return fmt.Errorf("count tickets: %w", err)
		}

		drift = Drift{
			FlightID:  flightID,
			Total:     flight.SeatsTotal,
			Available: flight.SeatsAvailable,
			Tickets:   tickets,
		}
		if !drift.Detected() {
			return nil
		}

		metrics.IncInventoryDrift()
		i.log.Warn("seat inventory drift",
			"flight_id", flightID,
			"seats_total", drift.Total,
			"seats_available", drift.Available,
			"tickets", drift.Tickets,
		)

		if !repair {
			return nil
		}
		expected := drift.Expected()
		if expected < 0 {
			// oversold: more tickets than seats, nothing to write back safely
			return fmt.Errorf("flight %s has %d tickets for %d seats", flightID, tickets, flight.SeatsTotal)
		}
		if err := tx.Flights().SetAvailable(ctx, flightID, expected); err != nil {
			return fmt.Errorf("repair seats_available: %w", err)
		}
		drift.Repaired = true
		return nil
	})
	return drift, err
}

// ReconcileAll runs Reconcile over every flight and returns the flights found
// drifting. A flight deleted mid-sweep is skipped; other failures are joined
// into the returned error without stopping the sweep.
func (i *Inventory) ReconcileAll(ctx context.Context, repair bool) ([]Drift, error) {
	all, err := i.store.Flights().Search(ctx, domain.FlightFilter{})
	if err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}

	var drifted []Drift
	var errs []error
	for _, f := range all {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		drift, err := i.Reconcile(ctx, f.ID, repair)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("reconcile %s: %w", f.ID, err))
			continue
		}
		if drift.Detected() {
			drifted = append(drifted, drift)
		}
	}
	return drifted, errors.Join(errs...)
}
