// Package memory is an in-process implementation of repository.Store.
//
// It enforces the same uniqueness and foreign-key rules as the Postgres
// schema. Transactions are rolled back by restoring a snapshot.
//
// Every transaction serializes on one store-wide mutex, so bookings on
// different flights contend with each other. Use it for tests and local
// runs only; production deployments use the postgres driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/Domenick1991/skyinventory/internal/repository"
)

type state struct {
	flights map[string]domain.Flight
	tickets []domain.Ticket
}

func (s *state) clone() *state {
	c := &state{
		flights: make(map[string]domain.Flight, len(s.flights)),
		tickets: make([]domain.Ticket, len(s.tickets)),
	}
	for id, f := range s.flights {
		c.flights[id] = f
	}
	copy(c.tickets, s.tickets)
	return c
}

type Store struct {
	mu   *sync.Mutex
	st   **state
	inTx bool
	now  func() time.Time
}

func NewStore() *Store {
	st := &state{flights: make(map[string]domain.Flight)}
	return &Store{mu: &sync.Mutex{}, st: &st, now: time.Now}
}

func (s *Store) Flights() repository.FlightRepository {
	return &flightRepo{s: s}
}

func (s *Store) Tickets() repository.TicketRepository {
	return &ticketRepo{s: s}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.st).clone()
	if err := fn(ctx, &Store{mu: s.mu, st: s.st, inTx: true, now: s.now}); err != nil {
		*s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		*s.st = snapshot
		return fmt.Errorf("%w: commit: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// enter locks the store unless the caller already runs inside WithinTx.
func (s *Store) enter(ctx context.Context) (*state, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if s.inTx {
		return *s.st, func() {}, nil
	}
	s.mu.Lock()
	return *s.st, s.mu.Unlock, nil
}

type flightRepo struct {
	s *Store
}

func (r *flightRepo) Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	var day time.Time
	if !filter.Date.IsZero() {
		day = filter.Date.UTC().Truncate(24 * time.Hour)
	}

	flights := make([]domain.Flight, 0)
	for _, f := range st.flights {
		if filter.Origin != "" && f.Origin != filter.Origin {
			continue
		}
		if filter.Destination != "" && f.Destination != filter.Destination {
			continue
		}
		if !day.IsZero() && (f.DepartureAt.Before(day) || !f.DepartureAt.Before(day.Add(24*time.Hour))) {
			continue
		}
		flights = append(flights, f)
	}
	sort.Slice(flights, func(i, j int) bool {
		if flights[i].DepartureAt.Equal(flights[j].DepartureAt) {
			return flights[i].ID < flights[j].ID
		}
		return flights[i].DepartureAt.Before(flights[j].DepartureAt)
	})
	return flights, nil
}

func (r *flightRepo) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	f, ok := st.flights[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

// GetForUpdate is GetByID: the store mutex already excludes other writers.
func (r *flightRepo) GetForUpdate(ctx context.Context, id string) (*domain.Flight, error) {
	return r.GetByID(ctx, id)
}

func (r *flightRepo) FindBySlot(ctx context.Context, slot domain.Slot) ([]domain.Flight, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	flights := make([]domain.Flight, 0)
	for _, f := range st.flights {
		if (f.Origin == slot.Origin && f.DepartureAt.Equal(slot.DepartureAt)) ||
			(f.Destination == slot.Destination && f.ArrivalAt.Equal(slot.ArrivalAt)) {
			flights = append(flights, f)
		}
	}
	return flights, nil
}

func uniqueSlot(st *state, f domain.Flight) error {
	for _, other := range st.flights {
		if other.ID == f.ID {
			continue
		}
		if other.Origin == f.Origin && other.DepartureAt.Equal(f.DepartureAt) {
			return domain.NewConflict(domain.DepartureCollision)
		}
		if other.Destination == f.Destination && other.ArrivalAt.Equal(f.ArrivalAt) {
			return domain.NewConflict(domain.ArrivalCollision)
		}
	}
	return nil
}

func (r *flightRepo) Create(ctx context.Context, f *domain.Flight) error {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, exists := st.flights[f.ID]; exists {
		return fmt.Errorf("flight %s already exists", f.ID)
	}
	if err := uniqueSlot(st, *f); err != nil {
		return err
	}
	now := r.s.now()
	f.CreatedAt, f.UpdatedAt = now, now
	st.flights[f.ID] = *f
	return nil
}

func (r *flightRepo) UpdateSchedule(ctx context.Context, f *domain.Flight) error {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return err
	}
	defer done()

	cur, ok := st.flights[f.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := uniqueSlot(st, *f); err != nil {
		return err
	}
	cur.Origin = f.Origin
	cur.Destination = f.Destination
	cur.DepartureAt = f.DepartureAt
	cur.ArrivalAt = f.ArrivalAt
	cur.PriceCents = f.PriceCents
	cur.UpdatedAt = r.s.now()
	st.flights[f.ID] = cur
	f.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *flightRepo) Delete(ctx context.Context, id string) error {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, ok := st.flights[id]; !ok {
		return domain.ErrNotFound
	}
	for _, t := range st.tickets {
		if t.FlightID == id {
			return domain.NewConflict(domain.TicketsOutstanding)
		}
	}
	delete(st.flights, id)
	return nil
}

func (r *flightRepo) DecrementAvailable(ctx context.Context, id string) (int, bool, error) {
	return r.shift(ctx, id, -1)
}

func (r *flightRepo) IncrementAvailable(ctx context.Context, id string) (int, bool, error) {
	return r.shift(ctx, id, 1)
}

func (r *flightRepo) shift(ctx context.Context, id string, delta int) (int, bool, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return 0, false, err
	}
	defer done()

	f, ok := st.flights[id]
	if !ok {
		return 0, false, nil
	}
	next := f.SeatsAvailable + delta
	if next < 0 || next > f.SeatsTotal {
		return f.SeatsAvailable, false, nil
	}
	f.SeatsAvailable = next
	f.UpdatedAt = r.s.now()
	st.flights[id] = f
	return next, true, nil
}

func (r *flightRepo) Resize(ctx context.Context, id string, total int) (*domain.Flight, bool, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return nil, false, err
	}
	defer done()

	f, ok := st.flights[id]
	if !ok {
		return nil, false, nil
	}
	available := f.SeatsAvailable + (total - f.SeatsTotal)
	if available < 0 {
		return nil, false, nil
	}
	f.SeatsTotal = total
	f.SeatsAvailable = available
	f.UpdatedAt = r.s.now()
	st.flights[id] = f
	return &f, true, nil
}

func (r *flightRepo) SetAvailable(ctx context.Context, id string, available int) error {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return err
	}
	defer done()

	f, ok := st.flights[id]
	if !ok {
		return domain.ErrNotFound
	}
	if available < 0 || available > f.SeatsTotal {
		return fmt.Errorf("seats_available %d out of range [0,%d]", available, f.SeatsTotal)
	}
	f.SeatsAvailable = available
	f.UpdatedAt = r.s.now()
	st.flights[id] = f
	return nil
}

type ticketRepo struct {
	s *Store
}

func (r *ticketRepo) Create(ctx context.Context, t *domain.Ticket) error {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, ok := st.flights[t.FlightID]; !ok {
		return domain.ErrNotFound
	}
	for _, other := range st.tickets {
		if other.ID == t.ID {
			return fmt.Errorf("ticket %s already exists", t.ID)
		}
		if t.SeatLabel != "" && other.FlightID == t.FlightID && other.SeatLabel == t.SeatLabel {
			return domain.ErrSeatTaken
		}
	}
	t.CreatedAt = r.s.now()
	st.tickets = append(st.tickets, *t)
	return nil
}

func (r *ticketRepo) SeatTaken(ctx context.Context, flightID, seatLabel string) (bool, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return false, err
	}
	defer done()

	for _, t := range st.tickets {
		if t.FlightID == flightID && t.SeatLabel == seatLabel {
			return true, nil
		}
	}
	return false, nil
}

func (r *ticketRepo) CountByFlight(ctx context.Context, flightID string) (int, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	n := 0
	for _, t := range st.tickets {
		if t.FlightID == flightID {
			n++
		}
	}
	return n, nil
}

func (r *ticketRepo) ListByEmail(ctx context.Context, email string) ([]domain.TicketSummary, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	tickets := make([]domain.TicketSummary, 0)
	for _, t := range st.tickets {
		if t.Email != email {
			continue
		}
		f := st.flights[t.FlightID]
		tickets = append(tickets, domain.TicketSummary{
			Ticket:      t,
			Origin:      f.Origin,
			Destination: f.Destination,
			DepartureAt: f.DepartureAt,
			ArrivalAt:   f.ArrivalAt,
			PriceCents:  f.PriceCents,
		})
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].DepartureAt.Before(tickets[j].DepartureAt)
	})
	return tickets, nil
}

func (r *ticketRepo) DeleteByFlight(ctx context.Context, flightID string) (int64, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	kept := st.tickets[:0]
	var removed int64
	for _, t := range st.tickets {
		if t.FlightID == flightID {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	st.tickets = kept
	return removed, nil
}

func (r *ticketRepo) DeleteBySeat(ctx context.Context, flightID, seatLabel string) (int64, error) {
	st, done, err := r.s.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	if seatLabel == "" {
		return 0, nil
	}
	for i, t := range st.tickets {
		if t.FlightID == flightID && t.SeatLabel == seatLabel {
			st.tickets = append(st.tickets[:i], st.tickets[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

var _ repository.Store = (*Store)(nil)
