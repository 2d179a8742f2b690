package flights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/Domenick1991/skyinventory/internal/inventory"
	"github.com/Domenick1991/skyinventory/internal/kafka"
	"github.com/Domenick1991/skyinventory/internal/logger"
	"github.com/Domenick1991/skyinventory/internal/metrics"
	"github.com/Domenick1991/skyinventory/internal/repository"
	"github.com/Domenick1991/skyinventory/internal/schedule"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type FlightUseCase interface {
	Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	Create(ctx context.Context, input FlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id string, input FlightInput) (*domain.Flight, error)
	Delete(ctx context.Context, id string) error
}

type FlightCache interface {
	GetFlights(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	SetFlights(ctx context.Context, filter domain.FlightFilter, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type DeletePolicy string

const (
	// DeleteReject refuses to delete a flight that has issued tickets.
	DeleteReject DeletePolicy = "reject"
	// DeleteCascade removes the flight's tickets together with the flight.
	DeleteCascade DeletePolicy = "cascade"
)

func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch p := DeletePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", DeleteReject:
		return DeleteReject, nil
	case DeleteCascade:
		return DeleteCascade, nil
	default:
		return "", fmt.Errorf("unknown delete policy %q", s)
	}
}

type FlightInput struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartureAt time.Time `json:"departure_at"`
	ArrivalAt   time.Time `json:"arrival_at"`
	PriceCents  int64     `json:"price_cents"`
	SeatsTotal  int       `json:"seats_total"`
}

func (in FlightInput) normalize(now time.Time) (FlightInput, error) {
	in.Origin = strings.TrimSpace(in.Origin)
	in.Destination = strings.TrimSpace(in.Destination)
	in.DepartureAt = in.DepartureAt.UTC()
	in.ArrivalAt = in.ArrivalAt.UTC()

	switch {
	case in.Origin == "":
		return in, domain.InvalidInput("origin is required")
	case in.Destination == "":
		return in, domain.InvalidInput("destination is required")
	case strings.EqualFold(in.Origin, in.Destination):
		return in, domain.InvalidInput("origin and destination must differ")
	case in.PriceCents <= 0:
		return in, domain.InvalidInput("price_cents must be positive")
	case in.SeatsTotal <= 0:
		return in, domain.InvalidInput("seats_total must be positive")
	case in.DepartureAt.IsZero() || in.ArrivalAt.IsZero():
		return in, domain.InvalidInput("departure_at and arrival_at are required")
	case !in.ArrivalAt.After(in.DepartureAt):
		return in, domain.InvalidInput("arrival_at must be after departure_at")
	case in.DepartureAt.Before(now):
		return in, domain.InvalidInput("departure_at is in the past")
	}
	return in, nil
}

type FlightService struct {
	store       repository.Store
	inv         *inventory.Inventory
	cache       FlightCache
	producer    Producer
	flightTopic string
	policy      DeletePolicy
	now         func() time.Time
	newID       func() string
	log         *slog.Logger
	tracer      trace.Tracer
}

type FlightServiceOption func(*FlightService)

func WithCache(c FlightCache) FlightServiceOption {
	return func(s *FlightService) {
		s.cache = c
	}
}

func WithProducer(p Producer, topic string) FlightServiceOption {
	return func(s *FlightService) {
		s.producer = p
		s.flightTopic = topic
	}
}

func WithDeletePolicy(p DeletePolicy) FlightServiceOption {
	return func(s *FlightService) {
		s.policy = p
	}
}

func WithClock(now func() time.Time) FlightServiceOption {
	return func(s *FlightService) {
		s.now = now
	}
}

func WithIDGenerator(gen func() string) FlightServiceOption {
	return func(s *FlightService) {
		s.newID = gen
	}
}

func WithLogger(l *slog.Logger) FlightServiceOption {
	return func(s *FlightService) {
		s.log = l
	}
}

func NewFlightService(store repository.Store, inv *inventory.Inventory, opts ...FlightServiceOption) *FlightService {
	s := &FlightService{
		store:  store,
		inv:    inv,
		policy: DeleteReject,
		now:    time.Now,
		newID:  uuid.NewString,
		log:    logger.Discard(),
		tracer: otel.Tracer("skyinventory/flights"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search serves from the cache when it can. Cache failures are logged and
// the store answers instead.
func (s *FlightService) Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	filter.Origin = strings.TrimSpace(filter.Origin)
	filter.Destination = strings.TrimSpace(filter.Destination)

	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx, filter)
		switch {
		case err != nil:
			metrics.IncCacheLookup("error")
			s.log.Warn("flight cache lookup", "error", err)
		case cached != nil:
			metrics.IncCacheLookup("hit")
			return cached, nil
		default:
			metrics.IncCacheLookup("miss")
		}
	}

	flights, err := s.store.Flights().Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search flights: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, filter, flights); err != nil {
			s.log.Warn("flight cache store", "error", err)
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	f, err := s.store.Flights().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get flight %s: %w", id, err)
	}
	return f, nil
}

func (s *FlightService) Create(ctx context.Context, input FlightInput) (*domain.Flight, error) {
	ctx, span := s.tracer.Start(ctx, "flights.Create")
	defer span.End()

	in, err := input.normalize(s.now())
	if err != nil {
		return nil, s.finish(span, "create", err)
	}

	flight := &domain.Flight{
		ID:             s.newID(),
		Origin:         in.Origin,
		Destination:    in.Destination,
		DepartureAt:    in.DepartureAt,
		ArrivalAt:      in.ArrivalAt,
		PriceCents:     in.PriceCents,
		SeatsTotal:     in.SeatsTotal,
		SeatsAvailable: in.SeatsTotal,
	}
	span.SetAttributes(attribute.String("flight.id", flight.ID))

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := schedule.NewValidator(tx.Flights()).Validate(ctx, flight.Slot(), ""); err != nil {
			return err
		}
		return tx.Flights().Create(ctx, flight)
	})
	if err != nil {
		return nil, s.finish(span, "create", err)
	}

	s.finish(span, "create", nil)
	s.afterCommit(ctx, kafka.EventFlightCreated, flight.ID, flight)
	return flight, nil
}

// Update rewrites the schedule and price and resizes the cabin. Seats held by
// tickets stay held; shrinking below them fails with ErrCapacityBelowBooked.
func (s *FlightService) Update(ctx context.Context, id string, input FlightInput) (*domain.Flight, error) {
	ctx, span := s.tracer.Start(ctx, "flights.Update", trace.WithAttributes(attribute.String("flight.id", id)))
	defer span.End()

	in, err := input.normalize(s.now())
	if err != nil {
		return nil, s.finish(span, "update", err)
	}

	var updated *domain.Flight
	err = s.inv.Exclusive(ctx, id, func(ctx context.Context, tx repository.Store) error {
		current, err := tx.Flights().GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get flight %s: %w", id, err)
		}

		next := *current
		next.Origin = in.Origin
		next.Destination = in.Destination
		next.DepartureAt = in.DepartureAt
		next.ArrivalAt = in.ArrivalAt
		next.PriceCents = in.PriceCents

		if err := schedule.NewValidator(tx.Flights()).Validate(ctx, next.Slot(), id); err != nil {
			return err
		}
		if err := tx.Flights().UpdateSchedule(ctx, &next); err != nil {
			return err
		}

		updated, err = s.inv.Resize(ctx, tx, id, in.SeatsTotal)
		return err
	})
	if err != nil {
		return nil, s.finish(span, "update", err)
	}

	s.finish(span, "update", nil)
	s.afterCommit(ctx, kafka.EventFlightUpdated, id, updated)
	return updated, nil
}

func (s *FlightService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "flights.Delete", trace.WithAttributes(
		attribute.String("flight.id", id),
		attribute.String("flight.delete_policy", string(s.policy)),
	))
	defer span.End()

	var removed int64
	err := s.inv.Exclusive(ctx, id, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Flights().GetForUpdate(ctx, id); err != nil {
			return fmt.Errorf("get flight %s: %w", id, err)
		}

		tickets, err := tx.Tickets().CountByFlight(ctx, id)
		if err != nil {
			return fmt.Errorf("count tickets: %w", err)
		}
		if tickets > 0 {
			if s.policy != DeleteCascade {
				return domain.NewConflict(domain.TicketsOutstanding)
			}
			if removed, err = tx.Tickets().DeleteByFlight(ctx, id); err != nil {
				return fmt.Errorf("delete tickets: %w", err)
			}
		}
		return tx.Flights().Delete(ctx, id)
	})
	if err != nil {
		return s.finish(span, "delete", err)
	}

	if removed > 0 {
		s.log.Info("flight deleted with tickets", "flight_id", id, "tickets", removed)
	}
	s.finish(span, "delete", nil)
	s.afterCommit(ctx, kafka.EventFlightDeleted, id, nil)
	return nil
}

func (s *FlightService) finish(span trace.Span, op string, err error) error {
	result := "ok"
	if err != nil {
		result = "error"
		var conflict *domain.ConflictError
		switch {
		case errors.As(err, &conflict):
			result = strings.ToLower(string(conflict.Reason))
		case errors.Is(err, domain.ErrInvalidInput):
			result = "invalid"
		case errors.Is(err, domain.ErrNotFound):
			result = "not_found"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		s.log.Info("flight mutation rejected", "op", op, "result", result, "error", err)
	}
	metrics.IncFlightMutation(op, result)
	return err
}

func (s *FlightService) afterCommit(ctx context.Context, eventType, flightID string, flight *domain.Flight) {
	if s.cache != nil {
		if err := s.cache.InvalidateFlights(ctx); err != nil {
			s.log.Warn("invalidate flight cache", "flight_id", flightID, "error", err)
		}
	}

	if s.producer == nil || s.flightTopic == "" {
		return
	}
	event := kafka.FlightEvent{
		Type:       eventType,
		FlightID:   flightID,
		Flight:     flight,
		OccurredAt: s.now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.flightTopic, flightID, event); err != nil {
		s.log.Warn("publish flight event", "type", eventType, "flight_id", flightID, "error", err)
	}
}

var _ FlightUseCase = (*FlightService)(nil)
