package booking

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
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxSeatLabelLen = 8

type BookingUseCase interface {
	Book(ctx context.Context, input BookTicketInput) (*domain.Ticket, error)
	ListByEmail(ctx context.Context, email string) ([]domain.TicketSummary, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type CacheInvalidator interface {
	InvalidateFlights(ctx context.Context) error
}

type BookTicketInput struct {
	FlightID  string `json:"flight_id"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	SeatLabel string `json:"seat_label"`
}

func (in BookTicketInput) normalize() (BookTicketInput, error) {
	in.FlightID = strings.TrimSpace(in.FlightID)
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Email = strings.TrimSpace(in.Email)
	in.SeatLabel = strings.ToUpper(strings.TrimSpace(in.SeatLabel))

	switch {
	case in.FlightID == "":
		return in, domain.InvalidInput("flight_id is required")
	case in.Name == "":
		return in, domain.InvalidInput("name is required")
	case in.Surname == "":
		return in, domain.InvalidInput("surname is required")
	case in.Email == "":
		return in, domain.InvalidInput("email is required")
	case !strings.Contains(in.Email, "@"):
		return in, domain.InvalidInput("email %q is not valid", in.Email)
	case len(in.SeatLabel) > maxSeatLabelLen:
		return in, domain.InvalidInput("seat_label must be at most %d characters", maxSeatLabelLen)
	}
	return in, nil
}

type BookingService struct {
	store       repository.Store
	inv         *inventory.Inventory
	producer    Producer
	cache       CacheInvalidator
	ticketTopic string
	timeout     time.Duration
	newID       func() string
	log         *slog.Logger
	tracer      trace.Tracer
}

type BookingServiceOption func(*BookingService)

func WithProducer(p Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.ticketTopic = topic
	}
}

func WithCache(c CacheInvalidator) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = c
	}
}

func WithTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.timeout = d
	}
}

func WithIDGenerator(gen func() string) BookingServiceOption {
	return func(s *BookingService) {
		s.newID = gen
	}
}

func WithLogger(l *slog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = l
	}
}

func NewBookingService(store repository.Store, inv *inventory.Inventory, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		store:   store,
		inv:     inv,
		timeout: 5 * time.Second,
		newID:   uuid.NewString,
		log:     logger.Discard(),
		tracer:  otel.Tracer("skyinventory/booking"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Book issues one ticket. The seat decrement and the ticket insert commit
// together or not at all.
func (s *BookingService) Book(ctx context.Context, input BookTicketInput) (*domain.Ticket, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "booking.Book", trace.WithAttributes(
		attribute.String("flight.id", input.FlightID),
	))
	defer span.End()

	ticket, remaining, err := s.book(ctx, input)
	result := outcome(err)
	metrics.ObserveBooking(result, time.Since(start))
	span.SetAttributes(attribute.String("booking.result", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		return nil, err
	}

	s.afterCommit(ctx, ticket, remaining)
	return ticket, nil
}

func (s *BookingService) book(ctx context.Context, input BookTicketInput) (*domain.Ticket, int, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	a := s.startAttempt(input.FlightID)

	flight, err := s.store.Flights().GetByID(ctx, input.FlightID)
	if err != nil {
		a.to(stateFailed, err)
		return nil, 0, fmt.Errorf("get flight %s: %w", input.FlightID, deadline(ctx, err))
	}
	if flight.SeatsAvailable <= 0 {
		a.to(stateFailed, domain.ErrSoldOut)
		return nil, 0, domain.ErrSoldOut
	}
	a.to(stateSeatChecked, nil)

	ticket := &domain.Ticket{
		ID:               s.newID(),
		FlightID:         input.FlightID,
		PassengerName:    input.Name,
		PassengerSurname: input.Surname,
		Email:            input.Email,
		SeatLabel:        input.SeatLabel,
	}

	var token inventory.SeatToken
	reserved := false
	err = s.inv.Exclusive(ctx, input.FlightID, func(ctx context.Context, tx repository.Store) error {
		token, err = s.inv.Reserve(ctx, tx, input.FlightID, input.SeatLabel)
		if err != nil {
			return err
		}
		reserved = true
		a.to(stateSeatReserved, nil)

		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		if reserved {
			metrics.IncBookingRollback()
			a.to(stateSeatChecked, err)
		}
		a.to(stateFailed, err)
		return nil, 0, deadline(ctx, err)
	}

	a.to(stateTicketPersisted, nil)
	return ticket, token.Remaining, nil
}

// afterCommit runs side effects that must not undo a committed booking.
func (s *BookingService) afterCommit(ctx context.Context, ticket *domain.Ticket, remaining int) {
	if s.cache != nil {
		if err := s.cache.InvalidateFlights(ctx); err != nil {
			s.log.Warn("invalidate flight cache", "ticket_id", ticket.ID, "error", err)
		}
	}

	if s.producer == nil || s.ticketTopic == "" {
		return
	}
	event := kafka.TicketEvent{
		Type:           kafka.EventTicketBooked,
		TicketID:       ticket.ID,
		FlightID:       ticket.FlightID,
		Email:          ticket.Email,
		SeatLabel:      ticket.SeatLabel,
		SeatsRemaining: remaining,
		OccurredAt:     ticket.CreatedAt,
	}
	if err := s.producer.Publish(ctx, s.ticketTopic, ticket.FlightID, event); err != nil {
		s.log.Warn("publish ticket_booked", "ticket_id", ticket.ID, "error", err)
	}
}

func (s *BookingService) ListByEmail(ctx context.Context, email string) ([]domain.TicketSummary, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.InvalidInput("email is required")
	}
	tickets, err := s.store.Tickets().ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// deadline makes a context expiry visible as ErrStoreUnavailable even when the
// underlying layer returned the bare context error.
func deadline(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, domain.ErrSoldOut):
		return "sold_out"
	case errors.Is(err, domain.ErrSeatTaken):
		return "seat_taken"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

var _ BookingUseCase = (*BookingService)(nil)
