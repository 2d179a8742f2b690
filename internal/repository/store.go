package repository

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/Domenick1991/skyinventory/config"
	"github.com/Domenick1991/skyinventory/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type FlightRepository interface {
	Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	// GetForUpdate reads the flight and holds an exclusive row lock until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Flight, error)
	FindBySlot(ctx context.Context, slot domain.Slot) ([]domain.Flight, error)
	Create(ctx context.Context, flight *domain.Flight) error
	UpdateSchedule(ctx context.Context, flight *domain.Flight) error
	Delete(ctx context.Context, id string) error
	// DecrementAvailable takes one seat if seats_available > 0. ok is false
	// when the guard did not match.
	DecrementAvailable(ctx context.Context, id string) (available int, ok bool, err error)
	// IncrementAvailable gives one seat back if seats_available < seats_total.
	IncrementAvailable(ctx context.Context, id string) (available int, ok bool, err error)
	// Resize sets seats_total and shifts seats_available by the same delta.
	// ok is false when seats_available would go negative.
	Resize(ctx context.Context, id string, total int) (flight *domain.Flight, ok bool, err error)
	SetAvailable(ctx context.Context, id string, available int) error
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	SeatTaken(ctx context.Context, flightID, seatLabel string) (bool, error)
	CountByFlight(ctx context.Context, flightID string) (int, error)
	ListByEmail(ctx context.Context, email string) ([]domain.TicketSummary, error)
	DeleteByFlight(ctx context.Context, flightID string) (int64, error)
	// DeleteBySeat removes the ticket holding seatLabel on the flight and
	// reports how many rows went away (zero or one).
	DeleteBySeat(ctx context.Context, flightID, seatLabel string) (int64, error)
}

// Store groups the repositories behind one transaction boundary.
type Store interface {
	Flights() FlightRepository
	Tickets() TicketRepository
	// WithinTx runs fn in a transaction. The Store passed to fn is bound to
	// it; returning an error rolls everything back. Nested calls join the
	// outer transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGStore struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
	sb   sq.StatementBuilderType
}

func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{
		pool: pool,
		q:    pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *PGStore) Flights() FlightRepository {
	return &PGFlightRepository{q: s.q, sb: s.sb}
}

func (s *PGStore) Tickets() TicketRepository {
	return &PGTicketRepository{q: s.q, sb: s.sb}
}

func (s *PGStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return translate(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	if err := fn(ctx, &PGStore{pool: s.pool, q: tx, inTx: true, sb: s.sb}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// NewPool opens and pings a pgx pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pcfg.MinConns = 1
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pcfg.HealthCheckPeriod = time.Minute

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

var _ Store = (*PGStore)(nil)
