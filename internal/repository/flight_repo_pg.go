package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/skyinventory/internal/domain"
	sq "github.com/Masterminds/squirrel"
)

const flightColumns = "id, origin, destination, departure_at, arrival_at, price_cents, seats_total, seats_available, created_at, updated_at"

type PGFlightRepository struct {
	q  querier
	sb sq.StatementBuilderType
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlight(row scanner) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.Origin, &f.Destination, &f.DepartureAt, &f.ArrivalAt, &f.PriceCents, &f.SeatsTotal, &f.SeatsAvailable, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.DepartureAt = f.DepartureAt.UTC()
	f.ArrivalAt = f.ArrivalAt.UTC()
	return &f, nil
}

func (r *PGFlightRepository) searchQuery(filter domain.FlightFilter) sq.SelectBuilder {
	q := r.sb.Select(flightColumns).From("flights")
	if filter.Origin != "" {
		q = q.Where(sq.Eq{"origin": filter.Origin})
	}
	if filter.Destination != "" {
		q = q.Where(sq.Eq{"destination": filter.Destination})
	}
	if !filter.Date.IsZero() {
		day := filter.Date.UTC().Truncate(24 * time.Hour)
		q = q.Where(sq.GtOrEq{"departure_at": day}).Where(sq.Lt{"departure_at": day.Add(24 * time.Hour)})
	}
	return q.OrderBy("departure_at", "id")
}

func (r *PGFlightRepository) Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	sqlStr, args, err := r.searchQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search flights sql: %w", err)
	}
	return r.list(ctx, sqlStr, args...)
}

func (r *PGFlightRepository) list(ctx context.Context, sqlStr string, args ...any) ([]domain.Flight, error) {
	rows, err := r.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, translate(err)
		}
		flights = append(flights, *f)
	}
	return flights, translate(rows.Err())
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	f, err := scanFlight(r.q.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (r *PGFlightRepository) GetForUpdate(ctx context.Context, id string) (*domain.Flight, error) {
	f, err := scanFlight(r.q.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (r *PGFlightRepository) slotQuery(slot domain.Slot) sq.SelectBuilder {
	return r.sb.Select(flightColumns).
		From("flights").
		Where(sq.Or{
			sq.Eq{"origin": slot.Origin, "departure_at": slot.DepartureAt},
			sq.Eq{"destination": slot.Destination, "arrival_at": slot.ArrivalAt},
		})
}

func (r *PGFlightRepository) FindBySlot(ctx context.Context, slot domain.Slot) ([]domain.Flight, error) {
	sqlStr, args, err := r.slotQuery(slot).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find by slot sql: %w", err)
	}
	return r.list(ctx, sqlStr, args...)
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	sqlStr, args, err := r.sb.
		Insert("flights").
		Columns("id", "origin", "destination", "departure_at", "arrival_at", "price_cents", "seats_total", "seats_available").
		Values(f.ID, f.Origin, f.Destination, f.DepartureAt, f.ArrivalAt, f.PriceCents, f.SeatsTotal, f.SeatsAvailable).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert flight sql: %w", err)
	}

	if err := r.q.QueryRow(ctx, sqlStr, args...).Scan(&f.CreatedAt, &f.UpdatedAt); err != nil {
		return translate(err)
	}
	return nil
}

func (r *PGFlightRepository) UpdateSchedule(ctx context.Context, f *domain.Flight) error {
	sqlStr, args, err := r.sb.
		Update("flights").
		Set("origin", f.Origin).
		Set("destination", f.Destination).
		Set("departure_at", f.DepartureAt).
		Set("arrival_at", f.ArrivalAt).
		Set("price_cents", f.PriceCents).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": f.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update flight sql: %w", err)
	}

	if err := r.q.QueryRow(ctx, sqlStr, args...).Scan(&f.UpdatedAt); err != nil {
		return translate(err)
	}
	return nil
}

func (r *PGFlightRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewConflict(domain.TicketsOutstanding)
		}
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGFlightRepository) DecrementAvailable(ctx context.Context, id string) (int, bool, error) {
	return r.shiftAvailable(ctx, `UPDATE flights SET seats_available = seats_available - 1, updated_at = now() WHERE id=$1 AND seats_available > 0 RETURNING seats_available`, id)
}

func (r *PGFlightRepository) IncrementAvailable(ctx context.Context, id string) (int, bool, error) {
	return r.shiftAvailable(ctx, `UPDATE flights SET seats_available = seats_available + 1, updated_at = now() WHERE id=$1 AND seats_available < seats_total RETURNING seats_available`, id)
}

func (r *PGFlightRepository) shiftAvailable(ctx context.Context, sqlStr, id string) (int, bool, error) {
	var available int
	err := r.q.QueryRow(ctx, sqlStr, id).Scan(&available)
	if err != nil {
		err = translate(err)
		if errors.Is(err, domain.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return available, true, nil
}

func (r *PGFlightRepository) Resize(ctx context.Context, id string, total int) (*domain.Flight, bool, error) {
	f, err := scanFlight(r.q.QueryRow(ctx, `UPDATE flights
		SET seats_available = seats_available + ($2 - seats_total),
		    seats_total = $2,
		    updated_at = now()
		WHERE id=$1 AND seats_available + ($2 - seats_total) >= 0
		RETURNING `+flightColumns, id, total))
	if err != nil {
		err = translate(err)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return f, true, nil
}

func (r *PGFlightRepository) SetAvailable(ctx context.Context, id string, available int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE flights SET seats_available=$2, updated_at=now() WHERE id=$1`, id, available)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
