package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skyinventory/internal/domain"
	sq "github.com/Masterminds/squirrel"
)

type PGTicketRepository struct {
	q  querier
	sb sq.StatementBuilderType
}

func (r *PGTicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	var seat any
	if t.SeatLabel != "" {
		seat = t.SeatLabel
	}

	sqlStr, args, err := r.sb.
		Insert("tickets").
		Columns("id", "flight_id", "passenger_name", "passenger_surname", "email", "seat_label").
		Values(t.ID, t.FlightID, t.PassengerName, t.PassengerSurname, t.Email, seat).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert ticket sql: %w", err)
	}

	if err := r.q.QueryRow(ctx, sqlStr, args...).Scan(&t.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return translate(err)
	}
	return nil
}

func (r *PGTicketRepository) SeatTaken(ctx context.Context, flightID, seatLabel string) (bool, error) {
	var taken bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE flight_id=$1 AND seat_label=$2)`, flightID, seatLabel).Scan(&taken)
	if err != nil {
		return false, translate(err)
	}
	return taken, nil
}

func (r *PGTicketRepository) CountByFlight(ctx context.Context, flightID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM tickets WHERE flight_id=$1`, flightID).Scan(&n); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (r *PGTicketRepository) ListByEmail(ctx context.Context, email string) ([]domain.TicketSummary, error) {
	sqlStr, args, err := r.sb.
		Select(
			"t.id", "t.flight_id", "t.passenger_name", "t.passenger_surname", "t.email",
			"coalesce(t.seat_label, '')", "t.created_at",
			"f.origin", "f.destination", "f.departure_at", "f.arrival_at", "f.price_cents",
		).
		From("tickets t").
		Join("flights f ON f.id = t.flight_id").
		Where(sq.Eq{"t.email": email}).
		OrderBy("f.departure_at", "t.created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list tickets sql: %w", err)
	}

	rows, err := r.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	tickets := make([]domain.TicketSummary, 0)
	for rows.Next() {
		var s domain.TicketSummary
		if err := rows.Scan(
			&s.ID, &s.FlightID, &s.PassengerName, &s.PassengerSurname, &s.Email,
			&s.SeatLabel, &s.CreatedAt,
			&s.Origin, &s.Destination, &s.DepartureAt, &s.ArrivalAt, &s.PriceCents,
		); err != nil {
			return nil, translate(err)
		}
		tickets = append(tickets, s)
	}
	return tickets, translate(rows.Err())
}

func (r *PGTicketRepository) DeleteByFlight(ctx context.Context, flightID string) (int64, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM tickets WHERE flight_id=$1`, flightID)
	if err != nil {
		return 0, translate(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *PGTicketRepository) DeleteBySeat(ctx context.Context, flightID, seatLabel string) (int64, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM tickets WHERE flight_id=$1 AND seat_label=$2`, flightID, seatLabel)
	if err != nil {
		return 0, translate(err)
	}
	return cmd.RowsAffected(), nil
}

var _ TicketRepository = (*PGTicketRepository)(nil)
