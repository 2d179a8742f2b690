package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationFailed = "40001"
	pgDeadlockDetected    = "40P01"
	pgAdminShutdown       = "57P01"
	pgQueryCanceled       = "57014"

	constraintOriginDeparture  = "flights_origin_departure_key"
	constraintDestinationArriv = "flights_destination_arrival_key"
	constraintFlightSeat       = "tickets_flight_seat_key"
)

// translate maps driver errors onto the domain taxonomy. Errors it does not
// recognise are returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			switch pgErr.ConstraintName {
			case constraintOriginDeparture:
				return domain.NewConflict(domain.DepartureCollision)
			case constraintDestinationArriv:
				return domain.NewConflict(domain.ArrivalCollision)
			case constraintFlightSeat:
				return domain.ErrSeatTaken
			}
		case pgErr.Code == pgSerializationFailed,
			pgErr.Code == pgDeadlockDetected,
			pgErr.Code == pgAdminShutdown,
			pgErr.Code == pgQueryCanceled,
			strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "53"):
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
