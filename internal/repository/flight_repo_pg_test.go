package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/skyinventory/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	pool := &pgxpool.Pool{}
	store := NewStore(pool)
	assert.NotNil(t, store)
	assert.NotNil(t, store.Flights())
	assert.NotNil(t, store.Tickets())
}

func newTestFlightRepo() *PGFlightRepository {
	return &PGFlightRepository{sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func TestSearchQuery_NoFilter(t *testing.T) {
	sqlStr, args, err := newTestFlightRepo().searchQuery(domain.FlightFilter{}).ToSql()

	require.NoError(t, err)
	assert.NotContains(t, sqlStr, "WHERE")
	assert.Contains(t, sqlStr, "ORDER BY departure_at, id")
	assert.Empty(t, args)
}

func TestSearchQuery_AllFilters(t *testing.T) {
	date := time.Date(2026, 11, 3, 15, 30, 0, 0, time.UTC)

	sqlStr, args, err := newTestFlightRepo().searchQuery(domain.FlightFilter{
		Origin:      "IST",
		Destination: "ESB",
		Date:        date,
	}).ToSql()

	require.NoError(t, err)
	assert.Contains(t, sqlStr, "origin = $1")
	assert.Contains(t, sqlStr, "destination = $2")
	assert.Contains(t, sqlStr, "departure_at >= $3")
	assert.Contains(t, sqlStr, "departure_at < $4")

	day := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []any{"IST", "ESB", day, day.Add(24 * time.Hour)}, args)
}

func TestSlotQuery(t *testing.T) {
	dep := time.Date(2026, 11, 3, 8, 0, 0, 0, time.UTC)
	arr := dep.Add(2 * time.Hour)

	sqlStr, args, err := newTestFlightRepo().slotQuery(domain.Slot{
		Origin:      "IST",
		Destination: "ESB",
		DepartureAt: dep,
		ArrivalAt:   arr,
	}).ToSql()

	require.NoError(t, err)
	assert.Contains(t, sqlStr, " OR ")
	assert.Len(t, args, 4)
	assert.Contains(t, args, "IST")
	assert.Contains(t, args, "ESB")
	assert.Contains(t, args, dep)
	assert.Contains(t, args, arr)
}

func flightRow(total, available int) []any {
	dep := time.Date(2026, 11, 3, 8, 0, 0, 0, time.UTC)
	return []any{"f1", "IST", "ESB", dep, dep.Add(time.Hour), int64(150000), total, available, dep, dep}
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	q := &recordingQuerier{row: flightRow(10, 4)}
	repo := &PGFlightRepository{q: q}

	f, err := repo.GetForUpdate(context.Background(), "f1")

	require.NoError(t, err)
	assert.Equal(t, 4, f.SeatsAvailable)
	assert.True(t, strings.HasSuffix(q.last().sql, "FOR UPDATE"))
	assert.Equal(t, []any{"f1"}, q.last().args)
}

func TestGetForUpdate_Missing(t *testing.T) {
	repo := &PGFlightRepository{q: &recordingQuerier{rowErr: pgx.ErrNoRows}}

	_, err := repo.GetForUpdate(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDecrementAvailable_GuardedUpdate(t *testing.T) {
	q := &recordingQuerier{row: []any{2}}
	repo := &PGFlightRepository{q: q}

	remaining, ok, err := repo.DecrementAvailable(context.Background(), "f1")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, remaining)
	assert.Contains(t, q.last().sql, "seats_available = seats_available - 1")
	assert.Contains(t, q.last().sql, "WHERE id=$1 AND seats_available > 0")
	assert.Contains(t, q.last().sql, "RETURNING seats_available")
	assert.Equal(t, []any{"f1"}, q.last().args)
}

func TestDecrementAvailable_NoRowMeansSoldOut(t *testing.T) {
	repo := &PGFlightRepository{q: &recordingQuerier{rowErr: pgx.ErrNoRows}}

	remaining, ok, err := repo.DecrementAvailable(context.Background(), "f1")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, remaining)
}

func TestIncrementAvailable_GuardedUpdate(t *testing.T) {
	q := &recordingQuerier{row: []any{5}}
	repo := &PGFlightRepository{q: q}

	available, ok, err := repo.IncrementAvailable(context.Background(), "f1")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, available)
	assert.Contains(t, q.last().sql, "seats_available = seats_available + 1")
	assert.Contains(t, q.last().sql, "WHERE id=$1 AND seats_available < seats_total")
}

func TestIncrementAvailable_NoRowMeansFull(t *testing.T) {
	repo := &PGFlightRepository{q: &recordingQuerier{rowErr: pgx.ErrNoRows}}

	_, ok, err := repo.IncrementAvailable(context.Background(), "f1")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShiftAvailable_StoreErrorPassesThrough(t *testing.T) {
	repo := &PGFlightRepository{q: &recordingQuerier{rowErr: &pgconn.PgError{Code: pgSerializationFailed}}}

	_, ok, err := repo.DecrementAvailable(context.Background(), "f1")

	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestResize_ShiftsAvailableByDelta(t *testing.T) {
	q := &recordingQuerier{row: flightRow(12, 6)}
	repo := &PGFlightRepository{q: q}

	f, ok, err := repo.Resize(context.Background(), "f1", 12)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12, f.SeatsTotal)
	assert.Equal(t, 6, f.SeatsAvailable)

	sqlStr := q.last().sql
	assert.Contains(t, sqlStr, "SET seats_available = seats_available + ($2 - seats_total)")
	assert.Contains(t, sqlStr, "seats_total = $2")
	assert.Contains(t, sqlStr, "WHERE id=$1 AND seats_available + ($2 - seats_total) >= 0")
	assert.Contains(t, sqlStr, "RETURNING "+flightColumns)
	assert.Equal(t, []any{"f1", 12}, q.last().args)
}

func TestResize_BelowBookedMatchesNoRow(t *testing.T) {
	repo := &PGFlightRepository{q: &recordingQuerier{rowErr: pgx.ErrNoRows}}

	f, ok, err := repo.Resize(context.Background(), "f1", 1)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, f)
}

func TestSetAvailable_MissingFlight(t *testing.T) {
	q := &recordingQuerier{tag: "UPDATE 0"}
	repo := &PGFlightRepository{q: q}

	err := repo.SetAvailable(context.Background(), "missing", 3)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []any{"missing", 3}, q.last().args)
}
