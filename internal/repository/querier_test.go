package repository

import (
	"context"
	"errors"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recordedCall struct {
	sql  string
	args []any
}

// recordingQuerier captures the statements a repository sends and answers
// them with canned rows.
type recordingQuerier struct {
	calls   []recordedCall
	row     []any
	rowErr  error
	tag     string
	execErr error
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.calls = append(q.calls, recordedCall{sql: sql, args: args})
	if q.execErr != nil {
		return pgconn.CommandTag{}, q.execErr
	}
	return pgconn.NewCommandTag(q.tag), nil
}

func (q *recordingQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.calls = append(q.calls, recordedCall{sql: sql, args: args})
	return nil, errors.New("query not supported by recordingQuerier")
}

func (q *recordingQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.calls = append(q.calls, recordedCall{sql: sql, args: args})
	return cannedRow{values: q.row, err: q.rowErr}
}

func (q *recordingQuerier) last() recordedCall {
	if len(q.calls) == 0 {
		return recordedCall{}
	}
	return q.calls[len(q.calls)-1]
}

type cannedRow struct {
	values []any
	err    error
}

func (r cannedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("scan: column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}
