package dbwrap

import (
	"context"
	"database/sql"

	"github.com/rahmatrdn/go-query-profiler/entity"
	"github.com/rahmatrdn/go-query-profiler/internal/profiler"
)

// DB instruments a *sql.DB: every query executed through it is timed and
// recorded into the profile of the request carried by the context. Calls
// without a profiling request id in the context pass through untouched.
type DB struct {
	db       *sql.DB
	measurer *profiler.Measurer
}

func Wrap(db *sql.DB, measurer *profiler.Measurer) *DB {
	return &DB{db: db, measurer: measurer}
}

// Unwrap exposes the underlying handle for operations the wrapper does not
// cover (transactions, prepared statements).
func (w *DB) Unwrap() *sql.DB {
	return w.db
}

func (w *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	requestID, ok := profiler.RequestIDFromContext(ctx)
	if !ok {
		return w.db.QueryContext(ctx, query, args...)
	}

	var rows *sql.Rows
	err := w.measurer.Measure(requestID, query, func() error {
		var opErr error
		rows, opErr = w.db.QueryContext(ctx, query, args...)
		return opErr
	}, entity.ParamsFromArgs(args...)...)
	return rows, err
}

func (w *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	requestID, ok := profiler.RequestIDFromContext(ctx)
	if !ok {
		return w.db.ExecContext(ctx, query, args...)
	}

	var result sql.Result
	err := w.measurer.Measure(requestID, query, func() error {
		var opErr error
		result, opErr = w.db.ExecContext(ctx, query, args...)
		return opErr
	}, entity.ParamsFromArgs(args...)...)
	return result, err
}

// QueryRowContext records the query as successful; row-level errors surface
// only at Scan time, after the wrapper has returned.
func (w *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	requestID, ok := profiler.RequestIDFromContext(ctx)
	if !ok {
		return w.db.QueryRowContext(ctx, query, args...)
	}

	var row *sql.Row
	_ = w.measurer.Measure(requestID, query, func() error {
		row = w.db.QueryRowContext(ctx, query, args...)
		return nil
	}, entity.ParamsFromArgs(args...)...)
	return row
}

func (w *DB) PingContext(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func (w *DB) Close() error {
	return w.db.Close()
}
