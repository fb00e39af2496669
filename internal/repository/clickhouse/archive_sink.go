package clickhouse

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	errwrap "github.com/pkg/errors"

	"github.com/rahmatrdn/go-query-profiler/entity"
	"github.com/rahmatrdn/go-query-profiler/internal/helper"
)

// ArchiveSink ships finished profiles to ClickHouse for long-term analytics.
// Optional; enabled only when an address is configured.
type ArchiveSink interface {
	InsertProfile(ctx context.Context, profile *entity.Profile, slowQueries int) error
	Close() error
}

type archiveSink struct {
	conn driver.Conn
}

const createProfilesTable = `
CREATE TABLE IF NOT EXISTS request_profiles (
	request_id        String,
	query_count       UInt32,
	total_duration_ms Int64,
	potential_n1      UInt8,
	slow_queries      UInt32,
	started_at        DateTime64(3),
	finished_at       DateTime64(3)
) ENGINE = MergeTree ORDER BY finished_at`

const createQueriesTable = `
CREATE TABLE IF NOT EXISTS request_profile_queries (
	request_id  String,
	query       String,
	duration_ms Int64,
	recorded_at DateTime64(3)
) ENGINE = MergeTree ORDER BY (request_id, recorded_at)`

func NewArchiveSink(ctx context.Context, addr, database string) (ArchiveSink, error) {
	funcName := "clickhouse.NewArchiveSink"

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{Database: database},
	})
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	for _, ddl := range []string{createProfilesTable, createQueriesTable} {
		if err := conn.Exec(ctx, ddl); err != nil {
			return nil, errwrap.Wrap(err, funcName)
		}
	}

	return &archiveSink{conn: conn}, nil
}

func (s *archiveSink) InsertProfile(ctx context.Context, profile *entity.Profile, slowQueries int) error {
	funcName := "ArchiveSink.InsertProfile"
	if err := helper.CheckDeadline(ctx); err != nil {
		return errwrap.Wrap(err, funcName)
	}

	err := s.conn.Exec(ctx,
		"INSERT INTO request_profiles (request_id, query_count, total_duration_ms, potential_n1, slow_queries, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		profile.RequestID,
		uint32(profile.QueryCount),
		profile.TotalDurationMs,
		boolToUInt8(profile.PotentialN1),
		uint32(slowQueries),
		profile.StartTime,
		profile.EndTime,
	)
	if err != nil {
		return errwrap.Wrap(err, funcName)
	}

	if len(profile.Queries) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx,
		"INSERT INTO request_profile_queries (request_id, query, duration_ms, recorded_at)")
	if err != nil {
		return errwrap.Wrap(err, funcName)
	}
	for _, q := range profile.Queries {
		if err := batch.Append(profile.RequestID, q.Query, q.DurationMs, q.Timestamp); err != nil {
			return errwrap.Wrap(err, funcName)
		}
	}
	if err := batch.Send(); err != nil {
		return errwrap.Wrap(err, funcName)
	}
	return nil
}

func (s *archiveSink) Close() error {
	return s.conn.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
