package entity

import "time"

// QueryRecord is one executed query inside a request profile. Query holds the
// normalized text (lowercased, whitespace collapsed), never the raw SQL.
type QueryRecord struct {
	Query      string       `json:"query"`
	DurationMs int64        `json:"duration_ms"`
	Params     []ParamValue `json:"params,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
	StackTrace string       `json:"stack_trace,omitempty"` // captured only outside production
}

// Profile is the complete record of all queries issued while serving one
// logical request. QueryCount, TotalDurationMs and PotentialN1 are computed
// when the profile is finished.
type Profile struct {
	RequestID       string        `json:"request_id"`
	Queries         []QueryRecord `json:"queries"`
	QueryCount      int           `json:"query_count"`
	TotalDurationMs int64         `json:"total_duration_ms"`
	PotentialN1     bool          `json:"potential_n1"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
}

// ProfilerStats is the point-in-time rollup over all active (unfinished)
// profiles.
type ProfilerStats struct {
	TotalQueries             int     `json:"total_queries"`
	ActiveRequests           int     `json:"active_requests"`
	AverageQueriesPerRequest float64 `json:"average_queries_per_request"`
	SlowQueries              int     `json:"slow_queries"`
}

// Performance status values for the diagnostics endpoint.
const (
	StatusGood     = "good"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// PerformanceOverview is the diagnostics endpoint's response body. Field
// names follow the consumer's contract, hence the camelCase keys.
type PerformanceOverview struct {
	PerformanceStatus        string   `json:"performanceStatus"`
	TotalQueries             int      `json:"totalQueries"`
	ActiveRequests           int      `json:"activeRequests"`
	AverageQueriesPerRequest float64  `json:"averageQueriesPerRequest"`
	SlowQueries              int      `json:"slowQueries"`
	Recommendations          []string `json:"recommendations"`
}

// Warning event kinds.
const (
	WarningSlowQuery      = "slow_query"
	WarningPotentialN1    = "potential_n1"
	WarningHighQueryCount = "high_query_count"
)

// WarningEvent is emitted when a heuristic fires: slow queries at record
// time, N+1 and high query count at finish time.
type WarningEvent struct {
	Kind       string    `json:"kind"`
	RequestID  string    `json:"request_id"`
	Query      string    `json:"query,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Count      int       `json:"count,omitempty"`
	EmittedAt  time.Time `json:"emitted_at"`
}
