package profiler

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rahmatrdn/go-query-profiler/entity"
)

// Default thresholds, overridable via configuration.
const (
	DefaultSlowQueryMs          = 100
	DefaultN1Threshold          = 10
	DefaultMaxQueriesPerRequest = 50
)

type Thresholds struct {
	SlowQueryMs          int64
	N1Threshold          int
	MaxQueriesPerRequest int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SlowQueryMs:          DefaultSlowQueryMs,
		N1Threshold:          DefaultN1Threshold,
		MaxQueriesPerRequest: DefaultMaxQueriesPerRequest,
	}
}

// WarningSink receives heuristic warning events. Implementations must not
// block for long and must never propagate failures back to the profiler.
type WarningSink interface {
	Publish(event entity.WarningEvent)
}

// Heuristics flags slow queries at record time and evaluates finished
// profiles for N+1 patterns and excessive query counts.
type Heuristics struct {
	thresholds Thresholds
	log        *zap.Logger
	sink       WarningSink // optional, nil when no external sink is configured
}

func NewHeuristics(thresholds Thresholds, log *zap.Logger, sink WarningSink) *Heuristics {
	return &Heuristics{
		thresholds: thresholds,
		log:        log,
		sink:       sink,
	}
}

func (h *Heuristics) Thresholds() Thresholds {
	return h.thresholds
}

// IsSlow classifies a single query duration.
func (h *Heuristics) IsSlow(durationMs int64) bool {
	return durationMs > h.thresholds.SlowQueryMs
}

// SlowCount returns how many records in the list classify as slow.
func (h *Heuristics) SlowCount(queries []entity.QueryRecord) int {
	count := 0
	for _, q := range queries {
		if h.IsSlow(q.DurationMs) {
			count++
		}
	}
	return count
}

// OnRecord runs the heuristics that need no aggregate context. Slow queries
// warn immediately rather than waiting for the profile to finish.
func (h *Heuristics) OnRecord(requestID string, record entity.QueryRecord) {
	if !h.IsSlow(record.DurationMs) {
		return
	}
	h.log.Warn("slow query detected",
		zap.String("request_id", requestID),
		zap.String("query", record.Query),
		zap.Int64("duration_ms", record.DurationMs),
		zap.Int64("threshold_ms", h.thresholds.SlowQueryMs),
	)
	h.publish(entity.WarningEvent{
		Kind:       entity.WarningSlowQuery,
		RequestID:  requestID,
		Query:      record.Query,
		DurationMs: record.DurationMs,
	})
}

// OnFinish evaluates the complete query set: sets PotentialN1 on the profile
// and emits the finish-time warnings.
func (h *Heuristics) OnFinish(profile *entity.Profile) {
	groups := GroupByPattern(profile.Queries)

	for _, g := range groups {
		if g.Count <= h.thresholds.N1Threshold {
			continue
		}
		profile.PotentialN1 = true
		h.log.Warn("potential n+1 query pattern",
			zap.String("request_id", profile.RequestID),
			zap.String("pattern", g.Pattern),
			zap.Int("occurrences", g.Count),
		)
		h.publish(entity.WarningEvent{
			Kind:      entity.WarningPotentialN1,
			RequestID: profile.RequestID,
			Query:     g.Pattern,
			Count:     g.Count,
		})
	}

	if profile.QueryCount > h.thresholds.MaxQueriesPerRequest {
		h.log.Warn("high query count for request",
			zap.String("request_id", profile.RequestID),
			zap.Int("query_count", profile.QueryCount),
			zap.Int("max", h.thresholds.MaxQueriesPerRequest),
		)
		h.publish(entity.WarningEvent{
			Kind:      entity.WarningHighQueryCount,
			RequestID: profile.RequestID,
			Count:     profile.QueryCount,
		})
	}
}

func (h *Heuristics) publish(event entity.WarningEvent) {
	if h.sink == nil {
		return
	}
	event.EmittedAt = time.Now()
	h.sink.Publish(event)
}

// PatternGroup aggregates the records sharing one extracted query pattern.
type PatternGroup struct {
	Pattern         string
	Count           int
	TotalDurationMs int64
}

// GroupByPattern buckets records by ExtractPattern of their normalized text,
// ordered by occurrence count descending (total duration breaks ties).
func GroupByPattern(queries []entity.QueryRecord) []PatternGroup {
	byPattern := make(map[string]*PatternGroup)
	for _, q := range queries {
		pattern := ExtractPattern(q.Query)
		g, ok := byPattern[pattern]
		if !ok {
			g = &PatternGroup{Pattern: pattern}
			byPattern[pattern] = g
		}
		g.Count++
		g.TotalDurationMs += q.DurationMs
	}

	groups := make([]PatternGroup, 0, len(byPattern))
	for _, g := range byPattern {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].TotalDurationMs > groups[j].TotalDurationMs
	})
	return groups
}
