package profiler

import (
	"github.com/rahmatrdn/go-query-profiler/entity"
)

// Aggregator computes cross-request rollups over the store's active
// profiles. Point-in-time only; finished profiles are gone from the store
// and live in the archive instead.
type Aggregator struct {
	store      *Store
	heuristics *Heuristics
}

func NewAggregator(store *Store, heuristics *Heuristics) *Aggregator {
	return &Aggregator{store: store, heuristics: heuristics}
}

// Stats rolls up all currently active profiles. All fields are zero when
// nothing is in flight.
func (a *Aggregator) Stats() entity.ProfilerStats {
	profiles := a.store.SnapshotAll()

	stats := entity.ProfilerStats{
		ActiveRequests: len(profiles),
	}
	if len(profiles) == 0 {
		return stats
	}

	for _, p := range profiles {
		stats.TotalQueries += p.QueryCount
		stats.SlowQueries += a.heuristics.SlowCount(p.Queries)
	}
	stats.AverageQueriesPerRequest = float64(stats.TotalQueries) / float64(len(profiles))

	return stats
}
