package scheduler

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	errwrap "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rahmatrdn/go-query-profiler/internal/profiler"
)

// StatsLogger periodically logs the cross-request rollup so operators get a
// heartbeat view of query load without hitting the diagnostics endpoint.
type StatsLogger struct {
	scheduler gocron.Scheduler
}

func NewStatsLogger(aggregator *profiler.Aggregator, interval time.Duration, log *zap.Logger) (*StatsLogger, error) {
	funcName := "scheduler.NewStatsLogger"

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			stats := aggregator.Stats()
			log.Info("profiler stats",
				zap.Int("active_requests", stats.ActiveRequests),
				zap.Int("total_queries", stats.TotalQueries),
				zap.Float64("avg_queries_per_request", stats.AverageQueriesPerRequest),
				zap.Int("slow_queries", stats.SlowQueries),
			)
		}),
	)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	return &StatsLogger{scheduler: s}, nil
}

func (s *StatsLogger) Start() {
	s.scheduler.Start()
}

func (s *StatsLogger) Shutdown() error {
	return s.scheduler.Shutdown()
}
