package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rahmatrdn/go-query-profiler/entity"
	"github.com/rahmatrdn/go-query-profiler/internal/profiler"
	"github.com/rahmatrdn/go-query-profiler/internal/repository/clickhouse"
	"github.com/rahmatrdn/go-query-profiler/internal/repository/sqlite"
)

// recentWindow bounds how many archived profiles feed the aggregate
// recommendation view.
const recentWindow = 50

type ProfilerUsecase interface {
	// Begin generates a request id and starts an empty profile for it.
	Begin() string
	// FinishRequest closes the profile and returns it with its
	// recommendations. profiler.ErrProfileNotFound when the id is unknown
	// or already finished.
	FinishRequest(ctx context.Context, requestID string) (*entity.Profile, []string, error)
	Stats() entity.ProfilerStats
	Overview(ctx context.Context) (*entity.PerformanceOverview, error)
	RecentProfiles(ctx context.Context, limit int) ([]*entity.ProfileArchive, error)
}

type profilerUsecase struct {
	store      *profiler.Store
	heuristics *profiler.Heuristics
	analyzer   *profiler.Analyzer
	aggregator *profiler.Aggregator

	archiveRepo sqlite.ProfileArchiveRepository
	archiveMax  int
	chSink      clickhouse.ArchiveSink // optional analytics sink, may be nil

	log *zap.Logger
}

func NewProfilerUsecase(
	store *profiler.Store,
	heuristics *profiler.Heuristics,
	analyzer *profiler.Analyzer,
	aggregator *profiler.Aggregator,
	archiveRepo sqlite.ProfileArchiveRepository,
	archiveMax int,
	chSink clickhouse.ArchiveSink,
	log *zap.Logger,
) ProfilerUsecase {
	return &profilerUsecase{
		store:       store,
		heuristics:  heuristics,
		analyzer:    analyzer,
		aggregator:  aggregator,
		archiveRepo: archiveRepo,
		archiveMax:  archiveMax,
		chSink:      chSink,
		log:         log,
	}
}

func (u *profilerUsecase) Begin() string {
	requestID := profiler.GenerateRequestID()
	u.store.Start(requestID)
	return requestID
}

func (u *profilerUsecase) FinishRequest(ctx context.Context, requestID string) (*entity.Profile, []string, error) {
	profile, err := u.store.Finish(requestID)
	if err != nil {
		return nil, nil, err
	}

	recommendations := u.analyzer.Analyze(profile)
	if len(recommendations) > 0 {
		u.log.Info("request profile finished with findings",
			zap.String("request_id", profile.RequestID),
			zap.Int("query_count", profile.QueryCount),
			zap.Int64("total_duration_ms", profile.TotalDurationMs),
			zap.Bool("potential_n1", profile.PotentialN1),
			zap.Strings("recommendations", recommendations),
		)
	}
	u.log.Debug("request profile report", zap.String("report", u.analyzer.Format(profile)))

	// Archive in the background with a fresh context so a finished (and
	// possibly canceled) request doesn't lose its history entry.
	go u.archive(context.Background(), profile)

	return profile, recommendations, nil
}

func (u *profilerUsecase) archive(ctx context.Context, profile *entity.Profile) {
	slowQueries := u.heuristics.SlowCount(profile.Queries)

	archive := &entity.ProfileArchive{
		RequestID:       profile.RequestID,
		QueryCount:      profile.QueryCount,
		TotalDurationMs: profile.TotalDurationMs,
		SlowQueries:     slowQueries,
		PotentialN1:     profile.PotentialN1,
		StartedAt:       profile.StartTime,
		FinishedAt:      profile.EndTime,
	}
	if groups := profiler.GroupByPattern(profile.Queries); len(groups) > 0 {
		archive.TopPattern = groups[0].Pattern
		archive.TopPatternCount = groups[0].Count
	}

	if err := u.archiveRepo.Save(ctx, archive); err != nil {
		u.log.Error("archive profile", zap.Error(err), zap.String("request_id", profile.RequestID))
		return
	}
	if err := u.archiveRepo.Prune(ctx, u.archiveMax); err != nil {
		u.log.Error("prune profile archive", zap.Error(err))
	}

	if u.chSink != nil {
		if err := u.chSink.InsertProfile(ctx, profile, slowQueries); err != nil {
			u.log.Error("ship profile to clickhouse", zap.Error(err), zap.String("request_id", profile.RequestID))
		}
	}
}

func (u *profilerUsecase) Stats() entity.ProfilerStats {
	return u.aggregator.Stats()
}

func (u *profilerUsecase) Overview(ctx context.Context) (*entity.PerformanceOverview, error) {
	stats := u.aggregator.Stats()

	overview := &entity.PerformanceOverview{
		PerformanceStatus:        statusFor(stats),
		TotalQueries:             stats.TotalQueries,
		ActiveRequests:           stats.ActiveRequests,
		AverageQueriesPerRequest: stats.AverageQueriesPerRequest,
		SlowQueries:              stats.SlowQueries,
		Recommendations:          []string{},
	}

	thresholds := u.heuristics.Thresholds()
	if stats.SlowQueries > 0 {
		overview.Recommendations = append(overview.Recommendations, fmt.Sprintf(
			"%d slow queries (>%dms) across active requests: review indexes for the tables involved.",
			stats.SlowQueries, thresholds.SlowQueryMs))
	}
	if stats.AverageQueriesPerRequest > float64(thresholds.MaxQueriesPerRequest) {
		overview.Recommendations = append(overview.Recommendations, fmt.Sprintf(
			"Average of %.1f queries per request exceeds %d: consider combining lookups with JOINs or batching.",
			stats.AverageQueriesPerRequest, thresholds.MaxQueriesPerRequest))
	}

	flagged, err := u.archiveRepo.CountFlaggedN1(ctx, recentWindow)
	if err != nil {
		// Archive lookups must not take the endpoint down; report live
		// stats without the historical recommendation.
		u.log.Error("count flagged n+1 archives", zap.Error(err))
		return overview, nil
	}
	if flagged > 0 {
		overview.Recommendations = append(overview.Recommendations, fmt.Sprintf(
			"%d of the last %d requests were flagged for potential N+1 patterns: review query logs and introduce batch loading.",
			flagged, recentWindow))
	}

	return overview, nil
}

func (u *profilerUsecase) RecentProfiles(ctx context.Context, limit int) ([]*entity.ProfileArchive, error) {
	return u.archiveRepo.FindRecent(ctx, limit)
}

// statusFor derives the operator-facing status from the live rollup: any
// slow query degrades, a slow share of 25% or more is critical.
func statusFor(stats entity.ProfilerStats) string {
	switch {
	case stats.SlowQueries == 0:
		return entity.StatusGood
	case stats.SlowQueries*4 >= stats.TotalQueries:
		return entity.StatusCritical
	default:
		return entity.StatusDegraded
	}
}
