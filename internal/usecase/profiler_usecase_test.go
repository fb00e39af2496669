package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rahmatrdn/go-query-profiler/entity"
	"github.com/rahmatrdn/go-query-profiler/internal/profiler"
)

type fakeArchiveRepo struct {
	mu        sync.Mutex
	saved     []*entity.ProfileArchive
	flaggedN1 int64
	savedCh   chan *entity.ProfileArchive
}

func newFakeArchiveRepo() *fakeArchiveRepo {
	return &fakeArchiveRepo{savedCh: make(chan *entity.ProfileArchive, 16)}
}

func (f *fakeArchiveRepo) Save(_ context.Context, archive *entity.ProfileArchive) error {
	f.mu.Lock()
	f.saved = append(f.saved, archive)
	f.mu.Unlock()
	f.savedCh <- archive
	return nil
}

func (f *fakeArchiveRepo) FindRecent(_ context.Context, limit int) ([]*entity.ProfileArchive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.saved) {
		limit = len(f.saved)
	}
	return f.saved[:limit], nil
}

func (f *fakeArchiveRepo) CountFlaggedN1(_ context.Context, _ int) (int64, error) {
	return f.flaggedN1, nil
}

func (f *fakeArchiveRepo) Prune(_ context.Context, _ int) error {
	return nil
}

func newTestUsecase(repo *fakeArchiveRepo) (ProfilerUsecase, *profiler.Store) {
	thresholds := profiler.DefaultThresholds()
	h := profiler.NewHeuristics(thresholds, zap.NewNop(), nil)
	store := profiler.NewStore(h)
	uc := NewProfilerUsecase(
		store, h,
		profiler.NewAnalyzer(thresholds),
		profiler.NewAggregator(store, h),
		repo, 100, nil, zap.NewNop(),
	)
	return uc, store
}

func waitForArchive(t *testing.T, repo *fakeArchiveRepo) *entity.ProfileArchive {
	t.Helper()
	select {
	case a := <-repo.savedCh:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("archive was never saved")
		return nil
	}
}

func TestBeginStartsProfile(t *testing.T) {
	uc, store := newTestUsecase(newFakeArchiveRepo())

	id := uc.Begin()
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, store.ActiveCount())
}

func TestFinishRequestReturnsProfileAndRecommendations(t *testing.T) {
	repo := newFakeArchiveRepo()
	uc, store := newTestUsecase(repo)

	id := uc.Begin()
	for i := 1; i <= 12; i++ {
		store.Record(id, fmt.Sprintf("select * from users where id = $%d", i), 4, nil)
	}

	profile, recommendations, err := uc.FinishRequest(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 12, profile.QueryCount)
	assert.True(t, profile.PotentialN1)
	require.NotEmpty(t, recommendations)
	assert.Contains(t, recommendations[0], "N+1")

	archive := waitForArchive(t, repo)
	assert.Equal(t, id, archive.RequestID)
	assert.True(t, archive.PotentialN1)
	assert.Equal(t, "select * from users where id = $x", archive.TopPattern)
	assert.Equal(t, 12, archive.TopPatternCount)
}

func TestFinishRequestUnknownID(t *testing.T) {
	uc, _ := newTestUsecase(newFakeArchiveRepo())

	_, _, err := uc.FinishRequest(context.Background(), "req_unknown")
	assert.ErrorIs(t, err, profiler.ErrProfileNotFound)
}

func TestOverviewEmptyStore(t *testing.T) {
	uc, _ := newTestUsecase(newFakeArchiveRepo())

	overview, err := uc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.StatusGood, overview.PerformanceStatus)
	assert.Equal(t, 0, overview.TotalQueries)
	assert.Equal(t, 0, overview.ActiveRequests)
	assert.NotNil(t, overview.Recommendations)
	assert.Empty(t, overview.Recommendations)
}

func TestOverviewDegraded(t *testing.T) {
	uc, store := newTestUsecase(newFakeArchiveRepo())

	id := uc.Begin()
	store.Record(id, "select slow", 150, nil)
	store.Record(id, "select a", 10, nil)
	store.Record(id, "select b", 10, nil)
	store.Record(id, "select c", 10, nil)
	store.Record(id, "select d", 10, nil)

	overview, err := uc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.StatusDegraded, overview.PerformanceStatus)
	assert.Equal(t, 1, overview.SlowQueries)
	require.NotEmpty(t, overview.Recommendations)
	assert.Contains(t, overview.Recommendations[0], "slow")
}

func TestOverviewCritical(t *testing.T) {
	uc, store := newTestUsecase(newFakeArchiveRepo())

	id := uc.Begin()
	store.Record(id, "select slow1", 150, nil)
	store.Record(id, "select slow2", 200, nil)
	store.Record(id, "select ok", 10, nil)

	overview, err := uc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.StatusCritical, overview.PerformanceStatus)
}

func TestOverviewIncludesHistoricalN1(t *testing.T) {
	repo := newFakeArchiveRepo()
	repo.flaggedN1 = 3
	uc, _ := newTestUsecase(repo)

	overview, err := uc.Overview(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, overview.Recommendations)
	assert.Contains(t, overview.Recommendations[0], "N+1")
}

func TestStatsPassthrough(t *testing.T) {
	uc, store := newTestUsecase(newFakeArchiveRepo())

	id := uc.Begin()
	store.Record(id, "select 1", 10, nil)

	stats := uc.Stats()
	assert.Equal(t, 1, stats.TotalQueries)
	assert.Equal(t, 1, stats.ActiveRequests)
}
