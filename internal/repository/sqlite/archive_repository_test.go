package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rahmatrdn/go-query-profiler/entity"
)

func newTestRepo(t *testing.T) *ProfileArchive {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entity.ProfileArchive{}))

	t.Cleanup(func() {
		db.Exec("DELETE FROM profile_archives")
	})

	return NewProfileArchiveRepository(db)
}

func archiveFixture(i int, n1 bool) *entity.ProfileArchive {
	return &entity.ProfileArchive{
		RequestID:       fmt.Sprintf("req_%d_fixture%d", time.Now().UnixNano(), i),
		QueryCount:      i,
		TotalDurationMs: int64(i * 10),
		PotentialN1:     n1,
		StartedAt:       time.Now().Add(-time.Second),
		FinishedAt:      time.Now().Add(time.Duration(i) * time.Millisecond),
	}
}

func TestSaveAndFindRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Save(ctx, archiveFixture(i, false)))
	}

	archives, err := repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, archives, 3)

	// Newest finish first.
	assert.Equal(t, 3, archives[0].QueryCount)
	assert.Equal(t, 1, archives[2].QueryCount)
}

func TestFindRecentHonorsLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Save(ctx, archiveFixture(i, false)))
	}

	archives, err := repo.FindRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, archives, 2)
}

func TestPruneKeepsNewest(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		require.NoError(t, repo.Save(ctx, archiveFixture(i, false)))
	}

	require.NoError(t, repo.Prune(ctx, 3))

	archives, err := repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, archives, 3)
	assert.Equal(t, 6, archives[0].QueryCount)
	assert.Equal(t, 4, archives[2].QueryCount)
}

func TestCountFlaggedN1(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, archiveFixture(1, true)))
	require.NoError(t, repo.Save(ctx, archiveFixture(2, false)))
	require.NoError(t, repo.Save(ctx, archiveFixture(3, true)))

	count, err := repo.CountFlaggedN1(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepoRespectsCanceledContext(t *testing.T) {
	repo := newTestRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, archiveFixture(1, false))
	assert.Error(t, err)
}
