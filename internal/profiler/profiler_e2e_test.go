package profiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rahmatrdn/go-query-profiler/entity"
)

// End-to-end: a request issuing the same lookup with different parameters
// gets flagged, while mixed durations classify independently.
func TestEndToEndN1Detection(t *testing.T) {
	store := newTestStore()

	requestID := GenerateRequestID()
	store.Start(requestID)
	for i := 1; i <= 12; i++ {
		store.Record(requestID,
			fmt.Sprintf("SELECT * FROM users WHERE id = $%d", i), 4,
			[]entity.ParamValue{entity.IntParam(int64(i))})
	}

	profile, err := store.Finish(requestID)
	require.NoError(t, err)

	assert.Equal(t, 12, profile.QueryCount)
	assert.True(t, profile.PotentialN1)
	assert.Equal(t, int64(48), profile.TotalDurationMs)
}

func TestEndToEndSlowClassification(t *testing.T) {
	h := NewHeuristics(Thresholds{SlowQueryMs: 100, N1Threshold: 10, MaxQueriesPerRequest: 50}, zap.NewNop(), nil)
	store := NewStore(h)

	requestID := GenerateRequestID()
	store.Record(requestID, "select * from courses", 150, nil)
	store.Record(requestID, "select * from users where id = $1", 25, nil)

	profile, err := store.Finish(requestID)
	require.NoError(t, err)

	assert.Equal(t, 1, h.SlowCount(profile.Queries))
	assert.False(t, profile.PotentialN1)
}
