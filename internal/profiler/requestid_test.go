package profiler

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequestIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^req_\d+_[a-z0-9]+$`)

	id := GenerateRequestID()
	assert.True(t, pattern.MatchString(id), "unexpected id format: %s", id)
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := GenerateRequestID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id: %s", id)
		seen[id] = struct{}{}
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req_1_abc")

	id, ok := RequestIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "req_1_abc", id)
}

func TestRequestIDFromContextMissing(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)
}
