package profiler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID returns a process-unique id in the form
// req_<unix-ms>_<suffix>. The suffix comes from a UUID, so collisions across
// concurrent requests in the same millisecond are not a practical concern.
func GenerateRequestID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), suffix)
}

type requestIDKey struct{}

// ContextWithRequestID stores the profiling request id for downstream
// data-access instrumentation.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext reports the profiling request id carried by ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
