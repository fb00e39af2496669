package middleware

import (
	errwrap "github.com/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rahmatrdn/go-query-profiler/internal/profiler"
	"github.com/rahmatrdn/go-query-profiler/internal/usecase"
)

// RequestIDKey is the fiber locals key the middleware stores the profiling
// request id under.
const RequestIDKey = "profiler_request_id"

// RequestProfiler opens a query profile for every request and finishes it
// when the handler returns. The id is available to handlers via locals and
// to the data-access layer via the user context. Profiling faults never
// affect the response.
func RequestProfiler(profilerUsecase usecase.ProfilerUsecase, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := profilerUsecase.Begin()
		c.Locals(RequestIDKey, requestID)
		c.SetUserContext(profiler.ContextWithRequestID(c.UserContext(), requestID))

		err := c.Next()

		finishProfile(c, profilerUsecase, requestID, log)
		return err
	}
}

func finishProfile(c *fiber.Ctx, profilerUsecase usecase.ProfilerUsecase, requestID string, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("profiler finish failed", zap.Any("panic", r), zap.String("request_id", requestID))
		}
	}()

	_, _, err := profilerUsecase.FinishRequest(c.UserContext(), requestID)
	if err != nil && !errwrap.Is(err, profiler.ErrProfileNotFound) {
		log.Error("finish request profile", zap.Error(err), zap.String("request_id", requestID))
	}
}

// RequestID returns the profiling id the middleware assigned to this
// request, or empty when the middleware is not installed.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDKey).(string)
	return id
}
