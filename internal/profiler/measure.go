package profiler

import (
	"time"

	"go.uber.org/zap"

	"github.com/rahmatrdn/go-query-profiler/entity"
)

// Measurer times query-executing operations and records them into the store.
// It is purely additive instrumentation: a failure inside the profiler never
// reaches the caller, and the wrapped operation's error passes through
// unchanged.
type Measurer struct {
	store *Store
	log   *zap.Logger
}

func NewMeasurer(store *Store, log *zap.Logger) *Measurer {
	return &Measurer{store: store, log: log}
}

// Measure invokes op, recording its duration under description whether it
// succeeds or fails. On failure the description gets an " [error]" marker
// appended before normalization (so it lands lowercased in the recorded
// text) and the original error is returned unchanged. Failed queries still
// count toward timing statistics.
func (m *Measurer) Measure(requestID, description string, op func() error, params ...entity.ParamValue) error {
	start := time.Now()
	err := op()
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		description += " [error]"
	}
	m.record(requestID, description, durationMs, params)

	return err
}

// MeasureValue is Measure for operations that also return a value.
func (m *Measurer) MeasureValue(requestID, description string, op func() (interface{}, error), params ...entity.ParamValue) (interface{}, error) {
	var result interface{}
	err := m.Measure(requestID, description, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, params...)
	return result, err
}

// record shields callers from any fault inside the profiler itself; a broken
// recording degrades to a logged no-op, never an aborted request.
func (m *Measurer) record(requestID, description string, durationMs int64, params []entity.ParamValue) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("profiler record failed", zap.Any("panic", r), zap.String("request_id", requestID))
		}
	}()
	m.store.Record(requestID, description, durationMs, params)
}
