package profiler

import (
	"sync"
	"time"

	errwrap "github.com/pkg/errors"

	"github.com/rahmatrdn/go-query-profiler/entity"
)

// ErrProfileNotFound is returned by Finish for ids the store has never seen
// or has already finished. Expected and common: double-finish, or a request
// that issued zero queries and never auto-started.
var ErrProfileNotFound = errwrap.New("profile not found")

// activeProfile guards one in-flight profile. Records within a single request
// can arrive from parallel sub-queries, so appends take the per-profile lock.
type activeProfile struct {
	mu      sync.Mutex
	profile entity.Profile
}

// Store is the registry of in-flight profiles, keyed by request id. All
// lifecycle mutations are safe for concurrent use; the map lock is held only
// for lookups and insert/delete, never across appends.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*activeProfile

	heuristics   *Heuristics
	captureStack func() string // nil in production configurations
}

type StoreOption func(*Store)

// WithStackCapture injects a call-site capture used on every Record. Meant
// for non-production diagnostics only.
func WithStackCapture(fn func() string) StoreOption {
	return func(s *Store) {
		s.captureStack = fn
	}
}

func NewStore(heuristics *Heuristics, opts ...StoreOption) *Store {
	s := &Store{
		profiles:   make(map[string]*activeProfile),
		heuristics: heuristics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates an empty profile for requestID. Calling it twice for the
// same id is a no-op.
func (s *Store) Start(requestID string) {
	s.getOrCreate(requestID)
}

func (s *Store) getOrCreate(requestID string) *activeProfile {
	s.mu.RLock()
	ap, ok := s.profiles[requestID]
	s.mu.RUnlock()
	if ok {
		return ap
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ap, ok := s.profiles[requestID]; ok {
		return ap
	}
	ap = &activeProfile{
		profile: entity.Profile{
			RequestID: requestID,
			StartTime: time.Now(),
		},
	}
	s.profiles[requestID] = ap
	return ap
}

// Record normalizes rawQuery and appends a QueryRecord to the profile for
// requestID, auto-starting one if needed. Never fails.
func (s *Store) Record(requestID, rawQuery string, durationMs int64, params []entity.ParamValue) {
	record := entity.QueryRecord{
		Query:      Normalize(rawQuery),
		DurationMs: durationMs,
		Params:     params,
	}
	if s.captureStack != nil {
		record.StackTrace = s.captureStack()
	}

	ap := s.getOrCreate(requestID)
	ap.mu.Lock()
	// Timestamp under the append lock keeps capture times non-decreasing in
	// insertion order even with concurrent writers.
	record.Timestamp = time.Now()
	ap.profile.Queries = append(ap.profile.Queries, record)
	ap.mu.Unlock()

	s.heuristics.OnRecord(requestID, record)
}

// Finish removes the profile for requestID, computes its derived fields and
// runs the finish-time heuristics. Returns ErrProfileNotFound for unknown or
// already-finished ids.
func (s *Store) Finish(requestID string) (*entity.Profile, error) {
	s.mu.Lock()
	ap, ok := s.profiles[requestID]
	if ok {
		delete(s.profiles, requestID)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrProfileNotFound
	}

	ap.mu.Lock()
	profile := ap.profile
	profile.Queries = append([]entity.QueryRecord(nil), ap.profile.Queries...)
	ap.mu.Unlock()

	profile.EndTime = time.Now()
	profile.QueryCount = len(profile.Queries)
	profile.TotalDurationMs = 0
	for _, q := range profile.Queries {
		profile.TotalDurationMs += q.DurationMs
	}

	s.heuristics.OnFinish(&profile)

	return &profile, nil
}

// Clear atomically drops every active profile. Test isolation and
// process-wide resets only; not part of the request lifecycle.
func (s *Store) Clear() {
	s.mu.Lock()
	s.profiles = make(map[string]*activeProfile)
	s.mu.Unlock()
}

// SnapshotAll returns copies of all active profiles. Each profile's query
// slice is copied under its own lock, so a snapshot never observes a torn
// append; Record calls block only for the copy.
func (s *Store) SnapshotAll() []entity.Profile {
	s.mu.RLock()
	active := make([]*activeProfile, 0, len(s.profiles))
	for _, ap := range s.profiles {
		active = append(active, ap)
	}
	s.mu.RUnlock()

	snapshots := make([]entity.Profile, 0, len(active))
	for _, ap := range active {
		ap.mu.Lock()
		p := ap.profile
		p.Queries = append([]entity.QueryRecord(nil), ap.profile.Queries...)
		ap.mu.Unlock()
		p.QueryCount = len(p.Queries)
		for _, q := range p.Queries {
			p.TotalDurationMs += q.DurationMs
		}
		snapshots = append(snapshots, p)
	}
	return snapshots
}

// ActiveCount reports how many profiles are currently in flight.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
