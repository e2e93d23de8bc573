package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter/v2"

	"github.com/i474232898/harvest-advisor/internal/harvest"
)

// DefaultTTL bounds how long an untouched session survives.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is the state of one submission: request, series, score and rendered
// panel. It is never shared between submissions.
type Session struct {
	ID        string              `json:"id"`
	Request   harvest.PlanRequest `json:"request"`
	Result    *harvest.PlanResult `json:"result"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Registry keeps sessions in memory and expires them a fixed time after creation.
type Registry struct {
	cache  *otter.Cache[string, *Session]
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry builds a registry holding at most maxSize sessions.
func NewRegistry(ttl time.Duration, maxSize int, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = 1_000
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache := otter.Must(&otter.Options[string, *Session]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryWriting[string, *Session](ttl),
	})
	return &Registry{
		cache:  cache,
		logger: logger.With("component", "session.registry"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new session for the given submission and returns it.
func (r *Registry) Create(req harvest.PlanRequest, res *harvest.PlanResult) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Request:   req,
		Result:    res,
		CreatedAt: r.now(),
	}
	r.cache.Set(s.ID, s)
	r.logger.Debug("session created", "id", s.ID)
	return s
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.cache.GetIfPresent(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete discards a session. Deleting an unknown id reports ErrNotFound.
func (r *Registry) Delete(id string) error {
	if _, ok := r.cache.GetIfPresent(id); !ok {
		return ErrNotFound
	}
	r.cache.Invalidate(id)
	r.logger.Debug("session discarded", "id", id)
	return nil
}

// Len reports the approximate number of live sessions.
func (r *Registry) Len() int {
	return r.cache.EstimatedSize()
}
