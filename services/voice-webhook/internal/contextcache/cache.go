package contextcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/model"
)

// Context is the cached per-tenant bundle the webhook needs on every call:
// the business row plus its active services, active staff, and opening hours.
// It is a read-through performance cache, never a source of truth.
type Context struct {
	Business model.Business        `json:"business"`
	Services []model.Service       `json:"services"`
	Staff    []model.Staff         `json:"staff"`
	Hours    []model.BusinessHours `json:"hours"`
}

// Fetcher loads a tenant bundle from the store.
type Fetcher interface {
	FetchBusinessContext(ctx context.Context, businessID string) (Context, error)
}

// Cache stores tenant bundles with a TTL owned by the implementation.
type Cache interface {
	Get(ctx context.Context, businessID string) (Context, bool)
	Set(ctx context.Context, businessID string, bc Context)
	Invalidate(ctx context.Context, businessID string)
}

const DefaultTTL = 5 * time.Minute

// Loader is the read-through front: cache hit wins, a miss fetches and
// repopulates. Concurrent misses for the same key may both fetch and both
// write; last write wins with equivalent data, which is fine.
type Loader struct {
	cache   Cache
	fetcher Fetcher
	logger  *slog.Logger
}

func NewLoader(cache Cache, fetcher Fetcher, logger *slog.Logger) *Loader {
	return &Loader{cache: cache, fetcher: fetcher, logger: logger}
}

// Get returns the tenant bundle, or ok=false when the context is
// unavailable. Callers must not read unavailability as business-not-found;
// that is validated separately against the store.
func (l *Loader) Get(ctx context.Context, businessID string) (Context, bool) {
	if bc, ok := l.cache.Get(ctx, businessID); ok {
		return bc, true
	}

	bc, err := l.fetcher.FetchBusinessContext(ctx, businessID)
	if err != nil {
		l.logger.Warn("business context fetch failed", "business_id", businessID, "err", err)
		return Context{}, false
	}
	l.cache.Set(ctx, businessID, bc)
	return bc, true
}
