package storage

import (
	"context"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/contextcache"
)

// FetchBusinessContext assembles the tenant bundle for the context cache.
// Any failed query fails the whole fetch; the loader treats that as
// "context unavailable" rather than business-not-found.
func (r *Repository) FetchBusinessContext(ctx context.Context, businessID string) (contextcache.Context, error) {
	business, err := r.GetBusiness(ctx, businessID)
	if err != nil {
		return contextcache.Context{}, err
	}
	services, err := r.ListActiveServices(ctx, businessID)
	if err != nil {
		return contextcache.Context{}, err
	}
	staff, err := r.ListActiveStaff(ctx, businessID)
	if err != nil {
		return contextcache.Context{}, err
	}
	hours, err := r.ListBusinessHours(ctx, businessID)
	if err != nil {
		return contextcache.Context{}, err
	}
	return contextcache.Context{
		Business: business,
		Services: services,
		Staff:    staff,
		Hours:    hours,
	}, nil
}
