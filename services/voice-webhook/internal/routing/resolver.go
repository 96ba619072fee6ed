package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// UnresolvedPolicy controls what happens when no mapping (and no demo
// match) exists for an inbound number. The legacy behavior routed unmapped
// traffic to the most recently created business so a call never drops;
// that silently lands calls on an arbitrary tenant, so it is a named,
// configurable choice here rather than a constant.
type UnresolvedPolicy string

const (
	PolicyReject     UnresolvedPolicy = "reject"
	PolicyStatic     UnresolvedPolicy = "static"
	PolicyMostRecent UnresolvedPolicy = "most_recent"
)

func ParsePolicy(raw string) (UnresolvedPolicy, error) {
	switch UnresolvedPolicy(raw) {
	case PolicyReject, PolicyStatic, PolicyMostRecent:
		return UnresolvedPolicy(raw), nil
	case "":
		return PolicyMostRecent, nil
	default:
		return "", fmt.Errorf("unknown unresolved phone policy %q", raw)
	}
}

// ErrUnresolved is returned under PolicyReject, and by the other policies
// when their fallback cannot produce a business id either.
var ErrUnresolved = errors.New("no business resolved for phone number")

// Store is the subset of the repository the resolver needs.
type Store interface {
	FindActiveMapping(ctx context.Context, phoneNumber string) (string, error)
	MostRecentBusinessID(ctx context.Context) (string, error)
}

type Config struct {
	// DemoDigits/DemoBusinessID keep the legacy demo line working without a
	// mapping row. Empty disables the tier.
	DemoDigits     string
	DemoBusinessID string

	Unresolved UnresolvedPolicy
	// FallbackBusinessID is the PolicyStatic target, and the absolute
	// fallback when PolicyMostRecent's query errors. PolicyMostRecent uses
	// DemoBusinessID for that absolute fallback when this is empty.
	FallbackBusinessID string
}

type Resolver struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

func NewResolver(store Store, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.Unresolved == "" {
		cfg.Unresolved = PolicyMostRecent
	}
	return &Resolver{store: store, cfg: cfg, logger: logger}
}

// Resolve maps an inbound call's phone number to a tenant. Tiers, first
// match wins: normalized E.164 mapping, raw-string mapping (covers rows
// stored without the +1 prefix), demo number, then the unresolved policy.
func (r *Resolver) Resolve(ctx context.Context, rawPhone string) (string, error) {
	normalized := NormalizeE164(rawPhone)
	if normalized != "" {
		if id, err := r.store.FindActiveMapping(ctx, normalized); err == nil {
			return id, nil
		}
	}

	if rawPhone != "" && rawPhone != normalized {
		if id, err := r.store.FindActiveMapping(ctx, rawPhone); err == nil {
			return id, nil
		}
	}

	if r.isDemoNumber(rawPhone) {
		return r.cfg.DemoBusinessID, nil
	}

	switch r.cfg.Unresolved {
	case PolicyReject:
		return "", fmt.Errorf("%w: %q", ErrUnresolved, rawPhone)
	case PolicyStatic:
		if r.cfg.FallbackBusinessID == "" {
			return "", fmt.Errorf("%w: static fallback not configured", ErrUnresolved)
		}
		r.logger.Warn("routing unmapped number to static fallback", "phone", rawPhone, "business_id", r.cfg.FallbackBusinessID)
		return r.cfg.FallbackBusinessID, nil
	default:
		id, err := r.store.MostRecentBusinessID(ctx)
		if err != nil {
			fallback := r.cfg.FallbackBusinessID
			if fallback == "" {
				fallback = r.cfg.DemoBusinessID
			}
			if fallback == "" {
				return "", fmt.Errorf("%w: %q", ErrUnresolved, rawPhone)
			}
			r.logger.Error("most-recent business lookup failed; using absolute fallback", "err", err, "business_id", fallback)
			return fallback, nil
		}
		r.logger.Warn("routing unmapped number to most recent business", "phone", rawPhone, "business_id", id)
		return id, nil
	}
}

func (r *Resolver) isDemoNumber(rawPhone string) bool {
	demo := Digits(r.cfg.DemoDigits)
	if demo == "" || r.cfg.DemoBusinessID == "" {
		return false
	}
	digits := Digits(rawPhone)
	return digits == demo || digits == "1"+demo || "1"+digits == demo
}
