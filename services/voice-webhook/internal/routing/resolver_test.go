package routing

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeStore struct {
	mappings      map[string]string
	mostRecent    string
	mostRecentErr error
}

func (f *fakeStore) FindActiveMapping(_ context.Context, phone string) (string, error) {
	if id, ok := f.mappings[phone]; ok {
		return id, nil
	}
	return "", pgx.ErrNoRows
}

func (f *fakeStore) MostRecentBusinessID(context.Context) (string, error) {
	if f.mostRecentErr != nil {
		return "", f.mostRecentErr
	}
	return f.mostRecent, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestResolve_NormalizedMapping(t *testing.T) {
	store := &fakeStore{mappings: map[string]string{"+15551234567": "biz-1"}}
	r := NewResolver(store, Config{Unresolved: PolicyReject}, testLogger())

	id, err := r.Resolve(context.Background(), "(555) 123-4567")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "biz-1" {
		t.Fatalf("expected biz-1, got %s", id)
	}
}

func TestResolve_RawFallback(t *testing.T) {
	// Mapping stored without the +1 prefix; only the raw lookup matches.
	store := &fakeStore{mappings: map[string]string{"5551234567": "biz-2"}}
	r := NewResolver(store, Config{Unresolved: PolicyReject}, testLogger())

	id, err := r.Resolve(context.Background(), "5551234567")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "biz-2" {
		t.Fatalf("expected biz-2, got %s", id)
	}
}

func TestResolve_DemoNumber(t *testing.T) {
	store := &fakeStore{mappings: map[string]string{}}
	cfg := Config{
		DemoDigits:     "5559990000",
		DemoBusinessID: "demo-biz",
		Unresolved:     PolicyReject,
	}
	r := NewResolver(store, cfg, testLogger())

	for _, raw := range []string{"5559990000", "+15559990000", "15559990000"} {
		id, err := r.Resolve(context.Background(), raw)
		if err != nil {
			t.Fatalf("resolve(%q): %v", raw, err)
		}
		if id != "demo-biz" {
			t.Fatalf("resolve(%q) = %s, want demo-biz", raw, id)
		}
	}
}

func TestResolve_RejectPolicy(t *testing.T) {
	store := &fakeStore{mappings: map[string]string{}}
	r := NewResolver(store, Config{Unresolved: PolicyReject}, testLogger())

	_, err := r.Resolve(context.Background(), "5550000000")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}

func TestResolve_StaticPolicy(t *testing.T) {
	store := &fakeStore{mappings: map[string]string{}}
	r := NewResolver(store, Config{Unresolved: PolicyStatic, FallbackBusinessID: "biz-static"}, testLogger())

	id, err := r.Resolve(context.Background(), "5550000000")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "biz-static" {
		t.Fatalf("expected biz-static, got %s", id)
	}
}

func TestResolve_MostRecentPolicy(t *testing.T) {
	store := &fakeStore{mappings: map[string]string{}, mostRecent: "biz-latest"}
	r := NewResolver(store, Config{Unresolved: PolicyMostRecent}, testLogger())

	id, err := r.Resolve(context.Background(), "5550000000")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "biz-latest" {
		t.Fatalf("expected biz-latest, got %s", id)
	}
}

func TestResolve_MostRecentQueryError_AbsoluteFallback(t *testing.T) {
	store := &fakeStore{mappings: map[string]string{}, mostRecentErr: errors.New("db down")}
	cfg := Config{
		DemoDigits:     "5559990000",
		DemoBusinessID: "demo-biz",
		Unresolved:     PolicyMostRecent,
	}
	r := NewResolver(store, cfg, testLogger())

	id, err := r.Resolve(context.Background(), "5550000000")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "demo-biz" {
		t.Fatalf("expected demo-biz, got %s", id)
	}
}

func TestParsePolicy(t *testing.T) {
	if _, err := ParsePolicy("bogus"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
	p, err := ParsePolicy("")
	if err != nil || p != PolicyMostRecent {
		t.Fatalf("empty policy should default to most_recent, got %v/%v", p, err)
	}
}
