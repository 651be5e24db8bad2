package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mxm-platform/dataio/domain"
)

// fakeLookup serves canned responses keyed by hash+bucket.
type fakeLookup struct {
	responses map[string]*domain.Response
	err       error
	calls     int
}

func (f *fakeLookup) CachedResponseInBucket(_ context.Context, hash, bucket string) (*domain.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[hash+"|"+bucket], nil
}

func newTestRequest(t *testing.T, cc domain.CacheContext) *domain.Request {
	t.Helper()
	req, err := domain.NewRequest("sess", "quotes", domain.MethodGet, map[string]any{"id": 1}, nil, cc)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	return req
}

func cachedAt(req *domain.Request, fetchedAt time.Time) map[string]*domain.Response {
	return map[string]*domain.Response{
		req.Hash + "|" + req.AsOfBucket: {
			ID:        "resp",
			RequestID: "orig",
			Status:    domain.ResponseStatusOK,
			Checksum:  "abc",
			FetchedAt: fetchedAt,
		},
	}
}

func TestDecideDefaultFreshHit(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ttl := int64(60)
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeDefault, TTLSeconds: &ttl})
	lookup := &fakeLookup{responses: cachedAt(req, now.Add(-59*time.Second))}

	d, err := NewEngine(lookup).Decide(context.Background(), req, now)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Outcome != OutcomeUseCached {
		t.Fatalf("expected use_cached, got %s", d.Outcome)
	}
	if d.Cached == nil || d.Cached.Checksum != "abc" {
		t.Fatalf("cached response missing: %+v", d.Cached)
	}
}

func TestDecideDefaultExpired(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ttl := int64(60)
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeDefault, TTLSeconds: &ttl})
	lookup := &fakeLookup{responses: cachedAt(req, now.Add(-61*time.Second))}

	d, err := NewEngine(lookup).Decide(context.Background(), req, now)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Outcome != OutcomeFetchPersist {
		t.Fatalf("expected fetch_persist for stale entry, got %s", d.Outcome)
	}
}

func TestDecideTTLBoundaryIsExpired(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ttl := int64(60)
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeDefault, TTLSeconds: &ttl})
	lookup := &fakeLookup{responses: cachedAt(req, now.Add(-60*time.Second))}

	d, err := NewEngine(lookup).Decide(context.Background(), req, now)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Outcome != OutcomeFetchPersist {
		t.Fatalf("age equal to TTL must count as expired, got %s", d.Outcome)
	}
}

func TestDecideNoTTLMeansForeverFresh(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeDefault})
	lookup := &fakeLookup{responses: cachedAt(req, now.Add(-365*24*time.Hour))}

	d, err := NewEngine(lookup).Decide(context.Background(), req, now)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Outcome != OutcomeUseCached {
		t.Fatalf("expected year-old entry to stay fresh without TTL, got %s", d.Outcome)
	}
}

func TestDecideOnlyIfCachedMiss(t *testing.T) {
	now := time.Now().UTC()
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeOnlyIfCached, Bucket: "2026-08"})
	lookup := &fakeLookup{}

	_, err := NewEngine(lookup).Decide(context.Background(), req, now)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
	var miss *CacheMissError
	if !errors.As(err, &miss) {
		t.Fatalf("expected CacheMissError, got %T", err)
	}
	if miss.Hash != req.Hash || miss.Bucket != "2026-08" {
		t.Fatalf("miss error lacks context: %+v", miss)
	}
}

func TestDecideOnlyIfCachedStaleMiss(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ttl := int64(60)
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeOnlyIfCached, TTLSeconds: &ttl})
	lookup := &fakeLookup{responses: cachedAt(req, now.Add(-2*time.Hour))}

	_, err := NewEngine(lookup).Decide(context.Background(), req, now)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("stale entry must miss under only_if_cached, got %v", err)
	}
}

func TestDecideBypassSkipsLookup(t *testing.T) {
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeBypass})
	lookup := &fakeLookup{responses: cachedAt(req, time.Now().UTC())}

	d, err := NewEngine(lookup).Decide(context.Background(), req, time.Now().UTC())
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Outcome != OutcomeFetchPersist {
		t.Fatalf("expected fetch_persist, got %s", d.Outcome)
	}
	if lookup.calls != 0 {
		t.Fatalf("bypass must not consult the store, got %d lookups", lookup.calls)
	}
}

func TestDecideRevalidateSameAsBypass(t *testing.T) {
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeRevalidate})
	lookup := &fakeLookup{responses: cachedAt(req, time.Now().UTC())}

	d, err := NewEngine(lookup).Decide(context.Background(), req, time.Now().UTC())
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Outcome != OutcomeFetchPersist {
		t.Fatalf("expected fetch_persist, got %s", d.Outcome)
	}
	if lookup.calls != 0 {
		t.Fatalf("revalidate must not consult the store, got %d lookups", lookup.calls)
	}
}

func TestDecideNeverIsEphemeral(t *testing.T) {
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeNever})
	lookup := &fakeLookup{}

	d, err := NewEngine(lookup).Decide(context.Background(), req, time.Now().UTC())
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Outcome != OutcomeFetchEphemeral {
		t.Fatalf("expected fetch_ephemeral, got %s", d.Outcome)
	}
	if lookup.calls != 0 {
		t.Fatalf("never must not consult the store, got %d lookups", lookup.calls)
	}
}

func TestDecideUnknownMode(t *testing.T) {
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeDefault})
	req.CacheMode = "turbo"

	if _, err := NewEngine(&fakeLookup{}).Decide(context.Background(), req, time.Now().UTC()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestDecideLookupErrorPropagates(t *testing.T) {
	req := newTestRequest(t, domain.CacheContext{Mode: domain.CacheModeDefault})
	sentinel := errors.New("db locked")
	lookup := &fakeLookup{err: sentinel}

	_, err := NewEngine(lookup).Decide(context.Background(), req, time.Now().UTC())
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected lookup error to propagate, got %v", err)
	}
}

func TestFresh(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ttl := int64(60)
	resp := &domain.Response{FetchedAt: now.Add(-30 * time.Second)}

	if !Fresh(resp, nil, now) {
		t.Fatal("nil TTL must mean forever fresh")
	}
	if !Fresh(resp, &ttl, now) {
		t.Fatal("entry within TTL must be fresh")
	}
	resp.FetchedAt = now.Add(-60 * time.Second)
	if Fresh(resp, &ttl, now) {
		t.Fatal("age equal to TTL must be expired")
	}
}
