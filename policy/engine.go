// Package policy decides, per request, whether to reuse a cached response,
// fetch and persist, fetch ephemerally, or fail.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mxm-platform/dataio/domain"
)

// ErrCacheMiss is the sentinel wrapped by CacheMissError.
var ErrCacheMiss = errors.New("cache miss")

// CacheMissError reports an only_if_cached request with no fresh cached
// entry. It is fatal to the request, not to the session.
type CacheMissError struct {
	Hash   string
	Bucket string
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("cache miss for request hash=%s bucket=%q", e.Hash, e.Bucket)
}

func (e *CacheMissError) Unwrap() error { return ErrCacheMiss }

// Outcome is what the engine decided to do with a request.
type Outcome string

const (
	// OutcomeUseCached returns the stored response unchanged.
	OutcomeUseCached Outcome = "use_cached"
	// OutcomeFetchPersist invokes the adapter and persists the result.
	OutcomeFetchPersist Outcome = "fetch_persist"
	// OutcomeFetchEphemeral invokes the adapter and persists nothing.
	OutcomeFetchEphemeral Outcome = "fetch_ephemeral"
)

// Decision is the engine's verdict for one request. Cached is set only for
// OutcomeUseCached.
type Decision struct {
	Outcome Outcome
	Cached  *domain.Response
}

// Lookup is the slice of the metadata store the engine consults. Lookups are
// scoped by fingerprint and bucket; bucket and tag are already encoded into
// the fingerprint, the bucket column is the direct reconstruction path.
type Lookup interface {
	CachedResponseInBucket(ctx context.Context, hash, bucket string) (*domain.Response, error)
}

// Engine resolves cache policy for requests against a metadata store.
type Engine struct {
	lookup Lookup
}

// NewEngine creates a policy engine backed by the given lookup.
func NewEngine(lookup Lookup) *Engine {
	return &Engine{lookup: lookup}
}

// Decide resolves the cache policy for req at the given time.
//
// The switch is exhaustive over CacheMode. Revalidate has no conditional
// protocol yet and is deliberately indistinguishable from bypass.
func (e *Engine) Decide(ctx context.Context, req *domain.Request, now time.Time) (Decision, error) {
	switch req.CacheMode {
	case domain.CacheModeNever:
		return Decision{Outcome: OutcomeFetchEphemeral}, nil

	case domain.CacheModeBypass, domain.CacheModeRevalidate:
		return Decision{Outcome: OutcomeFetchPersist}, nil

	case domain.CacheModeDefault:
		cached, err := e.freshCached(ctx, req, now)
		if err != nil {
			return Decision{}, err
		}
		if cached != nil {
			return Decision{Outcome: OutcomeUseCached, Cached: cached}, nil
		}
		return Decision{Outcome: OutcomeFetchPersist}, nil

	case domain.CacheModeOnlyIfCached:
		cached, err := e.freshCached(ctx, req, now)
		if err != nil {
			return Decision{}, err
		}
		if cached != nil {
			return Decision{Outcome: OutcomeUseCached, Cached: cached}, nil
		}
		return Decision{}, &CacheMissError{Hash: req.Hash, Bucket: req.AsOfBucket}

	default:
		return Decision{}, fmt.Errorf("unknown cache mode %q", req.CacheMode)
	}
}

// freshCached returns the most recent fresh response for the request's
// fingerprint and bucket, or nil on a miss.
func (e *Engine) freshCached(ctx context.Context, req *domain.Request, now time.Time) (*domain.Response, error) {
	cached, err := e.lookup.CachedResponseInBucket(ctx, req.Hash, req.AsOfBucket)
	if err != nil {
		CacheErrors.WithLabelValues("lookup").Inc()
		return nil, fmt.Errorf("cache lookup for hash=%s: %w", req.Hash, err)
	}
	if cached == nil || !Fresh(cached, req.TTLSeconds, now) {
		CacheMisses.Inc()
		return nil, nil
	}
	CacheHits.Inc()
	return cached, nil
}

// Fresh reports whether a cached response is still usable under the given
// TTL at now. An absent TTL means cached forever. Age exactly equal to the
// TTL counts as expired.
func Fresh(resp *domain.Response, ttlSeconds *int64, now time.Time) bool {
	if ttlSeconds == nil {
		return true
	}
	age := now.UTC().Sub(resp.FetchedAt)
	return age < time.Duration(*ttlSeconds)*time.Second
}
