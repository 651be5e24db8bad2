// Package dataio models external data pulls as audited sessions. A Session
// binds to a single adapter, creates deterministic requests, and drives the
// cache policy engine and the archival store to produce persisted responses.
package dataio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mxm-platform/dataio/adapter"
	"github.com/mxm-platform/dataio/cache"
	"github.com/mxm-platform/dataio/domain"
	"github.com/mxm-platform/dataio/policy"
	"github.com/mxm-platform/dataio/registry"
	"github.com/mxm-platform/dataio/store"
)

// Synthetic payload locations for responses that never reach the archive.
const (
	ephemeralPath = "<ephemeral>"
	cachePath     = "<cache>"
)

// Session is a scoped unit of work bound to exactly one adapter for its
// lifetime. Close marks the persisted session ended exactly once, on both
// success and error paths.
type Session struct {
	source  string
	store   *store.Store
	cache   cache.Cache
	engine  *policy.Engine
	adapter adapter.Adapter
	cc      domain.CacheContext
	now     func() time.Time
	log     zerolog.Logger

	// flight collapses concurrent cache-filling fetches per fingerprint.
	flight singleflight.Group

	mu     sync.Mutex
	record *domain.Session
	ended  bool
}

// Open creates and persists a session for the named source. The adapter is
// resolved once, at construction; a source with no registered adapter fails
// fast, and the binding cannot change for the session's lifetime.
func Open(ctx context.Context, st *store.Store, source string, opts ...Option) (*Session, error) {
	o := options{
		mode:  domain.CacheModeDefault,
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}

	adpt := o.adapter
	if adpt == nil {
		reg := o.registry
		if reg == nil {
			reg = registry.Default
		}
		var err error
		adpt, err = reg.Resolve(source)
		if err != nil {
			return nil, err
		}
	}

	logger := zerolog.Nop()
	if o.logger != nil {
		logger = *o.logger
	}

	record := domain.NewSession(source, o.asOf)
	record.StartedAt = o.clock().UTC()
	if err := st.CreateSession(ctx, record); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s := &Session{
		source:  source,
		store:   st,
		cache:   o.cache,
		engine:  policy.NewEngine(st),
		adapter: adpt,
		cc: domain.CacheContext{
			Mode:       o.mode,
			TTLSeconds: o.ttl,
			Bucket:     o.bucket,
			Tag:        o.tag,
		},
		now:    func() time.Time { return o.clock().UTC() },
		log:    logger.With().Str("component", "session").Str("source", source).Logger(),
		record: record,
	}
	s.log.Debug().Str("session_id", record.ID).Str("mode", string(o.mode)).Msg("session opened")
	return s, nil
}

// ID returns the persisted session identifier.
func (s *Session) ID() string {
	return s.record.ID
}

// Close marks the session ended with the current timestamp. It is safe to
// call more than once and on error paths; the end marking happens exactly
// once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil
	}
	s.ended = true
	end := s.now()
	s.record.End(end)
	if err := s.store.MarkSessionEnded(context.Background(), s.record.ID, end); err != nil {
		return fmt.Errorf("mark session ended: %w", err)
	}
	s.log.Debug().Str("session_id", s.record.ID).Msg("session ended")
	return nil
}

// Request creates and persists a pending request bound to this session,
// carrying the session's caching context.
func (s *Session) Request(ctx context.Context, kind string, params map[string]any, opts ...RequestOption) (*domain.Request, error) {
	if s.isEnded() {
		return nil, ErrSessionEnded
	}
	ro := requestOptions{method: domain.MethodGet}
	for _, opt := range opts {
		opt(&ro)
	}
	req, err := domain.NewRequest(s.record.ID, kind, ro.method, params, ro.body, s.cc)
	if err != nil {
		return nil, err
	}
	req.CreatedAt = s.now()
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// Fetch resolves cache policy for the request and returns its response. On
// a hit the stored response is returned unchanged; on a miss the adapter's
// fetch capability runs and the result is persisted unless the mode is
// never.
func (s *Session) Fetch(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	fetcher, ok := s.adapter.(adapter.Fetcher)
	if !ok {
		return nil, fmt.Errorf("adapter %q does not support fetching", s.source)
	}
	return s.resolve(ctx, req, func(ctx context.Context) (*domain.AdapterResult, error) {
		return fetcher.Fetch(ctx, req)
	})
}

// Send performs a write-directed call through the adapter's send
// capability. The persistence path and the caching semantics mirror Fetch:
// the layer does not distinguish transport direction, so identical sends
// deduplicate under identical policy rules.
func (s *Session) Send(ctx context.Context, req *domain.Request, payload []byte) (*domain.Response, error) {
	sender, ok := s.adapter.(adapter.Sender)
	if !ok {
		return nil, fmt.Errorf("adapter %q does not support sending", s.source)
	}
	return s.resolve(ctx, req, func(ctx context.Context) (*domain.AdapterResult, error) {
		return sender.Send(ctx, req, payload)
	})
}

// resolve runs the shared policy -> adapter -> persist path for one request.
func (s *Session) resolve(ctx context.Context, req *domain.Request, call func(context.Context) (*domain.AdapterResult, error)) (*domain.Response, error) {
	if s.isEnded() {
		return nil, ErrSessionEnded
	}

	// Ephemeral cache first, when the mode permits cache reads at all.
	if s.cache != nil && cacheReadable(req.CacheMode) {
		if data, hit, err := s.cache.Get(ctx, req.Hash, req.TTLSeconds); err != nil {
			s.log.Warn().Err(err).Str("hash", req.Hash).Msg("ephemeral cache read failed")
		} else if hit {
			resp := domain.NewResponse(req, domain.ResponseStatusOK, nil, s.now())
			resp.Checksum = digest.FromBytes(data).Encoded()
			resp.Path = cachePath
			s.markRequest(ctx, req, domain.RequestStatusFulfilled)
			return resp, nil
		}
	}

	decision, err := s.engine.Decide(ctx, req, s.now())
	if err != nil {
		if errors.Is(err, policy.ErrCacheMiss) {
			s.markRequest(ctx, req, domain.RequestStatusFailed)
		}
		return nil, err
	}

	switch decision.Outcome {
	case policy.OutcomeUseCached:
		s.markRequest(ctx, req, domain.RequestStatusFulfilled)
		s.log.Debug().Str("hash", req.Hash).Str("checksum", decision.Cached.Checksum).Msg("cache hit")
		return decision.Cached, nil

	case policy.OutcomeFetchEphemeral:
		return s.invoke(ctx, req, false, call)

	case policy.OutcomeFetchPersist:
		// Collapse concurrent identical cache-filling fetches into one
		// adapter invocation; latecomers share the winner's response but
		// keep their own request rows, so their status transitions are
		// recorded here rather than inside the shared call.
		v, err, shared := s.flight.Do(req.Hash, func() (any, error) {
			return s.invoke(ctx, req, true, call)
		})
		if err != nil {
			if shared {
				s.markRequest(ctx, req, domain.RequestStatusFailed)
			}
			return nil, err
		}
		resp := v.(*domain.Response)
		if shared && resp.RequestID != req.ID {
			s.markRequest(ctx, req, domain.RequestStatusFulfilled)
		}
		return resp, nil

	default:
		return nil, fmt.Errorf("unknown policy outcome %q", decision.Outcome)
	}
}

// invoke calls the adapter and turns its result into a Response. With
// persist set, payload bytes, sidecar and the response row are written to
// the archival store; otherwise the response only lives in memory.
func (s *Session) invoke(ctx context.Context, req *domain.Request, persist bool, call func(context.Context) (*domain.AdapterResult, error)) (*domain.Response, error) {
	result, err := call(ctx)
	if err != nil {
		s.markRequest(ctx, req, domain.RequestStatusFailed)
		if persist {
			// Record the failed attempt so audit history stays complete.
			failed := domain.NewResponse(req, domain.ResponseStatusError, nil, s.now())
			if perr := s.store.CreateResponse(ctx, failed); perr != nil {
				s.log.Warn().Err(perr).Str("hash", req.Hash).Msg("recording failed response")
			}
		}
		return nil, &AdapterError{Source: s.source, Kind: req.Kind, Hash: req.Hash, Err: err}
	}

	if persist && s.cache != nil {
		// Write-through is best effort; the archive stays canonical.
		if err := s.cache.Put(ctx, req.Hash, result.Data); err != nil {
			s.log.Warn().Err(err).Str("hash", req.Hash).Msg("ephemeral cache write failed")
		}
	}

	resp := domain.NewResponse(req, domain.ResponseStatusOK, result, s.now())

	if !persist {
		resp.Path = ephemeralPath
		s.markRequest(ctx, req, domain.RequestStatusFulfilled)
		return resp, nil
	}

	checksum, path, err := s.store.WritePayload(result.Data)
	if err != nil {
		s.markRequest(ctx, req, domain.RequestStatusFailed)
		return nil, err
	}
	if meta := result.SidecarMeta(); len(meta) > 0 {
		if _, err := s.store.WriteSidecar(checksum, meta); err != nil {
			s.markRequest(ctx, req, domain.RequestStatusFailed)
			return nil, err
		}
	}
	resp.Checksum = checksum
	resp.Path = path
	if err := s.store.CreateResponse(ctx, resp); err != nil {
		s.markRequest(ctx, req, domain.RequestStatusFailed)
		return nil, fmt.Errorf("persist response: %w", err)
	}
	s.markRequest(ctx, req, domain.RequestStatusFulfilled)
	s.log.Debug().Str("hash", req.Hash).Str("checksum", checksum).Msg("response persisted")
	return resp, nil
}

// markRequest records a request status transition. Failures here must not
// mask the operation's own result; they are logged and dropped.
func (s *Session) markRequest(ctx context.Context, req *domain.Request, status domain.RequestStatus) {
	req.Status = status
	if err := s.store.UpdateRequestStatus(ctx, req.ID, status); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID).Msg("updating request status")
	}
}

// cacheReadable reports whether a mode permits serving from the ephemeral
// cache. Bypass and revalidate force an adapter call; never avoids caches
// entirely.
func cacheReadable(mode domain.CacheMode) bool {
	switch mode {
	case domain.CacheModeBypass, domain.CacheModeRevalidate, domain.CacheModeNever:
		return false
	}
	return true
}

func (s *Session) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}
