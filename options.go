package dataio

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mxm-platform/dataio/adapter"
	"github.com/mxm-platform/dataio/cache"
	"github.com/mxm-platform/dataio/config"
	"github.com/mxm-platform/dataio/domain"
	"github.com/mxm-platform/dataio/registry"
)

type options struct {
	mode     domain.CacheMode
	ttl      *int64
	bucket   string
	tag      string
	asOf     string
	cache    cache.Cache
	registry *registry.Registry
	adapter  adapter.Adapter
	clock    func() time.Time
	logger   *zerolog.Logger
}

// Option configures a session at Open time. The caching context set here
// applies to every request the session creates.
type Option func(*options)

// WithCacheMode sets the session's cache mode.
func WithCacheMode(mode domain.CacheMode) Option {
	return func(o *options) { o.mode = mode }
}

// WithTTL sets the freshness window in seconds for cached responses.
func WithTTL(seconds int64) Option {
	return func(o *options) { o.ttl = &seconds }
}

// WithBucket sets the as-of bucket partition key.
func WithBucket(bucket string) Option {
	return func(o *options) { o.bucket = bucket }
}

// WithTag sets the cache tag partition key.
func WithTag(tag string) Option {
	return func(o *options) { o.tag = tag }
}

// WithAsOf sets the session's as-of marker.
func WithAsOf(asOf string) Option {
	return func(o *options) { o.asOf = asOf }
}

// WithCache installs an ephemeral cache checked before the archival store
// and written through after successful fetches.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithRegistry resolves the adapter from the given registry instead of the
// default one.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithAdapter binds an adapter directly, skipping registry resolution.
func WithAdapter(a adapter.Adapter) Option {
	return func(o *options) { o.adapter = a }
}

// WithClock overrides the session's time source.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the session logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithDefaults applies the configured default cache mode and TTL. Explicit
// WithCacheMode/WithTTL options given after this one still win.
func WithDefaults(cfg *config.Config) Option {
	return func(o *options) {
		o.mode = cfg.DefaultCacheMode
		o.ttl = cfg.DefaultTTLSeconds
	}
}

// WithUseCache is a deprecated shim: true maps to the default mode, false
// to bypass.
//
// Deprecated: use WithCacheMode.
func WithUseCache(use bool) Option {
	return func(o *options) {
		if use {
			o.mode = domain.CacheModeDefault
		} else {
			o.mode = domain.CacheModeBypass
		}
	}
}

// RequestOption configures one request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	method domain.Method
	body   map[string]any
}

// WithMethod sets the request method. Defaults to GET.
func WithMethod(m domain.Method) RequestOption {
	return func(o *requestOptions) { o.method = m }
}

// WithBody attaches a body mapping to the request.
func WithBody(body map[string]any) RequestOption {
	return func(o *requestOptions) { o.body = body }
}
