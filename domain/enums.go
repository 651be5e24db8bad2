// Package domain defines the core domain models for the ingestion audit layer.
package domain

import "fmt"

// CacheMode controls cache usage and persistence for a request.
type CacheMode string

const (
	// CacheModeDefault reuses a fresh cached response, else fetches and persists.
	CacheModeDefault CacheMode = "default"
	// CacheModeOnlyIfCached reuses a fresh cached response, else fails.
	// The adapter is never invoked.
	CacheModeOnlyIfCached CacheMode = "only_if_cached"
	// CacheModeBypass always invokes the adapter and persists the result.
	// Existing cached entries are kept; history stays append-only.
	CacheModeBypass CacheMode = "bypass"
	// CacheModeRevalidate is reserved for conditional re-fetch. Until a
	// conditional protocol exists it behaves exactly like CacheModeBypass.
	CacheModeRevalidate CacheMode = "revalidate"
	// CacheModeNever always invokes the adapter and persists nothing.
	CacheModeNever CacheMode = "never"
)

// ParseCacheMode converts a string into a CacheMode.
func ParseCacheMode(s string) (CacheMode, error) {
	switch CacheMode(s) {
	case CacheModeDefault, CacheModeOnlyIfCached, CacheModeBypass, CacheModeRevalidate, CacheModeNever:
		return CacheMode(s), nil
	default:
		return "", fmt.Errorf("unknown cache mode %q", s)
	}
}

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	SessionStatusOpen  SessionStatus = "open"
	SessionStatusEnded SessionStatus = "ended"
)

// RequestStatus represents the status of a request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusFulfilled RequestStatus = "fulfilled"
	RequestStatusFailed    RequestStatus = "failed"
)

// ResponseStatus represents the recorded outcome of a request.
type ResponseStatus string

const (
	ResponseStatusOK    ResponseStatus = "ok"
	ResponseStatusError ResponseStatus = "error"
)

// Method describes the direction of a logical call.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)
