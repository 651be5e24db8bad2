package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session groups requests from one logical ingestion run.
// It is created open and can only be appended to until it is marked ended.
type Session struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	AsOf      string        `json:"as_of,omitempty"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// NewSession creates an open session for the given source.
func NewSession(source, asOf string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Source:    source,
		AsOf:      asOf,
		Status:    SessionStatusOpen,
		StartedAt: time.Now().UTC(),
	}
}

// End marks the session ended at the given time. Ending is terminal.
func (s *Session) End(at time.Time) {
	at = at.UTC()
	s.Status = SessionStatusEnded
	s.EndedAt = &at
}

// CacheContext carries the caching policy knobs attached to a request.
// None of these influence the request fingerprint except Bucket and Tag,
// which partition the cache.
type CacheContext struct {
	Mode       CacheMode `json:"mode"`
	TTLSeconds *int64    `json:"ttl_seconds,omitempty"`
	Bucket     string    `json:"as_of_bucket,omitempty"`
	Tag        string    `json:"cache_tag,omitempty"`
}

// Request is one logical call. Immutable once created except for status
// transitions (pending -> fulfilled/failed).
type Request struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Kind       string         `json:"kind"`
	Method     Method         `json:"method"`
	Params     map[string]any `json:"params,omitempty"`
	Body       map[string]any `json:"body,omitempty"`
	Hash       string         `json:"hash"`
	CacheMode  CacheMode      `json:"cache_mode"`
	TTLSeconds *int64         `json:"ttl_seconds,omitempty"`
	AsOfBucket string         `json:"as_of_bucket,omitempty"`
	CacheTag   string         `json:"cache_tag,omitempty"`
	Status     RequestStatus  `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewRequest builds a pending request bound to a session and computes its
// fingerprint. The fingerprint covers kind, params, bucket and tag only;
// mode and TTL never contribute.
func NewRequest(sessionID, kind string, method Method, params, body map[string]any, cc CacheContext) (*Request, error) {
	hash, err := Fingerprint(kind, params, cc.Bucket, cc.Tag)
	if err != nil {
		return nil, err
	}
	return &Request{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Kind:       kind,
		Method:     method,
		Params:     params,
		Body:       body,
		Hash:       hash,
		CacheMode:  cc.Mode,
		TTLSeconds: cc.TTLSeconds,
		AsOfBucket: cc.Bucket,
		CacheTag:   cc.Tag,
		Status:     RequestStatusPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Context returns the caching context the request was created with.
func (r *Request) Context() CacheContext {
	return CacheContext{
		Mode:       r.CacheMode,
		TTLSeconds: r.TTLSeconds,
		Bucket:     r.AsOfBucket,
		Tag:        r.CacheTag,
	}
}

// Response is the recorded outcome of a request. Never mutated after
// creation; multiple responses may exist per fingerprint over time.
// The caching context of the originating request is mirrored so each row
// is self-contained for audit.
type Response struct {
	ID              string            `json:"id"`
	RequestID       string            `json:"request_id"`
	Status          ResponseStatus    `json:"status"`
	TransportStatus int               `json:"transport_status,omitempty"`
	Checksum        string            `json:"checksum,omitempty"`
	Path            string            `json:"path,omitempty"`
	ContentType     string            `json:"content_type,omitempty"`
	Encoding        string            `json:"encoding,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	ElapsedMS       int64             `json:"elapsed_ms,omitempty"`
	Meta            map[string]any    `json:"meta,omitempty"`
	CacheMode       CacheMode         `json:"cache_mode"`
	TTLSeconds      *int64            `json:"ttl_seconds,omitempty"`
	AsOfBucket      string            `json:"as_of_bucket,omitempty"`
	CacheTag        string            `json:"cache_tag,omitempty"`
	FetchedAt       time.Time         `json:"fetched_at"`
}

// NewResponse builds a response for a request from an adapter result,
// mirroring the request's caching context. Checksum and Path are filled in
// by the persistence layer; ephemeral responses keep them synthetic.
func NewResponse(req *Request, status ResponseStatus, result *AdapterResult, fetchedAt time.Time) *Response {
	resp := &Response{
		ID:         uuid.NewString(),
		RequestID:  req.ID,
		Status:     status,
		CacheMode:  req.CacheMode,
		TTLSeconds: req.TTLSeconds,
		AsOfBucket: req.AsOfBucket,
		CacheTag:   req.CacheTag,
		FetchedAt:  fetchedAt.UTC(),
	}
	if result != nil {
		resp.TransportStatus = result.TransportStatus
		resp.ContentType = result.ContentType
		resp.Encoding = result.Encoding
		resp.Headers = result.Headers
		resp.ElapsedMS = result.ElapsedMS
		resp.Meta = result.Meta
	}
	return resp
}
