package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mxm-platform/dataio/domain"
)

// migrate runs database migrations.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			as_of TEXT,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_source ON sessions(source, started_at)`,
		`CREATE TABLE IF NOT EXISTS requests (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			method TEXT NOT NULL,
			params TEXT,
			body TEXT,
			hash TEXT NOT NULL,
			cache_mode TEXT NOT NULL,
			ttl_seconds INTEGER,
			as_of_bucket TEXT,
			cache_tag TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_hash ON requests(hash)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_session ON requests(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS responses (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			status TEXT NOT NULL,
			transport_status INTEGER,
			checksum TEXT,
			path TEXT,
			content_type TEXT,
			encoding TEXT,
			headers TEXT,
			elapsed_ms INTEGER,
			meta TEXT,
			cache_mode TEXT,
			ttl_seconds INTEGER,
			as_of_bucket TEXT,
			cache_tag TEXT,
			fetched_at DATETIME NOT NULL,
			FOREIGN KEY (request_id) REFERENCES requests(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_request ON responses(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_created ON responses(fetched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_checksum ON responses(checksum)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// CreateSession inserts a session row. Re-inserting the same id is a no-op.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, source, as_of, status, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.Source, nullString(session.AsOf), session.Status,
		session.StartedAt.UTC(), nullTime(session.EndedAt))
	return err
}

// MarkSessionEnded records the terminal transition for a session.
func (s *Store) MarkSessionEnded(ctx context.Context, id string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ? WHERE id = ?`,
		domain.SessionStatusEnded, endedAt.UTC(), id)
	return err
}

// CreateRequest inserts a request row. Re-inserting the same id is a no-op.
func (s *Store) CreateRequest(ctx context.Context, req *domain.Request) error {
	params, err := marshalJSONMap(req.Params)
	if err != nil {
		return fmt.Errorf("marshal request params: %w", err)
	}
	body, err := marshalJSONMap(req.Body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO requests
		 (id, session_id, kind, method, params, body, hash, cache_mode, ttl_seconds, as_of_bucket, cache_tag, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.SessionID, req.Kind, req.Method, params, body, req.Hash,
		req.CacheMode, nullInt64(req.TTLSeconds), nullString(req.AsOfBucket),
		nullString(req.CacheTag), req.Status, req.CreatedAt.UTC())
	return err
}

// UpdateRequestStatus records a pending -> fulfilled/failed transition.
func (s *Store) UpdateRequestStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE requests SET status = ? WHERE id = ?`, status, id)
	return err
}

// CreateResponse appends a response row. Responses are never updated.
func (s *Store) CreateResponse(ctx context.Context, resp *domain.Response) error {
	headers, err := marshalJSONStringMap(resp.Headers)
	if err != nil {
		return fmt.Errorf("marshal response headers: %w", err)
	}
	meta, err := marshalJSONMap(resp.Meta)
	if err != nil {
		return fmt.Errorf("marshal response meta: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO responses
		 (id, request_id, status, transport_status, checksum, path, content_type, encoding, headers, elapsed_ms, meta, cache_mode, ttl_seconds, as_of_bucket, cache_tag, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resp.ID, resp.RequestID, resp.Status, resp.TransportStatus,
		nullString(resp.Checksum), nullString(resp.Path), nullString(resp.ContentType),
		nullString(resp.Encoding), headers, resp.ElapsedMS, meta, resp.CacheMode,
		nullInt64(resp.TTLSeconds), nullString(resp.AsOfBucket), nullString(resp.CacheTag),
		resp.FetchedAt.UTC())
	return err
}

const responseColumns = `r.id, r.request_id, r.status, r.transport_status, r.checksum, r.path,
	r.content_type, r.encoding, r.headers, r.elapsed_ms, r.meta, r.cache_mode,
	r.ttl_seconds, r.as_of_bucket, r.cache_tag, r.fetched_at`

// CachedResponse returns the most recent response recorded for a request
// fingerprint, regardless of bucket, or nil when none exists.
func (s *Store) CachedResponse(ctx context.Context, hash string) (*domain.Response, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+responseColumns+`
		 FROM responses r
		 JOIN requests q ON q.id = r.request_id
		 WHERE q.hash = ?
		 ORDER BY r.fetched_at DESC
		 LIMIT 1`, hash)
	return scanResponse(row)
}

// CachedResponseInBucket returns the most recent ok response for a
// fingerprint within one as-of bucket, or nil when none exists. Error rows
// are audit records, never cache hits. An empty bucket matches responses
// recorded without one.
func (s *Store) CachedResponseInBucket(ctx context.Context, hash, bucket string) (*domain.Response, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+responseColumns+`
		 FROM responses r
		 JOIN requests q ON q.id = r.request_id
		 WHERE q.hash = ? AND r.as_of_bucket IS ? AND r.status = ?
		 ORDER BY r.fetched_at DESC
		 LIMIT 1`, hash, nullString(bucket), domain.ResponseStatusOK)
	return scanResponse(row)
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, as_of, status, started_at, ended_at
		 FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		var asOf sql.NullString
		var endedAt sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Source, &asOf, &sess.Status, &sess.StartedAt, &endedAt); err != nil {
			return nil, err
		}
		if asOf.Valid {
			sess.AsOf = asOf.String
		}
		if endedAt.Valid {
			t := endedAt.Time.UTC()
			sess.EndedAt = &t
		}
		sess.StartedAt = sess.StartedAt.UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// LatestSessionID returns the id of the most recently started session for a
// source, or the empty string when the source has none.
func (s *Store) LatestSessionID(ctx context.Context, source string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE source = ? ORDER BY started_at DESC LIMIT 1`,
		source).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func scanResponse(row *sql.Row) (*domain.Response, error) {
	var resp domain.Response
	var transportStatus, elapsedMS, ttl sql.NullInt64
	var checksum, path, contentType, encoding, headers, meta, bucket, tag sql.NullString
	err := row.Scan(&resp.ID, &resp.RequestID, &resp.Status, &transportStatus,
		&checksum, &path, &contentType, &encoding, &headers, &elapsedMS, &meta,
		&resp.CacheMode, &ttl, &bucket, &tag, &resp.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resp.TransportStatus = int(transportStatus.Int64)
	resp.ElapsedMS = elapsedMS.Int64
	if checksum.Valid {
		resp.Checksum = checksum.String
	}
	if path.Valid {
		resp.Path = path.String
	}
	if contentType.Valid {
		resp.ContentType = contentType.String
	}
	if encoding.Valid {
		resp.Encoding = encoding.String
	}
	if headers.Valid && headers.String != "" {
		if err := json.Unmarshal([]byte(headers.String), &resp.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal response headers: %w", err)
		}
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &resp.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal response meta: %w", err)
		}
	}
	if ttl.Valid {
		v := ttl.Int64
		resp.TTLSeconds = &v
	}
	if bucket.Valid {
		resp.AsOfBucket = bucket.String
	}
	if tag.Valid {
		resp.CacheTag = tag.String
	}
	resp.FetchedAt = resp.FetchedAt.UTC()
	return &resp, nil
}

func marshalJSONMap(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func marshalJSONStringMap(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
