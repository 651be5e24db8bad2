// Package store persists the audit trail: sessions, requests and responses
// in an embedded SQLite database, plus content-addressed payload blobs with
// sidecar metadata on disk.
//
// One Store instance owns one backing location. Callers construct it once
// and pass the handle into each session; there is no hidden global registry
// of stores. A handle is safe for concurrent use within one process; it
// assumes it is the only writer for its location.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/mxm-platform/dataio/config"
)

// Store is the combined metadata and content store handle.
type Store struct {
	db            *sql.DB
	responsesRoot string
	log           zerolog.Logger

	// mu serializes metadata mutations on this handle.
	mu sync.Mutex
}

// Open validates the configuration, prepares the backing locations and
// returns a ready store handle. It fails fast before any session work.
func Open(cfg *config.Config, logger zerolog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ResponsesRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create responses root: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection so the schema stays visible across goroutines.
	if cfg.DBPath == ":memory:" || strings.Contains(cfg.DBPath, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{
		db:            db,
		responsesRoot: cfg.ResponsesRoot,
		log:           logger.With().Str("component", "store").Logger(),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate metadata store: %w", err)
	}
	return s, nil
}

// ResponsesRoot returns the payload root directory.
func (s *Store) ResponsesRoot() string {
	return s.responsesRoot
}

// Close closes the metadata store connection.
func (s *Store) Close() error {
	return s.db.Close()
}
