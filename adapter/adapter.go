// Package adapter defines the capability contracts for external system
// adapters. An adapter translates between the generic Request/Response model
// and the concrete protocol of one data source, broker, or feed. The
// orchestrator depends only on the capability it needs for an operation.
package adapter

import (
	"context"

	"github.com/mxm-platform/dataio/domain"
)

// Adapter is the base contract every adapter implements.
type Adapter interface {
	// Source returns the canonical registry name of the external system.
	Source() string
	// Describe returns a human-readable description of the adapter.
	Describe() string
	// Close releases any held resources.
	Close() error
}

// Fetcher is the capability for adapters that can retrieve data.
type Fetcher interface {
	Adapter
	Fetch(ctx context.Context, req *domain.Request) (*domain.AdapterResult, error)
}

// Sender is the capability for adapters that can send or post data.
type Sender interface {
	Adapter
	Send(ctx context.Context, req *domain.Request, payload []byte) (*domain.AdapterResult, error)
}
