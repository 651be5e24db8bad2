package dataio

import (
	"errors"
	"fmt"
)

// ErrSessionEnded is returned when a request is made against a closed session.
var ErrSessionEnded = errors.New("session has ended")

// AdapterError reports a transport or adapter failure, with enough context
// to correlate the failure with its request row.
type AdapterError struct {
	Source string
	Kind   string
	Hash   string
	Err    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s failed for kind=%s hash=%s: %v", e.Source, e.Kind, e.Hash, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }
