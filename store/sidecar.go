package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrSidecarNotFound is returned when no sidecar exists for a checksum.
var ErrSidecarNotFound = errors.New("sidecar not found")

// WriteSidecar persists the transport and provenance record for a payload,
// keyed by the payload checksum. The serialization is deterministic (sorted
// keys, minified, raw UTF-8) so identical responses yield byte-identical
// sidecars across runs. The first write wins; later writes for the same
// checksum never overwrite.
func (s *Store) WriteSidecar(checksum string, meta map[string]any) (string, error) {
	path := s.sidecarPath(checksum)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	data, err := encodeSidecar(meta)
	if err != nil {
		return "", fmt.Errorf("encode sidecar %s: %w", checksum, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write sidecar %s: %w", checksum, err)
	}
	return path, nil
}

// ReadSidecar loads the sidecar record for a checksum.
func (s *Store) ReadSidecar(checksum string) (map[string]any, error) {
	data, err := os.ReadFile(s.sidecarPath(checksum))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checksum %s: %w", checksum, ErrSidecarNotFound)
		}
		return nil, err
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, &IntegrityError{Checksum: checksum, Reason: fmt.Sprintf("malformed sidecar: %v", err)}
	}
	return meta, nil
}

func (s *Store) sidecarPath(checksum string) string {
	return filepath.Join(s.responsesRoot, checksum+".meta.json")
}

// encodeSidecar marshals meta with sorted keys, no HTML escaping and a
// trailing newline.
func encodeSidecar(meta map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(meta); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
