package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// IntegrityError reports a mismatch between stored bytes and their content
// address, or a blob/sidecar presence mismatch. Reads failing this way never
// return the corrupt bytes.
type IntegrityError struct {
	Checksum string
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation for checksum %s: %s", e.Checksum, e.Reason)
}

// ErrPayloadNotFound is returned when no blob exists for a checksum.
var ErrPayloadNotFound = errors.New("payload not found")

// WritePayload stores data under its content address and returns the
// checksum plus the blob path. Writing identical bytes twice is a no-op on
// the second call. The blob is written to a temporary file and atomically
// renamed into place, so a partial write is never visible under the final
// name.
func (s *Store) WritePayload(data []byte) (string, string, error) {
	checksum := digest.FromBytes(data).Encoded()
	path := s.payloadPath(checksum)

	if _, err := os.Stat(path); err == nil {
		return checksum, path, nil
	}

	if err := writeFileAtomic(path, data); err != nil {
		return "", "", fmt.Errorf("write payload %s: %w", checksum, err)
	}
	s.log.Debug().Str("checksum", checksum).Int("bytes", len(data)).Msg("payload stored")
	return checksum, path, nil
}

// ReadPayload returns the bytes stored under checksum after verifying their
// content address.
func (s *Store) ReadPayload(checksum string) ([]byte, error) {
	data, err := os.ReadFile(s.payloadPath(checksum))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checksum %s: %w", checksum, ErrPayloadNotFound)
		}
		return nil, err
	}
	if actual := digest.FromBytes(data).Encoded(); actual != checksum {
		return nil, &IntegrityError{
			Checksum: checksum,
			Reason:   fmt.Sprintf("stored bytes hash to %s", actual),
		}
	}
	return data, nil
}

func (s *Store) payloadPath(checksum string) string {
	return filepath.Join(s.responsesRoot, checksum+".bin")
}

// writeFileAtomic writes data to a temporary file in the destination
// directory and renames it into place. The temporary file is removed on all
// failure paths. A concurrent writer winning the rename is treated as
// success: content-addressed names make the contents identical.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "blob-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			_ = os.Remove(tmpPath)
			return nil
		}
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
