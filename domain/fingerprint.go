package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint computes the deterministic identity hash for a logical request.
// The hash covers the request kind, its canonicalized parameters, and the
// bucket and tag partition keys. Cache mode and TTL never contribute: two
// requests that differ only in caching policy share one fingerprint, while
// distinct buckets or tags never collide.
//
// Params are canonicalized through encoding/json, which serializes map keys
// in sorted order at every nesting level, so the hash is stable across
// process runs and platforms. Nil params normalize to the empty map; both
// spellings of "no parameters" share one fingerprint.
func Fingerprint(kind string, params map[string]any, bucket, tag string) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	identity := struct {
		Kind   string         `json:"kind"`
		Params map[string]any `json:"params"`
		Bucket string         `json:"as_of_bucket"`
		Tag    string         `json:"cache_tag"`
	}{
		Kind:   kind,
		Params: params,
		Bucket: bucket,
		Tag:    tag,
	}
	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("canonicalize request params: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
