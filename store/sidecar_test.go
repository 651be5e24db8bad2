package store

import (
	"errors"
	"os"
	"testing"
)

func TestWriteSidecarDeterministicBytes(t *testing.T) {
	s := newTestStore(t)
	meta := map[string]any{
		"zeta":  "Ωmega",
		"alpha": "äöü",
	}

	path, err := s.WriteSidecar("cafe01", meta)
	if err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	// Sorted keys, minified, raw UTF-8, trailing newline.
	want := "{\"alpha\":\"äöü\",\"zeta\":\"Ωmega\"}\n"
	if string(data) != want {
		t.Fatalf("unexpected sidecar bytes:\n%q\nwant:\n%q", data, want)
	}
}

func TestWriteSidecarFirstWriteWins(t *testing.T) {
	s := newTestStore(t)

	p1, err := s.WriteSidecar("cafe02", map[string]any{"url": "https://one"})
	if err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}
	p2, err := s.WriteSidecar("cafe02", map[string]any{"url": "https://two"})
	if err != nil {
		t.Fatalf("second WriteSidecar failed: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("paths differ: %s vs %s", p1, p2)
	}

	meta, err := s.ReadSidecar("cafe02")
	if err != nil {
		t.Fatalf("ReadSidecar failed: %v", err)
	}
	if meta["url"] != "https://one" {
		t.Fatalf("first write did not win: %v", meta)
	}
}

func TestWriteSidecarNoHTMLEscaping(t *testing.T) {
	s := newTestStore(t)

	path, err := s.WriteSidecar("cafe03", map[string]any{"url": "https://api?a=1&b=<x>"})
	if err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	want := "{\"url\":\"https://api?a=1&b=<x>\"}\n"
	if string(data) != want {
		t.Fatalf("HTML escaping leaked into sidecar: %q", data)
	}
}

func TestReadSidecarRoundTrip(t *testing.T) {
	s := newTestStore(t)
	meta := map[string]any{
		"content_type":     "application/json",
		"transport_status": float64(200),
		"elapsed_ms":       float64(42),
	}

	if _, err := s.WriteSidecar("cafe04", meta); err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}
	got, err := s.ReadSidecar("cafe04")
	if err != nil {
		t.Fatalf("ReadSidecar failed: %v", err)
	}
	for k, v := range meta {
		if got[k] != v {
			t.Fatalf("field %s changed: %v vs %v", k, got[k], v)
		}
	}
}

func TestReadSidecarMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadSidecar("absent")
	if !errors.Is(err, ErrSidecarNotFound) {
		t.Fatalf("expected ErrSidecarNotFound, got %v", err)
	}
}

func TestReadSidecarMalformed(t *testing.T) {
	s := newTestStore(t)

	if err := os.WriteFile(s.sidecarPath("broken"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	_, err := s.ReadSidecar("broken")
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}
