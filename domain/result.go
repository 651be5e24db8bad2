package domain

// AdapterResult is the envelope an adapter returns from a fetch or send.
// It is not persisted directly; the orchestrator turns it into a Response
// plus a content-addressed payload blob and sidecar record.
type AdapterResult struct {
	Data            []byte
	ContentType     string
	Encoding        string
	TransportStatus int
	URL             string
	ElapsedMS       int64
	Headers         map[string]string
	Meta            map[string]any
}

// SidecarMeta returns the transport and provenance fields worth recording
// in the sidecar, omitting zero values. An empty map means no sidecar is
// written for this result.
func (r *AdapterResult) SidecarMeta() map[string]any {
	meta := make(map[string]any)
	if r.ContentType != "" {
		meta["content_type"] = r.ContentType
	}
	if r.Encoding != "" {
		meta["encoding"] = r.Encoding
	}
	if r.TransportStatus != 0 {
		meta["transport_status"] = r.TransportStatus
	}
	if r.URL != "" {
		meta["url"] = r.URL
	}
	if r.ElapsedMS != 0 {
		meta["elapsed_ms"] = r.ElapsedMS
	}
	if len(r.Headers) > 0 {
		headers := make(map[string]any, len(r.Headers))
		for k, v := range r.Headers {
			headers[k] = v
		}
		meta["headers"] = headers
	}
	if len(r.Meta) > 0 {
		meta["adapter_meta"] = r.Meta
	}
	return meta
}
