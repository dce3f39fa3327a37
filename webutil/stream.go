package webutil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// NDJSONWriter writes one JSON document per line and flushes after each, so
// clients see progress as it happens.
type NDJSONWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
	started bool
}

// NewNDJSONWriter fails if w cannot be flushed.
func NewNDJSONWriter(w http.ResponseWriter) (*NDJSONWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &NDJSONWriter{w: w, flusher: flusher, enc: json.NewEncoder(w)}, nil
}

// Write encodes v followed by a newline. The first call sends a 200 status
// with the NDJSON content type.
func (s *NDJSONWriter) Write(v any) error {
	if !s.started {
		s.w.Header().Set(HeaderContentType, ContentTypeNDJSON)
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if err := s.enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write stream line: %w", err)
	}
	s.flusher.Flush()
	return nil
}
