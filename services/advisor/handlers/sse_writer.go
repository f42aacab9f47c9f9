// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
)

// SSEWriter writes validation stream events in SSE wire format
// (event: type\ndata: json\n\n), flushing after every event.
//
// Implementations must be safe for concurrent use; the writer assumes
// the caller has set SSE headers before the first write.
type SSEWriter interface {
	// WriteResult writes one per-batch validation result.
	WriteResult(result datatypes.ValidationResult) error

	// WriteError writes the terminal error event. The stream must be
	// closed afterwards; a consumer observing a short stream without a
	// trailing error cannot tell "no violations" from "engine crashed".
	WriteError(apiErr *datatypes.APIError) error

	// WriteDone writes the final event of a successful stream,
	// carrying the number of batch results emitted.
	WriteDone(batches int) error
}

// sseWriter implements SSEWriter over an http.ResponseWriter.
type sseWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewSSEWriter wraps w for SSE output. Fails if w does not support
// http.Flusher; immediate flushing is what makes per-batch streaming
// visible to the client.
func NewSSEWriter(w http.ResponseWriter) (SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

func (w *sseWriter) writeEvent(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event.Id = uuid.New().String()
	event.CreatedAt = time.Now().UnixMilli()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// WriteResult writes one per-batch validation result.
func (w *sseWriter) WriteResult(result datatypes.ValidationResult) error {
	return w.writeEvent(datatypes.StreamEvent{
		Type:   datatypes.StreamEventResult,
		Result: &result,
	})
}

// WriteError writes the terminal error event.
func (w *sseWriter) WriteError(apiErr *datatypes.APIError) error {
	return w.writeEvent(datatypes.StreamEvent{
		Type:  datatypes.StreamEventError,
		Error: apiErr,
	})
}

// WriteDone writes the final event of a successful stream.
func (w *sseWriter) WriteDone(batches int) error {
	return w.writeEvent(datatypes.StreamEvent{
		Type:    datatypes.StreamEventDone,
		Batches: batches,
	})
}

// SetSSEHeaders configures the response headers for SSE streaming.
// Must be called before the first write.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

var _ SSEWriter = (*sseWriter)(nil)
