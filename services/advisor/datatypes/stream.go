// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Stream event types emitted on the validation SSE stream.
const (
	// StreamEventResult carries one per-batch ValidationResult.
	StreamEventResult = "result"

	// StreamEventError is the terminal error signal. Its presence
	// distinguishes a crashed stream from one that simply found no
	// violations; a short stream without it must never occur.
	StreamEventError = "error"

	// StreamEventDone marks successful end-of-stream.
	StreamEventDone = "done"
)

// StreamEvent is one Server-Sent Event on the validation stream.
type StreamEvent struct {
	// Id is a UUID assigned by the writer for ordering and
	// deduplication on the client.
	Id string `json:"id"`

	// Type is one of the StreamEvent* constants.
	Type string `json:"type"`

	// CreatedAt is a Unix timestamp in milliseconds.
	CreatedAt int64 `json:"created_at"`

	// Result is set on "result" events: the violations of one batch.
	Result *ValidationResult `json:"result,omitempty"`

	// Error is set on "error" events: the external error shape.
	Error *APIError `json:"error,omitempty"`

	// Batches is set on "done" events: how many batch results were
	// emitted in total.
	Batches int `json:"batches,omitempty"`
}
