// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"time"
)

// UsageEvent is one pseudonymized usage record. It deliberately carries
// only coarse metadata: the HMAC pseudonym of the user, the operation,
// the length of the submitted text, and which documents were requested.
// The text content itself is never recorded.
type UsageEvent struct {
	// ID is a unique identifier assigned by the logger.
	ID string `json:"id"`

	// Timestamp is when the event occurred, in UTC.
	Timestamp time.Time `json:"timestamp"`

	// PseudonymID is the keyed one-way hash of the user's stable
	// subject identifier. The raw identifier is never stored.
	PseudonymID string `json:"pseudonym_id"`

	// Event names the invoked operation, e.g. "advisor.validate".
	Event string `json:"event"`

	// TextLength is the length of the submitted text in bytes.
	TextLength int `json:"text_length"`

	// Documents lists the requested document identifiers.
	Documents []string `json:"documents,omitempty"`

	// Outcome is "success" or "error".
	Outcome string `json:"outcome"`
}

// UsageFilter selects events for Query. Zero-valued fields are ignored;
// set fields combine with AND.
type UsageFilter struct {
	// Event limits results to one operation name.
	Event string

	// PseudonymID limits results to one pseudonymized user.
	PseudonymID string

	// Since is the earliest timestamp to include (inclusive).
	Since time.Time

	// Limit caps the number of returned events; 0 means no cap.
	Limit int
}

// AuditLogger records pseudonymized usage events. Implementations must
// be safe for concurrent use and should return quickly; recording usage
// must never slow down or fail a user request.
type AuditLogger interface {
	// Log records one event. Implementations set ID and Timestamp if
	// they are zero.
	Log(ctx context.Context, event UsageEvent) error

	// Query returns events matching the filter, newest first.
	Query(ctx context.Context, filter UsageFilter) ([]UsageEvent, error)

	// Close flushes and releases the underlying store.
	Close() error
}

// NopAuditLogger discards all events. It is the default for local
// deployments where a usage trail is not wanted.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(_ context.Context, _ UsageEvent) error { return nil }

// Query returns no events.
func (l *NopAuditLogger) Query(_ context.Context, _ UsageFilter) ([]UsageEvent, error) {
	return []UsageEvent{}, nil
}

// Close is a no-op.
func (l *NopAuditLogger) Close() error { return nil }

var _ AuditLogger = (*NopAuditLogger)(nil)
