// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "fmt"

// Stable error identifiers exposed to clients. These form the external
// error contract and must not change between releases.
const (
	// ErrorIDCheckText identifies any failure while servicing one
	// validation request, including completion provider failures.
	ErrorIDCheckText = "CheckTextError"

	// ErrorIDNoDocument identifies a request for a source document
	// that does not exist on disk.
	ErrorIDNoDocument = "NoDocument"
)

// APIError is the externally visible error shape for request-scoped
// failures. Only the service boundary (engine public methods and HTTP
// handlers) constructs APIError values; internal components return
// plain errors.
type APIError struct {
	ErrorID      string `json:"errorId"`
	Status       int    `json:"status"`
	DebugMessage string `json:"debugMessage"`

	cause error
}

// NewAPIError wraps cause into the external error shape.
func NewAPIError(errorID string, status int, cause error) *APIError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &APIError{
		ErrorID:      errorID,
		Status:       status,
		DebugMessage: msg,
		cause:        cause,
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.ErrorID, e.Status, e.DebugMessage)
}

func (e *APIError) Unwrap() error {
	return e.cause
}
