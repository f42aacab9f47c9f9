// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the Gin handlers of the advisor service:
// text validation (streaming and aggregated), document listing and
// retrieval, and the single-shot quick actions.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/textmate-ai/textmate-backend/pkg/extensions"
	"github.com/textmate-ai/textmate-backend/pkg/usage"
	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
	"github.com/textmate-ai/textmate-backend/services/advisor/engine"
	"github.com/textmate-ai/textmate-backend/services/advisor/middleware"
	"github.com/textmate-ai/textmate-backend/services/advisor/observability"
	"github.com/textmate-ai/textmate-backend/services/advisor/rules"
)

// Config carries the handler-level settings shared by the advisor
// endpoints.
type Config struct {
	// DocsDir is the directory holding rule files, description files,
	// and the raw source documents served by the document endpoint.
	DocsDir string

	// AuthDisabled marks a deployment without authentication; access
	// filtering then treats a missing user as allowed.
	AuthDisabled bool

	// UsageSecret keys the HMAC pseudonymization of user identifiers
	// in usage events.
	UsageSecret string
}

// MaxTextBytes caps the size of the text accepted per validation
// request. One completion call per batch means the text is resent for
// every batch, so oversized inputs multiply token cost.
const MaxTextBytes = 100_000

var requestValidate = validator.New()

// ValidateRequest is the body of POST /advisor/validate.
type ValidateRequest struct {
	// Text is the text to check against the editorial rules.
	Text string `json:"text" binding:"required" validate:"required,max=100000"`

	// Docs names the documents whose rules to apply.
	Docs []string `json:"docs" binding:"required,min=1" validate:"required,min=1,max=50,dive,required"`
}

// Validate applies the size and shape limits that go beyond the
// binding tags. Call after binding the JSON body.
func (r *ValidateRequest) Validate() error {
	return requestValidate.Struct(r)
}

// HandleValidate checks text against the rules of the requested
// documents. By default the response is an SSE stream with one result
// event per completed rule batch, a terminal error event on failure,
// and a done event on success. With ?aggregate=true the handler blocks
// and returns a single combined JSON result instead.
func HandleValidate(eng *engine.Engine, catalog *rules.Catalog, cfg Config, opts extensions.ServiceOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		user := middleware.GetAuthInfo(c)
		aggregate := c.Query("aggregate") == "true"
		endpoint := "validate_stream"
		if aggregate {
			endpoint = "validate"
		}

		outcome := "error"
		defer func() {
			recordUsage(c, opts.AuditLogger, user, cfg.UsageSecret, "advisor.validate", len(req.Text), req.Docs, outcome)
			if m := observability.DefaultMetrics; m != nil {
				m.RequestsTotal.WithLabelValues(endpoint, statusLabel(outcome)).Inc()
			}
		}()

		// The engine performs no access checks, so the requested ids
		// must be pre-filtered here. Documents the user may not access
		// are silently absent, exactly as in listings.
		docSet, err := accessibleDocumentSet(catalog, user, cfg.AuthDisabled, req.Docs)
		if err != nil {
			apiErr := datatypes.NewAPIError(datatypes.ErrorIDCheckText, http.StatusInternalServerError, err)
			slog.Error("Access filtering failed", "error", err)
			c.JSON(apiErr.Status, apiErr)
			return
		}

		if aggregate {
			outcome = handleValidateAggregated(c, eng, req.Text, docSet)
			return
		}
		outcome = handleValidateStream(c, eng, req.Text, docSet)
	}
}

// handleValidateAggregated blocks until all batches complete and writes
// one combined result.
func handleValidateAggregated(c *gin.Context, eng *engine.Engine, text string, docSet map[string]struct{}) string {
	result, err := eng.CheckText(c.Request.Context(), text, docSet)
	if err != nil {
		apiErr := asAPIError(err)
		c.JSON(apiErr.Status, apiErr)
		return "error"
	}
	c.JSON(http.StatusOK, result)
	return "success"
}

// handleValidateStream emits one SSE event per completed batch. The
// engine runs batches strictly sequentially, so a client disconnect
// observed on a write stops the run before the next completion call.
func handleValidateStream(c *gin.Context, eng *engine.Engine, text string, docSet map[string]struct{}) string {
	SetSSEHeaders(c.Writer)
	writer, err := NewSSEWriter(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return "error"
	}

	if m := observability.DefaultMetrics; m != nil {
		m.ActiveStreams.Inc()
		defer m.ActiveStreams.Dec()
	}

	batches := 0
	streamErr := eng.CheckTextStream(c.Request.Context(), text, docSet, func(result datatypes.ValidationResult) error {
		if err := writer.WriteResult(result); err != nil {
			return err
		}
		batches++
		return nil
	})

	if streamErr == nil {
		if err := writer.WriteDone(batches); err != nil {
			slog.Debug("Failed to write done event, client likely gone", "error", err)
		}
		return "success"
	}

	var apiErr *datatypes.APIError
	if errors.As(streamErr, &apiErr) {
		// Engine failure: the stream must end with an explicit error
		// event, never silently truncate.
		if err := writer.WriteError(apiErr); err != nil {
			slog.Debug("Failed to write error event, client likely gone", "error", err)
		}
		return "error"
	}

	// Anything else is the consumer going away: a failed event write or
	// a cancelled request context.
	if m := observability.DefaultMetrics; m != nil {
		m.ClientDisconnectsTotal.Inc()
	}
	slog.Info("Validation stream abandoned by client", "batches_emitted", batches)
	return "cancelled"
}

// accessibleDocumentSet resolves the requested document ids against the
// catalog's descriptions and keeps only those the user may access.
// Requested ids without a description are dropped; they carry no access
// record and match no rules.
func accessibleDocumentSet(catalog *rules.Catalog, user *extensions.AuthInfo, authDisabled bool, requested []string) (map[string]struct{}, error) {
	wanted := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		wanted[id] = struct{}{}
	}

	docSet := make(map[string]struct{}, len(requested))
	for _, desc := range catalog.Descriptions() {
		if _, ok := wanted[desc.File]; !ok {
			continue
		}
		ok, err := rules.HasAccess(user, desc, authDisabled)
		if err != nil {
			return nil, err
		}
		if ok {
			docSet[desc.File] = struct{}{}
		}
	}
	return docSet, nil
}

// recordUsage writes one pseudonymized usage event. Failures are logged
// and swallowed; usage recording must never fail a user request.
func recordUsage(c *gin.Context, audit extensions.AuditLogger, user *extensions.AuthInfo, secret, event string, textLength int, docs []string, outcome string) {
	pseudonym := "anonymous"
	if user != nil && user.UserID != "" {
		pseudonym = usage.PseudonymizeUserID(user.UserID, secret)
	}

	if outcome == "cancelled" {
		outcome = "success"
	}
	err := audit.Log(c.Request.Context(), extensions.UsageEvent{
		PseudonymID: pseudonym,
		Event:       event,
		TextLength:  textLength,
		Documents:   docs,
		Outcome:     outcome,
	})
	if err != nil {
		slog.Warn("Failed to record usage event", "event", event, "error", err)
	}
}

func asAPIError(err error) *datatypes.APIError {
	var apiErr *datatypes.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return datatypes.NewAPIError(datatypes.ErrorIDCheckText, http.StatusInternalServerError, err)
}

func statusLabel(outcome string) string {
	if outcome == "error" {
		return "error"
	}
	return "success"
}
