// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine implements the validation orchestrator: it turns
// "text + a set of document ids" into either one aggregated
// ValidationResult or a stream of per-batch results.
//
// # Concurrency model
//
// Batches are processed sequentially, never concurrently. This is a
// deliberate simplification, not a missed optimization: it bounds the
// number of in-flight completion calls per request to one, keeps
// per-request cost predictable, and makes streaming semantics trivial
// because each emitted result corresponds to exactly one completed
// batch with no reordering or buffering. The rule cap bounds the
// end-to-end latency this costs on many-batch requests.
//
// # Error boundary
//
// The public methods are the error boundary of the core: completion
// provider failures surface as *datatypes.APIError with the stable
// CheckTextError id. Internal components below this boundary return
// plain errors and never format client-facing payloads.
package engine

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
	"github.com/textmate-ai/textmate-backend/services/advisor/observability"
	"github.com/textmate-ai/textmate-backend/services/advisor/rules"
)

// CompletionProvider is the engine's view of the structured completion
// boundary: one independent call per rule batch, no shared mutable
// state between calls. A transient provider failure fails the whole
// request; the engine does not retry per batch.
type CompletionProvider interface {
	ValidateRules(ctx context.Context, batch []datatypes.Rule, text string) (datatypes.ValidationResult, error)
}

// EmitFunc receives one ValidationResult per completed batch in batch
// order. Returning a non-nil error stops the engine before the next
// batch; the remaining batches are never started.
type EmitFunc func(datatypes.ValidationResult) error

// Config holds the batching policy knobs. Zero values fall back to the
// package defaults in the rules package.
type Config struct {
	// BatchSize is the number of rules per completion call.
	BatchSize int

	// MaxRules caps the total rules considered per request.
	MaxRules int
}

// Engine drives the rule batcher and the completion provider for one
// catalog. It is stateless across requests and safe for concurrent use.
type Engine struct {
	catalog  *rules.Catalog
	provider CompletionProvider
	cfg      Config
}

// New creates an Engine over the given catalog and provider.
func New(catalog *rules.Catalog, provider CompletionProvider, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = rules.DefaultBatchSize
	}
	if cfg.MaxRules <= 0 {
		cfg.MaxRules = rules.DefaultMaxRules
	}
	return &Engine{
		catalog:  catalog,
		provider: provider,
		cfg:      cfg,
	}
}

// CheckText validates text against the rules of the requested documents
// and returns one aggregated result whose violation list concatenates
// all per-batch results in batch order.
//
// Callers must pre-filter docs through rules.HasAccess; the engine
// performs no access checks.
func (e *Engine) CheckText(ctx context.Context, text string, docs map[string]struct{}) (datatypes.ValidationResult, error) {
	aggregated := datatypes.EmptyResult()
	err := e.CheckTextStream(ctx, text, docs, func(result datatypes.ValidationResult) error {
		aggregated.Violations = append(aggregated.Violations, result.Violations...)
		return nil
	})
	if err != nil {
		return datatypes.ValidationResult{}, err
	}
	return aggregated, nil
}

// CheckTextStream validates text against the rules of the requested
// documents and calls emit once per completed batch, strictly in batch
// order. The next batch is not started before the current one resolves
// and its result has been observed by emit, so consumers control the
// pace and an early stop wastes no completion calls.
//
// If no rules match the requested documents, emit is called exactly
// once with an empty result and the provider is never invoked.
//
// Error cases:
//   - a provider failure aborts the remaining batches and returns a
//     *datatypes.APIError with the CheckTextError id; no partial result
//     is ever passed off as success,
//   - a non-nil error from emit (consumer gone) aborts the remaining
//     batches and is returned unchanged,
//   - context cancellation aborts before the next provider call and
//     returns ctx.Err().
func (e *Engine) CheckTextStream(ctx context.Context, text string, docs map[string]struct{}, emit EmitFunc) error {
	matched := rules.FilterRules(e.catalog.Rules(), docs)
	if len(matched) == 0 {
		slog.Warn("No rules found for the requested documents", "documents", keys(docs))
		return emit(datatypes.EmptyResult())
	}

	batches := rules.Batch(matched, e.cfg.BatchSize, e.cfg.MaxRules)
	slog.Debug("Validating text against rule batches",
		"matched_rules", len(matched), "batches", len(batches), "text_length", len(text))

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		result, err := e.provider.ValidateRules(ctx, batch, text)
		if m := observability.DefaultMetrics; m != nil {
			m.ProviderLatencySeconds.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			if m := observability.DefaultMetrics; m != nil {
				m.BatchesTotal.WithLabelValues("error").Inc()
			}
			slog.Error("Rule batch validation failed", "batch", i, "batches", len(batches), "error", err)
			return datatypes.NewAPIError(datatypes.ErrorIDCheckText, http.StatusInternalServerError, err)
		}
		if result.Violations == nil {
			result = datatypes.EmptyResult()
		}

		if m := observability.DefaultMetrics; m != nil {
			m.BatchesTotal.WithLabelValues("success").Inc()
			m.ViolationsTotal.Add(float64(len(result.Violations)))
		}

		if err := emit(result); err != nil {
			slog.Debug("Validation stream consumer stopped", "batch", i, "batches", len(batches))
			return err
		}
	}
	return nil
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
