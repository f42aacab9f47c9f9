// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm is the completion provider boundary of the backend.
//
// Everything above this package treats the model as an opaque service:
// plain text generation for the quick actions, structured rule
// validation for the advisor engine. Implementations hold no shared
// mutable state between calls, so every call is independently
// retryable by the caller.
package llm

import (
	"context"

	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any completion backend.
type Client interface {
	// Generate produces free-form text for a single prompt.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// ValidateRules checks text against one batch of rules and returns
	// the structured list of violations the model reports. An empty
	// result means no qualifying violations.
	ValidateRules(ctx context.Context, batch []datatypes.Rule, text string) (datatypes.ValidationResult, error)
}
