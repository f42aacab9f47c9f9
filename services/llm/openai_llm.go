// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
)

// validationInstruction frames the rule batch for the model. The rules
// documentation is injected as JSON; the response is constrained to the
// validation schema via structured outputs.
const validationInstruction = `You are an expert in editorial guidelines. Review only the given rules and
identify any clear, material violations in the input text.
Guidelines:
1. Focus on substantive issues that meaningfully impact clarity, accuracy, tone,
   wrong use of words, abbreviations, etc.
2. If you are unsure whether a rule is violated, do not report it.
3. Provide practical, respectful rewrite proposals that keep the author's intent.
4. If no qualifying violations exist, return an empty list.

Rules documentation:
---------------
%s
---------------

Keep your answer in the original language of the input text.`

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint,
// which covers the hosted API as well as local vLLM and Ollama servers.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client from the environment:
//
//   - OPENAI_API_KEY: API key, with /run/secrets/openai_api_key as a
//     container-secret fallback
//   - OPENAI_BASE_URL: alternative endpoint (local vLLM/Ollama)
//   - OPENAI_MODEL: model name, default gpt-4o-mini
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	baseURL := os.Getenv("OPENAI_BASE_URL")
	model := os.Getenv("OPENAI_MODEL")

	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API key from container secrets")
		} else if baseURL == "" {
			slog.Error("OPENAI_API_KEY not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		} else {
			// Local endpoints usually accept any key.
			apiKey = "none"
		}
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}

	var client *openai.Client
	if baseURL != "" {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = baseURL
		client = openai.NewClientWithConfig(cfg)
	} else {
		client = openai.NewClient(apiKey)
	}

	slog.Info("Initializing OpenAI-compatible client", "model", model, "base_url", baseURL)
	return &OpenAIClient{client: client, model: model}, nil
}

// Generate implements the Client interface.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	slog.Debug("Generating text", "model", o.model)
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	applyParams(&req, params)

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("Completion call failed", "error", err)
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("Completion returned no choices")
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ValidateRules implements the Client interface. The rule batch is
// embedded into the instruction as JSON and the response is forced into
// the validation schema, so the answer always parses into a
// datatypes.ValidationResult.
func (o *OpenAIClient) ValidateRules(ctx context.Context, batch []datatypes.Rule, text string) (datatypes.ValidationResult, error) {
	rulesJSON, err := json.Marshal(map[string][]datatypes.Rule{"rules": batch})
	if err != nil {
		return datatypes.ValidationResult{}, fmt.Errorf("marshal rule batch: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(validationInstruction, rulesJSON)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "rule_validation",
				Schema: validationSchema(),
				Strict: true,
			},
		},
	}

	slog.Debug("Validating rule batch", "model", o.model, "rules", len(batch))
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("Rule validation call failed", "error", err, "rules", len(batch))
		return datatypes.ValidationResult{}, fmt.Errorf("rule validation call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return datatypes.ValidationResult{}, fmt.Errorf("rule validation returned no choices")
	}

	var result datatypes.ValidationResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return datatypes.ValidationResult{}, fmt.Errorf("decode rule validation response: %w", err)
	}
	if result.Violations == nil {
		result = datatypes.EmptyResult()
	}

	slog.Debug("Rule batch validated", "violations", len(result.Violations),
		"finish_reason", resp.Choices[0].FinishReason)
	return result, nil
}

func applyParams(req *openai.ChatCompletionRequest, params GenerationParams) {
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}
}

// validationSchema is the structured-output schema matching
// datatypes.ValidationResult.
func validationSchema() *jsonschema.Definition {
	violation := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"name":               {Type: jsonschema.String, Description: "Name of the violated rule"},
			"description":        {Type: jsonschema.String, Description: "Description of the violated rule"},
			"source_file_name":   {Type: jsonschema.String, Description: "Source document of the rule"},
			"source_page_number": {Type: jsonschema.Integer, Description: "Page number in the source document"},
			"example":            {Type: jsonschema.String, Description: "Example of the rule applied correctly"},
			"reason":             {Type: jsonschema.String, Description: "Why the text violates the rule"},
			"proposal":           {Type: jsonschema.String, Description: "Suggested rewrite preserving the author's intent"},
			"source":             {Type: jsonschema.String, Description: "Excerpt of the text where the violation occurs"},
		},
		Required: []string{
			"name", "description", "source_file_name", "source_page_number",
			"example", "reason", "proposal", "source",
		},
		AdditionalProperties: false,
	}

	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"violations": {
				Type:        jsonschema.Array,
				Description: "All clear, material rule violations found in the text",
				Items:       &violation,
			},
		},
		Required:             []string{"violations"},
		AdditionalProperties: false,
	}
}

var _ Client = (*OpenAIClient)(nil)
