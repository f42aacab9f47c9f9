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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
)

// newMockCompletionServer answers /chat/completions with the given
// message content and captures the raw request for inspection.
func newMockCompletionServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", baseURL)
	t.Setenv("OPENAI_MODEL", "test-model")

	client, err := NewOpenAIClient()
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClient_RequiresKeyOrBaseURL(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	_, err := NewOpenAIClient()
	assert.Error(t, err)
}

func TestNewOpenAIClient_LocalEndpointNeedsNoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8000/v1")
	t.Setenv("OPENAI_MODEL", "local-model")

	client, err := NewOpenAIClient()
	require.NoError(t, err)
	assert.Equal(t, "local-model", client.model)
}

func TestGenerate(t *testing.T) {
	var captured map[string]any
	server := newMockCompletionServer(t, "Simplified text.", &captured)
	defer server.Close()

	client := newTestClient(t, server.URL)

	out, err := client.Generate(context.Background(), "Simplify this.", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "Simplified text.", out)
	assert.Equal(t, "test-model", captured["model"])
}

func TestGenerate_AppliesParams(t *testing.T) {
	var captured map[string]any
	server := newMockCompletionServer(t, "ok", &captured)
	defer server.Close()

	client := newTestClient(t, server.URL)

	temp := float32(0.2)
	maxTokens := 128
	_, err := client.Generate(context.Background(), "prompt", GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		Stop:        []string{"###"},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.2, captured["temperature"], 0.001)
	assert.EqualValues(t, 128, captured["max_completion_tokens"])
}

func TestValidateRules(t *testing.T) {
	answer := `{"violations": [
		{"name": "gendering", "description": "Use inclusive forms", "source_file_name": "style.pdf",
		 "source_page_number": 4, "example": "die Mitarbeitenden",
		 "reason": "non-inclusive wording", "proposal": "die Mitarbeitenden", "source": "die Mitarbeiter"}
	]}`
	var captured map[string]any
	server := newMockCompletionServer(t, answer, &captured)
	defer server.Close()

	client := newTestClient(t, server.URL)
	batch := []datatypes.Rule{{Name: "gendering", SourceFileName: "style.pdf", SourcePageNumber: 4}}

	result, err := client.ValidateRules(context.Background(), batch, "die Mitarbeiter arbeiten")
	require.NoError(t, err)

	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	assert.Equal(t, "gendering", v.Name)
	assert.Equal(t, "style.pdf", v.SourceFileName)
	assert.Equal(t, "non-inclusive wording", v.Reason)

	// The request must demand structured output and carry the rules in
	// the system message.
	format, ok := captured["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], `"gendering"`)
	user := messages[1].(map[string]any)
	assert.Equal(t, "die Mitarbeiter arbeiten", user["content"])
}

func TestValidateRules_EmptyAnswerNormalized(t *testing.T) {
	server := newMockCompletionServer(t, `{"violations": null}`, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.ValidateRules(context.Background(), []datatypes.Rule{{Name: "r"}}, "text")
	require.NoError(t, err)
	require.NotNil(t, result.Violations)
	assert.Empty(t, result.Violations)
}

func TestValidateRules_MalformedAnswerFails(t *testing.T) {
	server := newMockCompletionServer(t, `not json`, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.ValidateRules(context.Background(), []datatypes.Rule{{Name: "r"}}, "text")
	assert.Error(t, err)
}

func TestValidationSchema_RequiresAllViolationFields(t *testing.T) {
	schema := validationSchema()

	violations, ok := schema.Properties["violations"]
	require.True(t, ok)
	require.NotNil(t, violations.Items)

	assert.ElementsMatch(t, []string{
		"name", "description", "source_file_name", "source_page_number",
		"example", "reason", "proposal", "source",
	}, violations.Items.Required)
}
