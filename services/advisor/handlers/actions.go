// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/textmate-ai/textmate-backend/pkg/extensions"
	"github.com/textmate-ai/textmate-backend/services/advisor/middleware"
	"github.com/textmate-ai/textmate-backend/services/advisor/observability"
	"github.com/textmate-ai/textmate-backend/services/llm"
)

// Quick actions are single-shot prompt-to-text transforms: no batching,
// no aggregation, no state. They share the completion client with the
// validation engine but nothing else.
var quickActionPrompts = map[string]string{
	"simplify": "Simplify the following text so it is easy to understand while keeping " +
		"all essential information. Answer only with the simplified text, in the " +
		"original language of the input.",
	"shorten": "Shorten the following text while keeping its meaning and tone. " +
		"Answer only with the shortened text, in the original language of the input.",
	"summarize": "Summarize the following text, capturing the main ideas and essential " +
		"information in a concise manner. Answer only with the summary, in the " +
		"original language of the input.",
	"bullet_points": "Convert the following text into concise bullet points covering all key " +
		"statements. Answer only with the bullet points, in the original language " +
		"of the input.",
	"social_media": "Rewrite the following text as an engaging social media post, keeping " +
		"the core message. Answer only with the post, in the original language of " +
		"the input.",
	"formality": "Rewrite the following text in a formal, professional register while " +
		"keeping its meaning. Answer only with the rewritten text, in the original " +
		"language of the input.",
	"structure": "Restructure the following text with clear paragraphs and, where helpful, " +
		"headings. Answer only with the restructured text, in the original " +
		"language of the input.",
}

// QuickActionRequest is the body of POST /actions/run.
type QuickActionRequest struct {
	// Action selects the transform to apply.
	Action string `json:"action" binding:"required,oneof=simplify shorten summarize bullet_points social_media structure formality"`

	// Text is the text to transform.
	Text string `json:"text" binding:"required"`
}

// QuickActionResponse carries the transformed text.
type QuickActionResponse struct {
	Text string `json:"text"`
}

// HandleQuickAction runs one single-shot text transform through the
// completion client.
func HandleQuickAction(client llm.Client, cfg Config, opts extensions.ServiceOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QuickActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		user := middleware.GetAuthInfo(c)
		outcome := "error"
		defer func() {
			recordUsage(c, opts.AuditLogger, user, cfg.UsageSecret, "actions."+req.Action, len(req.Text), nil, outcome)
			if m := observability.DefaultMetrics; m != nil {
				m.RequestsTotal.WithLabelValues("quick_action", statusLabel(outcome)).Inc()
			}
		}()

		prompt := fmt.Sprintf("%s\n\nText:\n%s", quickActionPrompts[req.Action], req.Text)
		result, err := client.Generate(c.Request.Context(), prompt, llm.GenerationParams{})
		if err != nil {
			slog.Error("Quick action failed", "action", req.Action, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "quick action failed"})
			return
		}

		outcome = "success"
		c.JSON(http.StatusOK, QuickActionResponse{Text: result})
	}
}
