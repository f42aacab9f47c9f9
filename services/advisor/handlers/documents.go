// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
	"github.com/textmate-ai/textmate-backend/services/advisor/middleware"
	"github.com/textmate-ai/textmate-backend/services/advisor/rules"
)

// HandleListDocuments returns the document descriptions the current
// user may query. A description is listed only if the user passes the
// access filter and at least one loaded rule references the document;
// a document without rules is not advisable against.
func HandleListDocuments(catalog *rules.Catalog, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.GetAuthInfo(c)

		visible := make([]datatypes.DocumentDescription, 0)
		for _, desc := range catalog.Descriptions() {
			ok, err := rules.HasAccess(user, desc, cfg.AuthDisabled)
			if err != nil {
				slog.Error("Access filtering failed while listing documents", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "access filtering failed"})
				return
			}
			if ok && catalog.HasDocument(desc.File) {
				visible = append(visible, desc)
			}
		}

		c.JSON(http.StatusOK, visible)
	}
}

// HandleGetDocument serves the raw bytes of a named source document
// from the docs directory. Unknown names yield the NoDocument error
// shape with a 404 status.
func HandleGetDocument(cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		// The name must resolve to a plain file inside the docs dir.
		if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document name"})
			return
		}

		path := filepath.Join(cfg.DocsDir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			apiErr := datatypes.NewAPIError(datatypes.ErrorIDNoDocument, http.StatusNotFound, nil)
			apiErr.DebugMessage = "Document not found"
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.File(path)
	}
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
