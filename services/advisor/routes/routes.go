// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/textmate-ai/textmate-backend/pkg/extensions"
	"github.com/textmate-ai/textmate-backend/services/advisor/engine"
	"github.com/textmate-ai/textmate-backend/services/advisor/handlers"
	"github.com/textmate-ai/textmate-backend/services/advisor/middleware"
	"github.com/textmate-ai/textmate-backend/services/advisor/rules"
	"github.com/textmate-ai/textmate-backend/services/llm"
)

// SetupRoutes registers all advisor routes on the given engine. The
// advisor and quick-action groups are authenticated; health and metrics
// are open.
func SetupRoutes(router *gin.Engine, eng *engine.Engine, catalog *rules.Catalog,
	client llm.Client, cfg handlers.Config, opts extensions.ServiceOptions) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	advisor := router.Group("/advisor")
	advisor.Use(middleware.AuthMiddleware(opts.AuthProvider))
	{
		advisor.POST("/validate", handlers.HandleValidate(eng, catalog, cfg, opts))
		advisor.GET("/docs", handlers.HandleListDocuments(catalog, cfg))
		advisor.GET("/doc/:name", handlers.HandleGetDocument(cfg))
	}

	actions := router.Group("/actions")
	actions.Use(middleware.AuthMiddleware(opts.AuthProvider))
	{
		actions.POST("/run", handlers.HandleQuickAction(client, cfg, opts))
	}
}
