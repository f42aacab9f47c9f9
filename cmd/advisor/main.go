// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command advisor starts the TextMate advisor HTTP server.
//
// It reads configuration from environment variables and blocks until
// shutdown.
//
// # Environment Variables
//
//   - ADVISOR_PORT: HTTP server port (default: 8020)
//   - ADVISOR_DOCS_DIR: directory with rule/description files and source documents (default: ./docs)
//   - ADVISOR_BATCH_SIZE: rules per completion call (default: 3)
//   - ADVISOR_MAX_RULES: per-request rule cap (default: 20)
//   - ADVISOR_DISABLE_AUTH: "true" makes all documents public (default: false)
//   - ADVISOR_USAGE_SECRET: HMAC key for usage pseudonymization
//   - ADVISOR_USAGE_PATH: BadgerDB usage store directory (empty disables the store)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (empty disables tracing)
//   - OPENAI_API_KEY / OPENAI_BASE_URL / OPENAI_MODEL: completion provider settings
//
// # Usage
//
//	go build -o advisor ./cmd/advisor
//	./advisor
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/textmate-ai/textmate-backend/services/advisor"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := advisor.Config{
		Port:          getEnvInt("ADVISOR_PORT", 8020),
		DocsDir:       getEnvString("ADVISOR_DOCS_DIR", "./docs"),
		BatchSize:     getEnvInt("ADVISOR_BATCH_SIZE", 0),
		MaxRules:      getEnvInt("ADVISOR_MAX_RULES", 0),
		DisableAuth:   getEnvBool("ADVISOR_DISABLE_AUTH", false),
		UsageSecret:   os.Getenv("ADVISOR_USAGE_SECRET"),
		UsagePath:     os.Getenv("ADVISOR_USAGE_PATH"),
		OTelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		EnableMetrics: getEnvBool("ADVISOR_ENABLE_METRICS", true),
	}

	slog.Info("Starting advisor",
		"port", cfg.Port,
		"docs_dir", cfg.DocsDir,
		"auth_disabled", cfg.DisableAuth,
	)

	// Default (no-op) extension options; enterprise builds pass custom
	// ServiceOptions here.
	svc, err := advisor.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create advisor: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Advisor error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
