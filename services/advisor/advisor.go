// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package advisor wires the advisor service together: rule catalog,
// validation engine, completion client, HTTP routing, usage store, and
// observability.
//
// The service is assembled from explicitly constructed values; the
// rule catalog is loaded once at startup and injected into the engine,
// never held as package state. Deployments customize the integration
// seams (authentication, usage auditing) via extensions.ServiceOptions;
// the defaults are no-op implementations suitable for local use.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/textmate-ai/textmate-backend/pkg/extensions"
	"github.com/textmate-ai/textmate-backend/pkg/usage"
	"github.com/textmate-ai/textmate-backend/services/advisor/engine"
	"github.com/textmate-ai/textmate-backend/services/advisor/handlers"
	"github.com/textmate-ai/textmate-backend/services/advisor/observability"
	"github.com/textmate-ai/textmate-backend/services/advisor/routes"
	"github.com/textmate-ai/textmate-backend/services/advisor/rules"
	"github.com/textmate-ai/textmate-backend/services/llm"
)

// Service defines the contract of the advisor service lifecycle.
// Run blocks and should be called at most once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// Config holds advisor service configuration. Zero values use the
// defaults applied by New.
type Config struct {
	// Port is the HTTP server port. Default: 8020
	Port int

	// DocsDir is the directory with rule files, description files,
	// and raw source documents. Default: "./docs"
	DocsDir string

	// BatchSize is the number of rules per completion call.
	// Default: rules.DefaultBatchSize
	BatchSize int

	// MaxRules caps the rules considered per request.
	// Default: rules.DefaultMaxRules
	MaxRules int

	// DisableAuth makes every document visible to unauthenticated
	// requests. Local/dev escape hatch only.
	DisableAuth bool

	// UsageSecret keys the HMAC pseudonymization of user ids in usage
	// events. Default: "local-dev-secret" (set a real one in prod).
	UsageSecret string

	// UsagePath is the directory of the BadgerDB usage store.
	// Empty disables persistent usage recording unless an AuditLogger
	// is injected via ServiceOptions.
	UsagePath string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Empty disables tracing.
	OTelEndpoint string

	// EnableMetrics enables Prometheus metric registration. The
	// /metrics endpoint is always served; without registration it only
	// exposes the Go runtime collectors.
	EnableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string
}

// service implements Service.
//
// All fields are read-only after New returns, so the service is safe
// for concurrent requests without locks; the catalog is immutable and
// each request keeps its own batch state.
type service struct {
	config        Config
	opts          extensions.ServiceOptions
	router        *gin.Engine
	catalog       *rules.Catalog
	engine        *engine.Engine
	llmClient     llm.Client
	usageStore    *usage.Store
	tracerCleanup func(context.Context)
}

// New creates an advisor Service: it loads the rule catalog (startup
// fatal on loading errors), initializes tracing and metrics, builds the
// completion client and the validation engine, and registers all
// routes. If opts is nil, no-op defaults are used.
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if opts != nil {
		s.opts = opts.ApplyDefaults()
	} else {
		s.opts = extensions.DefaultOptions()
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if s.config.EnableMetrics && observability.DefaultMetrics == nil {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for the advisor service")
	}

	// Rule and description files are the access-control source of
	// truth; any loading error is fatal and must prevent startup.
	catalog, err := rules.Load(s.config.DocsDir)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load rule catalog: %w", err)
	}
	s.catalog = catalog

	if err := s.initUsageStore(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open usage store: %w", err)
	}

	s.llmClient, err = llm.NewOpenAIClient()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize completion client: %w", err)
	}

	s.engine = engine.New(s.catalog, s.llmClient, engine.Config{
		BatchSize: s.config.BatchSize,
		MaxRules:  s.config.MaxRules,
	})

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting advisor server", "port", s.config.Port, "docs_dir", s.config.DocsDir)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8020
	}
	if cfg.DocsDir == "" {
		cfg.DocsDir = "./docs"
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = rules.DefaultBatchSize
	}
	if cfg.MaxRules == 0 {
		cfg.MaxRules = rules.DefaultMaxRules
	}
	if cfg.UsageSecret == "" {
		cfg.UsageSecret = "local-dev-secret"
	}
	return cfg
}

// initTracer initializes OpenTelemetry tracing with an OTLP-gRPC
// exporter. Uses an insecure connection, appropriate for internal
// networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("advisor-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initUsageStore opens the BadgerDB usage store when UsagePath is set
// and no custom AuditLogger was injected.
func (s *service) initUsageStore() error {
	if s.config.UsagePath == "" {
		return nil
	}
	if _, isNop := s.opts.AuditLogger.(*extensions.NopAuditLogger); !isNop {
		// A custom logger was injected; leave it in place.
		return nil
	}

	store, err := usage.Open(usage.Config{Path: s.config.UsagePath})
	if err != nil {
		return err
	}
	s.usageStore = store
	s.opts.AuditLogger = store
	return nil
}

// initRouter sets up the Gin router with middleware and all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("advisor-service"))

	handlerCfg := handlers.Config{
		DocsDir:      s.config.DocsDir,
		AuthDisabled: s.config.DisableAuth,
		UsageSecret:  s.config.UsageSecret,
	}
	routes.SetupRoutes(s.router, s.engine, s.catalog, s.llmClient, handlerCfg, s.opts)
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.usageStore != nil {
		if err := s.usageStore.Close(); err != nil {
			slog.Warn("Usage store close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

var _ Service = (*service)(nil)
