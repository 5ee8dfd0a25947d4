package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/config"
	"github.com/tabchat-ai/tabchat-engine/pkg/database"
	"github.com/tabchat-ai/tabchat-engine/pkg/etl"
	"github.com/tabchat-ai/tabchat-engine/pkg/handlers"
	"github.com/tabchat-ai/tabchat-engine/pkg/llm"
	"github.com/tabchat-ai/tabchat-engine/pkg/metrics"
	"github.com/tabchat-ai/tabchat-engine/pkg/middleware"
	"github.com/tabchat-ai/tabchat-engine/pkg/models"
	"github.com/tabchat-ai/tabchat-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("store_path", cfg.Store.Path),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model))

	store, err := database.Open(&database.Config{
		Path:         cfg.Store.Path,
		MaxOpenConns: cfg.Store.MaxOpenConns,
		MaxIdleConns: cfg.Store.MaxIdleConns,
		BusyTimeout:  time.Duration(cfg.Store.BusyTimeoutMS) * time.Millisecond,
		WALMode:      true,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	llmClient, err := llm.NewClient(&llm.Config{
		Provider:    cfg.LLM.Provider,
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	provisioner := database.NewProvisioner(store, cfg.Store.MigrationsPath, logger)

	ctx := context.Background()

	if cfg.Store.DataDir != "" {
		if err := provisioner.Provision(ctx); err != nil {
			logger.Fatal("Failed to provision store", zap.Error(err))
		}
		loader := etl.NewLoader(store, cfg.Store.DataDir, logger)
		if err := loader.LoadAll(ctx); err != nil {
			logger.Fatal("Failed to load dataset", zap.Error(err))
		}
	}

	var queryMetrics *metrics.QueryMetrics
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		queryMetrics = metrics.NewQueryMetrics(registry)
	}

	schemaService := services.NewSchemaService(store, models.TableNames(), logger)
	generator := services.NewSQLGenerator(llmClient, schemaService, logger)
	synthesizer := services.NewAnswerSynthesizer(llmClient, logger)
	pipeline := services.NewPipeline(generator, synthesizer, store, provisioner, queryMetrics, logger)

	if err := pipeline.Initialize(ctx); err != nil {
		logger.Fatal("Failed to initialize pipeline", zap.Error(err))
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	queryHandler := handlers.NewQueryHandler(pipeline, logger)
	queryHandler.RegisterRoutes(mux)

	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	handler := middleware.RequestLogger(logger)(mux)

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	go func() {
		logger.Info("Starting tabchat-engine",
			zap.String("addr", cfg.Addr()),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

// newLogger builds a production logger outside local development.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
