package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"eventpulse/backend/internal/api"
	"eventpulse/backend/internal/api/handlers"
	"eventpulse/backend/internal/config"
	"eventpulse/backend/internal/dedup"
	"eventpulse/backend/internal/logger"
	"eventpulse/backend/internal/scheduler"

	"github.com/gin-gonic/gin"
)

const version = "1.0.0"

func main() {
	// Load and validate configuration first (before logger)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger with configuration
	logger.Init(cfg.Logger)

	logger.Info().
		Str("environment", cfg.Logger.Environment).
		Str("log_level", cfg.Logger.Level).
		Msg("configuration loaded successfully")

	// Build engine configuration from defaults plus env overrides
	engineCfg := engineConfig(cfg.Engine)

	orch := dedup.NewOrchestrator(engineCfg)
	if err := orch.Initialize(); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize dedup engine")
	}
	defer func() {
		if err := orch.Cleanup(); err != nil {
			logger.Error().Err(err).Msg("engine cleanup failed")
		}
	}()

	logger.Info().
		Float64("overall_threshold", engineCfg.Thresholds.Overall).
		Int("batch_size", engineCfg.Performance.BatchSize).
		Bool("caching", engineCfg.Performance.EnableCaching).
		Bool("parallel", engineCfg.Performance.ParallelProcessing).
		Msg("dedup engine initialized")

	// Initialize handlers
	dedupHandler := handlers.NewDedupHandler(orch)
	systemHandler := handlers.NewSystemHandler(orch, version)

	// Initialize and start maintenance scheduler
	if cfg.Scheduler.Enabled {
		cronScheduler := scheduler.NewScheduler(orch, cfg.Scheduler)
		if err := cronScheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start scheduler")
		}
		defer cronScheduler.Stop()
	}

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(api.RequestIDMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.CORSMiddleware(cfg.CORS))
	router.Use(api.ErrorHandlerMiddleware())

	// Health check endpoint
	router.GET("/health", systemHandler.Health)

	// API routes
	v1 := router.Group("/api/v1")
	{
		dd := v1.Group("/dedup")
		{
			dd.POST("/check", dedupHandler.CheckDuplicates)
			dd.POST("/decisions", dedupHandler.CreateMergeDecision)
			dd.POST("/merge", dedupHandler.ExecuteMerge)
			dd.POST("/process", dedupHandler.ProcessEvents)

			dd.GET("/history/:eventId", dedupHandler.GetEventHistory)
			dd.GET("/report", dedupHandler.GetReport)

			dd.GET("/config", dedupHandler.GetConfig)
			dd.PATCH("/config", dedupHandler.UpdateConfig)

			dd.GET("/cache/stats", dedupHandler.GetCacheStats)
			dd.POST("/cache/clear", dedupHandler.ClearCaches)

			dd.GET("/export", dedupHandler.ExportData)
			dd.POST("/import", dedupHandler.ImportData)
		}
	}

	// Start server with configured bind address
	addr := cfg.GetBindAddress()
	// Use a listener so we can discover the selected port when PORT=0
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("failed to bind listener")
	}

	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Msg("starting server")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	// Give outstanding requests a configured timeout to complete
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// engineConfig layers env overrides onto the engine defaults.
func engineConfig(env config.EngineConfig) dedup.Config {
	cfg := dedup.DefaultConfig()

	if env.OverallThreshold > 0 {
		cfg.Thresholds.Overall = env.OverallThreshold
	}
	if env.BatchSize > 0 {
		cfg.Performance.BatchSize = env.BatchSize
	}
	if env.MaxCandidates > 0 {
		cfg.Performance.MaxCandidates = env.MaxCandidates
	}
	cfg.Performance.EnableCaching = env.EnableCaching
	cfg.Performance.ParallelProcessing = env.ParallelProcessing

	return cfg
}
