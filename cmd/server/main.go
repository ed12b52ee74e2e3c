// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subiekt-planner/backend/internal/api"
	"github.com/subiekt-planner/backend/internal/cache"
	"github.com/subiekt-planner/backend/internal/config"
	"github.com/subiekt-planner/backend/internal/ingest"
	"github.com/subiekt-planner/backend/internal/repository/postgres"
	"github.com/subiekt-planner/backend/internal/service"
	"github.com/subiekt-planner/backend/internal/storage"
	"github.com/subiekt-planner/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if cfg.Server.Mode == "debug" {
		logger.SetLevel("debug")
		gin.SetMode(gin.DebugMode)
	} else {
		logger.SetLevel("info")
		logger.UseJSON()
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db.DB.DB, cfg.Database.MigrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	ingestRepo := postgres.NewIngestRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	syncRunRepo := postgres.NewSyncRunRepository(db)

	// Initialize cache; a broken redis config degrades to no caching
	planCache, err := cache.NewPlanCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Plan cache unavailable, continuing without it")
		planCache = cache.NewNoopPlanCache()
	}

	var archiver storage.Archiver
	if cfg.Archive.Enabled {
		archiver, err = storage.NewMinioArchiver(cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to initialize export archive: %v", err)
		}
	}

	// Initialize services
	services := &api.Services{
		IngestService:  ingest.NewService(ingestRepo, syncRunRepo, planCache),
		PlanService:    service.NewPlanService(planRepo, planCache),
		CatalogService: service.NewCatalogService(planRepo, syncRunRepo),
		Archiver:       archiver,
	}

	// Initialize HTTP server
	router := api.NewRouter(services, cfg)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
