// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/subiekt-planner/backend/internal/api/handlers"
	"github.com/subiekt-planner/backend/internal/api/middleware"
	"github.com/subiekt-planner/backend/internal/config"
	"github.com/subiekt-planner/backend/internal/ingest"
	"github.com/subiekt-planner/backend/internal/service"
	"github.com/subiekt-planner/backend/internal/storage"
)

type Services struct {
	IngestService  *ingest.Service
	PlanService    *service.PlanService
	CatalogService *service.CatalogService
	Archiver       storage.Archiver
}

func NewRouter(services *Services, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Client-Id"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(cfg.Server.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.IngestService != nil {
			ingestHandler := handlers.NewIngestHandler(services.IngestService)
			ingestGroup := apiGroup.Group("/ingest")
			ingestGroup.Use(middleware.BearerAuth(cfg.Auth.IngestToken, cfg.Auth.ClientID))
			{
				ingestGroup.POST("/:resource", ingestHandler.Ingest)
			}
		}

		readGroup := apiGroup.Group("")
		readGroup.Use(middleware.BearerAuth(cfg.Auth.ReadToken, ""))

		if services.PlanService != nil {
			planHandler := handlers.NewPlanHandler(services.PlanService, cfg.Plan, services.Archiver)
			planGroup := readGroup.Group("/plan")
			{
				planGroup.POST("", planHandler.BuildPlan)
				planGroup.GET("/export", planHandler.ExportPlan)
			}
		}

		if services.CatalogService != nil {
			catalogHandler := handlers.NewCatalogHandler(services.CatalogService)
			{
				readGroup.GET("/suppliers", catalogHandler.GetSuppliers)
				readGroup.GET("/branches", catalogHandler.GetBranches)
				readGroup.GET("/products", catalogHandler.GetProducts)
				readGroup.GET("/sales", catalogHandler.GetSales)
				readGroup.GET("/stats", catalogHandler.GetStats)
				readGroup.GET("/sync-runs/latest", catalogHandler.GetSyncStatus)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
