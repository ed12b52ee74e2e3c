package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/subiekt-planner/backend/internal/service"
)

type CatalogHandler struct {
	service *service.CatalogService
}

func NewCatalogHandler(service *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) GetSuppliers(c *gin.Context) {
	suppliers, err := h.service.ListSuppliers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch suppliers", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suppliers": suppliers, "count": len(suppliers)})
}

func (h *CatalogHandler) GetBranches(c *gin.Context) {
	branches, err := h.service.ListBranches(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch branches", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"branches": branches, "count": len(branches)})
}

func (h *CatalogHandler) GetProducts(c *gin.Context) {
	products, err := h.service.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch products", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// GetSales returns sales from the trailing window, 90 days by default.
func (h *CatalogHandler) GetSales(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	if days <= 0 {
		days = 90
	}

	sales, err := h.service.ListRecentSales(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch sales", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sales": sales, "count": len(sales), "days": days})
}

func (h *CatalogHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetSyncStatus reports the most recent connector run, if any.
func (h *CatalogHandler) GetSyncStatus(c *gin.Context) {
	run, err := h.service.LatestSyncRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch sync status", "details": err.Error()})
		return
	}

	if run == nil {
		c.JSON(http.StatusOK, gin.H{"synced": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"synced": true, "run": run})
}
