package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subiekt-planner/backend/internal/ingest"
)

// ingestPayload is the batch envelope the ERP connector posts. Data is
// kept raw so the normalization layer can deal with the connector's
// field-name variants per resource.
type ingestPayload struct {
	ClientID  string `json:"clientId" binding:"required"`
	SyncRunID string `json:"syncRunId" binding:"required"`
	// An empty batch is valid; a missing data array is not.
	Data []json.RawMessage `json:"data"`
}

type IngestHandler struct {
	service *ingest.Service
}

func NewIngestHandler(service *ingest.Service) *IngestHandler {
	return &IngestHandler{service: service}
}

// Ingest dispatches one batch to the per-resource ingestion method.
// Unknown resource names are a 404 so connector typos fail loudly
// instead of silently dropping data.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var payload ingestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	if payload.Data == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data must be an array"})
		return
	}

	type ingestFn func(ctx context.Context, runID, clientID string, data []json.RawMessage) (ingest.Result, error)

	resources := map[string]ingestFn{
		"suppliers": h.service.IngestSuppliers,
		"branches":  h.service.IngestBranches,
		"products":  h.service.IngestProducts,
		"offers":    h.service.IngestOffers,
		"sales":     h.service.IngestSales,
		"stocks":    h.service.IngestStocks,
	}

	resource := c.Param("resource")
	fn, ok := resources[resource]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown resource", "resource": resource})
		return
	}

	result, err := fn(c.Request.Context(), payload.SyncRunID, payload.ClientID, payload.Data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"resource": resource,
		"accepted": result.Accepted,
		"skipped":  result.Skipped,
	})
}
