package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/geoevents-backend-go/internal/middleware"
	"github.com/jengzang/geoevents-backend-go/internal/models"
	"github.com/jengzang/geoevents-backend-go/internal/service"
	"github.com/jengzang/geoevents-backend-go/pkg/response"
)

// IngestHandler handles HTTP requests for event ingestion
type IngestHandler struct {
	ingestService *service.IngestService
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestService *service.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

// Frame handles POST /v1/events/frame. The route runs behind
// middleware.NodeAuth, so the node here is always the authenticated
// one; whatever node_id the payload carried is discarded.
func (h *IngestHandler) Frame(c *gin.Context) {
	value, ok := c.Get(middleware.NodeKey)
	if !ok {
		response.Unauthorized(c, "missing bearer token")
		return
	}
	node := value.(*models.Node)

	var req models.FrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid JSON body")
		return
	}
	req.NodeID = node.NodeID

	event, err := h.ingestService.IngestFrame(node, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":   event.ID,
		"cell": event.Cell,
		"ts":   event.TS,
	})
}

// Vision handles POST /v1/vision/events
func (h *IngestHandler) Vision(c *gin.Context) {
	var req models.VisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid JSON body")
		return
	}

	event, err := h.ingestService.IngestVision(req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":   event.ID,
		"cell": event.Cell,
		"ts":   event.TS,
	})
}
