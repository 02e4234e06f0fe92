package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/geoevents-backend-go/internal/coverage"
	"github.com/jengzang/geoevents-backend-go/internal/models"
	"github.com/jengzang/geoevents-backend-go/internal/service"
	"github.com/jengzang/geoevents-backend-go/pkg/response"
)

// WorldHandler handles HTTP requests for spatial aggregations and
// point queries
type WorldHandler struct {
	worldService *service.WorldService
}

// NewWorldHandler creates a new world handler
func NewWorldHandler(worldService *service.WorldService) *WorldHandler {
	return &WorldHandler{worldService: worldService}
}

// Cells handles GET /v1/world/cells
func (h *WorldHandler) Cells(c *gin.Context) {
	var filter models.CoverageFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	result, err := h.worldService.Coverage(coverage.Params{
		Res:   filter.Res,
		Hours: filter.Hours,
		Limit: filter.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// VisionCoverage handles GET /v1/vision/coverage — the same
// aggregation restricted to vision-type events
func (h *WorldHandler) VisionCoverage(c *gin.Context) {
	var filter models.CoverageFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	result, err := h.worldService.Coverage(coverage.Params{
		Res:        filter.Res,
		Hours:      filter.Hours,
		Limit:      filter.Limit,
		TypeFilter: models.EventTypeVision,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// Stats handles GET /v1/world/stats
func (h *WorldHandler) Stats(c *gin.Context) {
	var filter models.StatsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	stats, err := h.worldService.Stats(filter.Res, filter.Hours)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, stats)
}

// Events handles GET /v1/world/events
func (h *WorldHandler) Events(c *gin.Context) {
	var filter models.CellEventsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	events, err := h.worldService.EventsByCell(filter.Cell, filter.Res, filter.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"events": events,
		"count":  len(events),
	})
}
