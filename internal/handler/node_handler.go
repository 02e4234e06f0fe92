package handler

import (
	"crypto/subtle"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/geoevents-backend-go/internal/models"
	"github.com/jengzang/geoevents-backend-go/internal/service"
	"github.com/jengzang/geoevents-backend-go/pkg/response"
)

// RegisterSecretHeader carries the optional shared secret gating node
// registration
const RegisterSecretHeader = "X-Register-Secret"

// NodeHandler handles HTTP requests for node identity and liveness
type NodeHandler struct {
	nodeService    *service.NodeService
	registerSecret string
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(nodeService *service.NodeService, registerSecret string) *NodeHandler {
	return &NodeHandler{
		nodeService:    nodeService,
		registerSecret: registerSecret,
	}
}

// Register handles POST /v1/nodes/register
func (h *NodeHandler) Register(c *gin.Context) {
	if h.registerSecret != "" {
		provided := c.GetHeader(RegisterSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.registerSecret)) != 1 {
			response.Forbidden(c, "invalid registration secret")
			return
		}
	}

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid JSON body")
		return
	}

	result, err := h.nodeService.Register(req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// Heartbeat handles POST /v1/nodes/heartbeat
func (h *NodeHandler) Heartbeat(c *gin.Context) {
	var req models.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid JSON body")
		return
	}

	status, err := h.nodeService.Heartbeat(req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, status)
}

// Online handles GET /v1/nodes/online
func (h *NodeHandler) Online(c *gin.Context) {
	online, err := h.nodeService.Online(time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"nodes": online,
		"count": len(online),
	})
}
