package handler

import (
	"os"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/geoevents-backend-go/internal/store"
	"github.com/jengzang/geoevents-backend-go/pkg/response"
)

// BlobHandler serves stored JPEG blobs by filename
type BlobHandler struct {
	blobs *store.BlobStore
}

// NewBlobHandler creates a new blob handler
func NewBlobHandler(blobs *store.BlobStore) *BlobHandler {
	return &BlobHandler{blobs: blobs}
}

// Get handles GET /v1/blobs/:name. Names that would escape the blobs
// directory are rejected as not found.
func (h *BlobHandler) Get(c *gin.Context) {
	name := c.Param("name")
	path, err := h.blobs.Resolve(name)
	if err != nil {
		response.NotFound(c, "blob not found")
		return
	}
	if _, err := os.Stat(path); err != nil {
		response.NotFound(c, "blob not found")
		return
	}
	c.Header("Content-Type", "image/jpeg")
	c.File(path)
}
