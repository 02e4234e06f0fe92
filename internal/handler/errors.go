package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/geoevents-backend-go/internal/service"
	"github.com/jengzang/geoevents-backend-go/pkg/response"
)

// writeError maps service errors onto the HTTP taxonomy: validation
// failures are 400s with the field-specific message, anything else is
// a 500.
func writeError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		response.BadRequest(c, vErr.Error())
		return
	}
	response.InternalError(c, err.Error())
}
