package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/geoevents-backend-go/internal/store"
	"github.com/jengzang/geoevents-backend-go/pkg/response"
)

// NodeKey is the gin context key under which NodeAuth stores the
// authenticated node
const NodeKey = "auth_node"

// NodeAuth requires a bearer token that resolves to a registered node.
// A missing token is a 401; a token that does not verify or does not
// resolve is a 403. Any node_id the payload carries is ignored by the
// handlers downstream; only the authenticated identity counts.
func NodeAuth(registry *store.Registry, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" || token == header {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		// The signature check catches malformed or foreign tokens
		// early; the registry lookup stays authoritative.
		_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			response.Forbidden(c, "invalid bearer token")
			c.Abort()
			return
		}

		node, err := registry.FindByToken(token)
		if err != nil {
			response.InternalError(c, "failed to read node registry")
			c.Abort()
			return
		}
		if node == nil {
			response.Forbidden(c, "unknown bearer token")
			c.Abort()
			return
		}

		c.Set(NodeKey, node)
		c.Next()
	}
}
