package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/geoevents-backend-go/internal/payment"
	"github.com/jengzang/geoevents-backend-go/pkg/response"
)

// PaymentGate enforces the toy x402 protocol on priced routes. When
// enforcement is off, or the route carries no price, requests pass
// through untouched. A failed or missing payment proof yields a
// structured 402 carrying the route's pricing metadata, never a bare
// status code.
func PaymentGate(enabled bool, table *payment.Table) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, priced := table.Price(route); !priced {
			c.Next()
			return
		}

		token := c.GetHeader(payment.TokenHeader)
		signature := c.GetHeader(payment.SignatureHeader)
		if !table.Verify(token, signature) {
			response.PaymentRequired(c, table.QuoteFor(route))
			c.Abort()
			return
		}
		c.Next()
	}
}
