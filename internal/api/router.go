package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/geoevents-backend-go/internal/config"
	"github.com/jengzang/geoevents-backend-go/internal/handler"
	"github.com/jengzang/geoevents-backend-go/internal/middleware"
	"github.com/jengzang/geoevents-backend-go/internal/payment"
	"github.com/jengzang/geoevents-backend-go/internal/store"
)

// Handlers groups everything the router wires together
type Handlers struct {
	Nodes  *handler.NodeHandler
	Ingest *handler.IngestHandler
	World  *handler.WorldHandler
	Blobs  *handler.BlobHandler
}

// PriceTable builds the static route->price map for the payment gate.
// Only these read routes are priced.
func PriceTable(cfg *config.Config) *payment.Table {
	return payment.NewTable(map[string]int{
		"/v1/world/cells":  1,
		"/v1/world/events": 2,
	}, payment.Config{
		Currency:      cfg.PaymentCurrency,
		Chain:         cfg.PaymentChain,
		Description:   cfg.PaymentDescription,
		PaymentURL:    cfg.PaymentURL,
		DemoToken:     cfg.PaymentDemoToken,
		SigningSecret: cfg.PaymentSigningSecret,
	})
}

// SetupRouter wires middleware and routes
func SetupRouter(cfg *config.Config, registry *store.Registry, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())

	// CORS middleware, permissive by default
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+
			handler.RegisterSecretHeader+", "+payment.TokenHeader+", "+payment.SignatureHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	paymentGate := middleware.PaymentGate(cfg.PaymentsEnabled, PriceTable(cfg))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Geo Events API is running",
		})
	})

	v1 := r.Group("/v1")
	{
		nodes := v1.Group("/nodes")
		{
			nodes.POST("/register", middleware.RateLimit(30, time.Minute), h.Nodes.Register)
			nodes.POST("/heartbeat", h.Nodes.Heartbeat)
			nodes.GET("/online", h.Nodes.Online)
		}

		events := v1.Group("/events")
		{
			events.POST("/frame", middleware.NodeAuth(registry, cfg.JWTSecret), h.Ingest.Frame)
		}

		vision := v1.Group("/vision")
		{
			vision.POST("/events", h.Ingest.Vision)
			vision.GET("/coverage", h.World.VisionCoverage)
		}

		world := v1.Group("/world")
		world.Use(paymentGate)
		{
			world.GET("/cells", h.World.Cells)
			world.GET("/stats", h.World.Stats)
			world.GET("/events", h.World.Events)
		}

		v1.GET("/blobs/:name", h.Blobs.Get)
	}

	return r
}
