package main

import (
	"log"
	"os"

	"github.com/jengzang/geoevents-backend-go/internal/api"
	"github.com/jengzang/geoevents-backend-go/internal/config"
	"github.com/jengzang/geoevents-backend-go/internal/handler"
	"github.com/jengzang/geoevents-backend-go/internal/heartbeat"
	"github.com/jengzang/geoevents-backend-go/internal/service"
	"github.com/jengzang/geoevents-backend-go/internal/store"
)

func main() {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal("Failed to create data dir:", err)
	}

	registry := store.NewRegistry(cfg.NodesPath())
	eventLog := store.NewEventLog(cfg.EventLogPath())
	blobs, err := store.NewBlobStore(cfg.BlobsDir())
	if err != nil {
		log.Fatal("Failed to initialize blob store:", err)
	}

	// Heartbeat state lives for the duration of the process only
	tracker := heartbeat.NewTracker()
	defer tracker.Clear()

	nodeService := service.NewNodeService(registry, tracker, cfg.JWTSecret)
	ingestService := service.NewIngestService(eventLog, blobs, tracker)
	worldService := service.NewWorldService(eventLog, registry, tracker)

	router := api.SetupRouter(cfg, registry, api.Handlers{
		Nodes:  handler.NewNodeHandler(nodeService, cfg.RegisterSecret),
		Ingest: handler.NewIngestHandler(ingestService),
		World:  handler.NewWorldHandler(worldService),
		Blobs:  handler.NewBlobHandler(blobs),
	})

	log.Printf("Server starting on port %s (data dir %s)", cfg.Port, cfg.DataDir)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
