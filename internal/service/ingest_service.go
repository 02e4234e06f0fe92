package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/geoevents-backend-go/internal/heartbeat"
	"github.com/jengzang/geoevents-backend-go/internal/models"
	"github.com/jengzang/geoevents-backend-go/internal/spatial"
	"github.com/jengzang/geoevents-backend-go/internal/store"
)

// IngestService validates incoming frame/vision payloads, assigns a
// spatial cell, and persists blob + log record. The blob is always
// written before the log line: an event whose blob failed to persist
// must never reach the log.
type IngestService struct {
	log     *store.EventLog
	blobs   *store.BlobStore
	tracker *heartbeat.Tracker
}

// NewIngestService creates a new ingest service
func NewIngestService(log *store.EventLog, blobs *store.BlobStore, tracker *heartbeat.Tracker) *IngestService {
	return &IngestService{
		log:     log,
		blobs:   blobs,
		tracker: tracker,
	}
}

// IngestFrame persists one frame event on behalf of an authenticated
// node. Any node_id in the payload has already been discarded by the
// caller; the authenticated node's id is authoritative.
func (s *IngestService) IngestFrame(node *models.Node, req models.FrameRequest) (*models.Event, error) {
	if req.Lat == nil {
		return nil, invalid("lat", "lat is required")
	}
	if req.Lon == nil {
		return nil, invalid("lon", "lon is required")
	}
	if !spatial.ValidLatLng(*req.Lat, *req.Lon) {
		return nil, invalid("lat", "lat/lon out of range")
	}
	if req.JPEGBase64 == "" {
		return nil, invalid("jpeg_base64", "jpeg_base64 is required")
	}
	jpeg, err := base64.StdEncoding.DecodeString(req.JPEGBase64)
	if err != nil {
		return nil, invalid("jpeg_base64", "jpeg_base64 is not valid base64")
	}
	if len(jpeg) == 0 {
		return nil, invalid("jpeg_base64", "jpeg_base64 decodes to empty data")
	}

	res, err := resolveResolution(req.H3Res)
	if err != nil {
		return nil, err
	}

	event := models.Event{
		ID:            uuid.NewString(),
		Type:          models.EventTypeFrame,
		TS:            resolveTS(req.TS),
		NodeID:        node.NodeID,
		Lat:           *req.Lat,
		Lon:           *req.Lon,
		Cell:          spatial.CellID(*req.Lat, *req.Lon, res),
		H3Res:         res,
		JPEGSizeBytes: len(jpeg),
		Heading:       req.Heading,
		Transcript:    req.Transcript,
	}

	blobName := event.ID + ".jpg"
	if err := s.blobs.Put(blobName, jpeg); err != nil {
		return nil, fmt.Errorf("failed to store frame blob: %w", err)
	}
	event.JPEGBlob = &blobName

	if err := s.log.Append(&event); err != nil {
		return nil, fmt.Errorf("failed to append frame event: %w", err)
	}
	return &event, nil
}

// IngestVision persists one vision event. Vision ingestion is
// authenticated only by the caller-supplied node_id string, with no
// bearer-token check. This asymmetry with frame ingestion is carried
// over deliberately; do not unify the two without clarifying whether
// vision sources are meant to be less trusted.
func (s *IngestService) IngestVision(req models.VisionRequest) (*models.Event, error) {
	if req.NodeID == "" {
		return nil, invalid("node_id", "node_id is required")
	}
	if req.Lat == nil {
		return nil, invalid("lat", "lat is required")
	}
	if req.Lon == nil {
		return nil, invalid("lon", "lon is required")
	}
	if !spatial.ValidLatLng(*req.Lat, *req.Lon) {
		return nil, invalid("lat", "lat/lon out of range")
	}
	if !models.VisionEventTypes[req.EventType] {
		return nil, invalid("event_type", "event_type must be one of motion, person, vehicle, package, animal")
	}
	if req.Confidence == nil {
		return nil, invalid("confidence", "confidence is required")
	}
	if *req.Confidence < 0 || *req.Confidence > 1 {
		return nil, invalid("confidence", "confidence must be between 0 and 1")
	}
	if len(req.Metadata) > 0 && !structuredJSON(req.Metadata) {
		return nil, invalid("metadata", "metadata must be an object or array")
	}

	var jpeg []byte
	if req.JPEGBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.JPEGBase64)
		if err != nil {
			return nil, invalid("jpeg_base64", "jpeg_base64 is not valid base64")
		}
		if len(decoded) == 0 {
			return nil, invalid("jpeg_base64", "jpeg_base64 decodes to empty data")
		}
		jpeg = decoded
	}

	res, err := resolveResolution(req.H3Res)
	if err != nil {
		return nil, err
	}

	event := models.Event{
		ID:            uuid.NewString(),
		Type:          models.EventTypeVision,
		TS:            resolveTS(req.TS),
		NodeID:        req.NodeID,
		Lat:           *req.Lat,
		Lon:           *req.Lon,
		Cell:          spatial.CellID(*req.Lat, *req.Lon, res),
		H3Res:         res,
		JPEGSizeBytes: len(jpeg),
		EventType:     req.EventType,
		Confidence:    req.Confidence,
		Metadata:      req.Metadata,
	}

	if jpeg != nil {
		blobName := event.ID + ".jpg"
		if err := s.blobs.Put(blobName, jpeg); err != nil {
			return nil, fmt.Errorf("failed to store vision blob: %w", err)
		}
		event.JPEGBlob = &blobName
	}

	if err := s.log.Append(&event); err != nil {
		return nil, fmt.Errorf("failed to append vision event: %w", err)
	}

	s.tracker.IncrementEventsDetected(req.NodeID)
	return &event, nil
}

// structuredJSON reports whether raw is a JSON object or array, as
// opposed to a scalar
func structuredJSON(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func resolveResolution(res *int) (int, error) {
	if res == nil {
		return spatial.DefaultResolution, nil
	}
	if !spatial.ValidResolution(*res) {
		return 0, invalid("h3_res", "h3_res must be between 0 and 15")
	}
	return *res, nil
}

func resolveTS(ts *int64) int64 {
	if ts != nil && *ts > 0 {
		return *ts
	}
	return time.Now().Unix()
}
