package models

import "encoding/json"

// Event types stored in the log
const (
	EventTypeFrame  = "frame"
	EventTypeVision = "vision"
)

// VisionEventTypes is the fixed set of detection classes accepted
// for vision events.
var VisionEventTypes = map[string]bool{
	"motion":  true,
	"person":  true,
	"vehicle": true,
	"package": true,
	"animal":  true,
}

// Event represents one record of the append-only event log.
// Records are immutable once appended; the cell is computed once at
// ingestion and never recomputed for that record.
type Event struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	TS            int64   `json:"ts"` // Unix timestamp in seconds
	NodeID        string  `json:"node_id"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	Cell          string  `json:"cell"`
	H3Res         int     `json:"h3_res"`
	JPEGSizeBytes int     `json:"jpeg_size_bytes"`
	JPEGBlob      *string `json:"jpeg_blob"`

	// Frame-specific fields
	Heading    *float64 `json:"heading,omitempty"`
	Transcript string   `json:"transcript,omitempty"`

	// Vision-specific fields
	EventType  string          `json:"event_type,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// FrameRequest is the payload for POST /v1/events/frame.
// The node_id field is ignored and overwritten by the authenticated
// node's id.
type FrameRequest struct {
	NodeID     string   `json:"node_id"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	JPEGBase64 string   `json:"jpeg_base64"`
	Heading    *float64 `json:"heading"`
	Transcript string   `json:"transcript"`
	H3Res      *int     `json:"h3_res"`
	TS         *int64   `json:"ts"`
}

// VisionRequest is the payload for POST /v1/vision/events
type VisionRequest struct {
	NodeID     string          `json:"node_id"`
	Lat        *float64        `json:"lat"`
	Lon        *float64        `json:"lon"`
	EventType  string          `json:"event_type"`
	Confidence *float64        `json:"confidence"`
	JPEGBase64 string          `json:"jpeg_base64"`
	Metadata   json.RawMessage `json:"metadata"`
	H3Res      *int            `json:"h3_res"`
	TS         *int64          `json:"ts"`
}
