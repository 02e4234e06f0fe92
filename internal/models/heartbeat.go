package models

import "time"

// HeartbeatRequest is the payload for POST /v1/nodes/heartbeat.
// Every field except node_id is optional; each one is validated
// independently and any single invalid field rejects the whole call.
type HeartbeatRequest struct {
	NodeID         string   `json:"node_id"`
	TS             *int64   `json:"ts"`
	BatteryPct     *float64 `json:"battery_pct"`
	Wifi           *string  `json:"wifi"`
	FramesSent     *int64   `json:"frames_sent"`
	EventsDetected *int64   `json:"events_detected"`
	Lat            *float64 `json:"lat"`
	Lon            *float64 `json:"lon"`
}

// HeartbeatStatus is the in-memory liveness/telemetry state for one
// node. It is never persisted; a process restart loses all of it.
type HeartbeatStatus struct {
	NodeID         string    `json:"node_id"`
	LastHeartbeat  time.Time `json:"last_heartbeat"`
	BatteryPct     *float64  `json:"battery_pct,omitempty"`
	Wifi           *string   `json:"wifi,omitempty"`
	FramesSent     *int64    `json:"frames_sent,omitempty"`
	EventsDetected *int64    `json:"events_detected,omitempty"`
	Lat            *float64  `json:"lat,omitempty"`
	Lon            *float64  `json:"lon,omitempty"`
}

// OnlineNode is one entry of GET /v1/nodes/online
type OnlineNode struct {
	NodeID         string    `json:"node_id"`
	Name           string    `json:"name,omitempty"`
	LastHeartbeat  time.Time `json:"last_heartbeat"`
	BatteryPct     *float64  `json:"battery_pct,omitempty"`
	Wifi           *string   `json:"wifi,omitempty"`
	FramesSent     *int64    `json:"frames_sent,omitempty"`
	EventsDetected *int64    `json:"events_detected,omitempty"`
	Lat            *float64  `json:"lat,omitempty"`
	Lon            *float64  `json:"lon,omitempty"`
}
