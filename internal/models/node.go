package models

import "time"

// Node represents a registered edge node identity
type Node struct {
	NodeID       string    `json:"node_id"`
	Token        string    `json:"token"`
	Name         string    `json:"name,omitempty"`
	Capabilities []string  `json:"capabilities,omitempty"`
	Lat          *float64  `json:"lat,omitempty"`
	Lon          *float64  `json:"lon,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the payload for POST /v1/nodes/register
type RegisterRequest struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	NodeID string `json:"node_id"`
	Token  string `json:"token"`
}

// NodesDocument is the on-disk format of the node registry file.
// The whole document is rewritten on every registration.
type NodesDocument struct {
	Nodes map[string]Node `json:"nodes"`
}
