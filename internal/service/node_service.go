package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jengzang/geoevents-backend-go/internal/heartbeat"
	"github.com/jengzang/geoevents-backend-go/internal/models"
	"github.com/jengzang/geoevents-backend-go/internal/spatial"
	"github.com/jengzang/geoevents-backend-go/internal/store"
)

// NodeService handles node registration, heartbeats and the online set
type NodeService struct {
	registry  *store.Registry
	tracker   *heartbeat.Tracker
	jwtSecret string
}

// NewNodeService creates a new node service
func NewNodeService(registry *store.Registry, tracker *heartbeat.Tracker, jwtSecret string) *NodeService {
	return &NodeService{
		registry:  registry,
		tracker:   tracker,
		jwtSecret: jwtSecret,
	}
}

// Register creates a node identity and issues its bearer token. The
// token is an HS256 JWT carrying the node id, but the registry lookup
// by token stays authoritative during ingestion.
func (s *NodeService) Register(req models.RegisterRequest) (*models.RegisterResponse, error) {
	if req.Lat != nil || req.Lon != nil {
		if req.Lat == nil || req.Lon == nil {
			return nil, invalid("lat", "lat and lon must be provided together")
		}
		if !spatial.ValidLatLng(*req.Lat, *req.Lon) {
			return nil, invalid("lat", "lat/lon out of range")
		}
	}

	nodeID := uuid.NewString()
	now := time.Now()

	claims := jwt.MapClaims{
		"sub": nodeID,
		"iat": now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign node token: %w", err)
	}

	node := models.Node{
		NodeID:       nodeID,
		Token:        token,
		Name:         req.Name,
		Capabilities: req.Capabilities,
		Lat:          req.Lat,
		Lon:          req.Lon,
		CreatedAt:    now,
	}
	if err := s.registry.Create(node); err != nil {
		return nil, fmt.Errorf("failed to persist node: %w", err)
	}

	return &models.RegisterResponse{NodeID: nodeID, Token: token}, nil
}

// Heartbeat validates and applies one liveness/telemetry ping. Each
// optional field is validated independently; any single invalid field
// rejects the whole call.
func (s *NodeService) Heartbeat(req models.HeartbeatRequest) (*models.HeartbeatStatus, error) {
	if req.NodeID == "" {
		return nil, invalid("node_id", "node_id is required")
	}
	if req.BatteryPct != nil && (*req.BatteryPct < 0 || *req.BatteryPct > 100) {
		return nil, invalid("battery_pct", "battery_pct must be between 0 and 100")
	}
	if req.FramesSent != nil && *req.FramesSent < 0 {
		return nil, invalid("frames_sent", "frames_sent must be >= 0")
	}
	if req.EventsDetected != nil && *req.EventsDetected < 0 {
		return nil, invalid("events_detected", "events_detected must be >= 0")
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		return nil, invalid("lat", "lat and lon must be provided together")
	}
	if req.Lat != nil && !spatial.ValidLatLng(*req.Lat, *req.Lon) {
		return nil, invalid("lat", "lat/lon out of range")
	}
	if req.TS != nil && *req.TS <= 0 {
		return nil, invalid("ts", "ts must be a positive unix timestamp")
	}

	at := time.Now()
	if req.TS != nil {
		at = time.Unix(*req.TS, 0)
	}

	status := s.tracker.Upsert(req.NodeID, at, req)

	// Location precedence when the heartbeat omits lat/lon: previous
	// heartbeat location (kept by the merge), then the node's
	// registered location, then null.
	if status.Lat == nil || status.Lon == nil {
		node, err := s.registry.Get(req.NodeID)
		if err == nil && node != nil && node.Lat != nil && node.Lon != nil {
			s.tracker.SetLocation(req.NodeID, *node.Lat, *node.Lon)
			status.Lat = node.Lat
			status.Lon = node.Lon
		}
	}

	return &status, nil
}

// Online returns all nodes heard from within the online window,
// enriched with their registered names. Nodes never heard from are
// absent, not shown as offline.
func (s *NodeService) Online(now time.Time) ([]models.OnlineNode, error) {
	statuses := s.tracker.Online(now)

	names := make(map[string]string)
	if doc, err := s.registry.Load(); err == nil {
		for id, node := range doc.Nodes {
			names[id] = node.Name
		}
	}

	online := make([]models.OnlineNode, 0, len(statuses))
	for _, st := range statuses {
		online = append(online, models.OnlineNode{
			NodeID:         st.NodeID,
			Name:           names[st.NodeID],
			LastHeartbeat:  st.LastHeartbeat,
			BatteryPct:     st.BatteryPct,
			Wifi:           st.Wifi,
			FramesSent:     st.FramesSent,
			EventsDetected: st.EventsDetected,
			Lat:            st.Lat,
			Lon:            st.Lon,
		})
	}
	sort.Slice(online, func(i, j int) bool { return online[i].NodeID < online[j].NodeID })
	return online, nil
}
