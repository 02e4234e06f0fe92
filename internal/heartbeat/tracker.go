package heartbeat

import (
	"sync"
	"time"

	"github.com/jengzang/geoevents-backend-go/internal/models"
)

// OnlineWindow is how recently a node must have pinged to count as
// online. Nodes never heard from are absent from the online set, not
// shown as offline.
const OnlineWindow = 10 * time.Minute

// Tracker holds per-node heartbeat state in memory. It is created at
// service start and injected where needed; nothing is persisted, so a
// process restart loses all of it. The mutex only protects the map
// itself; per-node updates are last-writer-wins.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[string]models.HeartbeatStatus
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		statuses: make(map[string]models.HeartbeatStatus),
	}
}

// Upsert merges an update into the node's status field by field: a
// heartbeat omitting a field does not erase the previously recorded
// value. Returns the merged status.
func (t *Tracker) Upsert(nodeID string, at time.Time, update models.HeartbeatRequest) models.HeartbeatStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.statuses[nodeID]
	status.NodeID = nodeID
	status.LastHeartbeat = at

	if update.BatteryPct != nil {
		status.BatteryPct = update.BatteryPct
	}
	if update.Wifi != nil {
		status.Wifi = update.Wifi
	}
	if update.FramesSent != nil {
		status.FramesSent = update.FramesSent
	}
	if update.EventsDetected != nil {
		status.EventsDetected = update.EventsDetected
	}
	if update.Lat != nil && update.Lon != nil {
		status.Lat = update.Lat
		status.Lon = update.Lon
	}

	t.statuses[nodeID] = status
	return status
}

// SetLocation records a location for a node without touching the rest
// of its status or its last-heartbeat time
func (t *Tracker) SetLocation(nodeID string, lat, lon float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.statuses[nodeID]
	status.NodeID = nodeID
	status.Lat = &lat
	status.Lon = &lon
	t.statuses[nodeID] = status
}

// IncrementEventsDetected bumps the events_detected counter for a
// node. Called as a side effect of vision-event ingestion.
func (t *Tracker) IncrementEventsDetected(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.statuses[nodeID]
	status.NodeID = nodeID
	var n int64 = 1
	if status.EventsDetected != nil {
		n = *status.EventsDetected + 1
	}
	status.EventsDetected = &n
	t.statuses[nodeID] = status
}

// Get returns the current status for a node
func (t *Tracker) Get(nodeID string) (models.HeartbeatStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status, ok := t.statuses[nodeID]
	return status, ok
}

// Online returns all nodes whose last heartbeat is within OnlineWindow
// of now
func (t *Tracker) Online(now time.Time) []models.HeartbeatStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var online []models.HeartbeatStatus
	for _, status := range t.statuses {
		if status.LastHeartbeat.IsZero() {
			continue
		}
		if now.Sub(status.LastHeartbeat) <= OnlineWindow {
			online = append(online, status)
		}
	}
	return online
}

// CountOnline returns the number of online nodes
func (t *Tracker) CountOnline(now time.Time) int {
	return len(t.Online(now))
}

// Clear drops all state, used at shutdown and between tests
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses = make(map[string]models.HeartbeatStatus)
}
