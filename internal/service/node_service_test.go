package service

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/geoevents-backend-go/internal/heartbeat"
	"github.com/jengzang/geoevents-backend-go/internal/models"
	"github.com/jengzang/geoevents-backend-go/internal/store"
)

func i64(v int64) *int64 { return &v }

func newNodeFixture(t *testing.T) (*NodeService, *store.Registry, *heartbeat.Tracker) {
	t.Helper()
	registry := store.NewRegistry(filepath.Join(t.TempDir(), "nodes.json"))
	tracker := heartbeat.NewTracker()
	return NewNodeService(registry, tracker, "test-secret"), registry, tracker
}

func TestRegisterIssuesVerifiableToken(t *testing.T) {
	svc, registry, _ := newNodeFixture(t)

	reg, err := svc.Register(models.RegisterRequest{Name: "cam-1"})
	require.NoError(t, err)
	require.NotEmpty(t, reg.NodeID)
	require.NotEmpty(t, reg.Token)

	// The token verifies under the signing secret and carries the
	// node id.
	parsed, err := jwt.Parse(reg.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, reg.NodeID, sub)

	// The registry lookup by token stays authoritative.
	node, err := registry.FindByToken(reg.Token)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, reg.NodeID, node.NodeID)
	assert.Equal(t, "cam-1", node.Name)
}

func TestRegisterValidatesLocationPair(t *testing.T) {
	svc, _, _ := newNodeFixture(t)

	lat := 37.77
	_, err := svc.Register(models.RegisterRequest{Lat: &lat})
	require.Error(t, err)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
}

func TestHeartbeatFallsBackToRegisteredLocation(t *testing.T) {
	svc, registry, _ := newNodeFixture(t)

	lat, lon := 37.77, -122.42
	require.NoError(t, registry.Create(models.Node{
		NodeID: "n1", Token: "tok", Lat: &lat, Lon: &lon, CreatedAt: time.Now(),
	}))

	// Heartbeat omits lat/lon and there is no previous heartbeat
	// location, so the registered location applies.
	status, err := svc.Heartbeat(models.HeartbeatRequest{NodeID: "n1"})
	require.NoError(t, err)
	require.NotNil(t, status.Lat)
	assert.Equal(t, 37.77, *status.Lat)
	assert.Equal(t, -122.42, *status.Lon)
}

func TestHeartbeatPrefersPreviousHeartbeatLocation(t *testing.T) {
	svc, registry, _ := newNodeFixture(t)

	lat, lon := 1.0, 2.0
	require.NoError(t, registry.Create(models.Node{
		NodeID: "n1", Token: "tok", Lat: &lat, Lon: &lon, CreatedAt: time.Now(),
	}))

	hlat, hlon := 37.77, -122.42
	_, err := svc.Heartbeat(models.HeartbeatRequest{NodeID: "n1", Lat: &hlat, Lon: &hlon})
	require.NoError(t, err)

	// The previous heartbeat's location outranks the registered one.
	status, err := svc.Heartbeat(models.HeartbeatRequest{NodeID: "n1"})
	require.NoError(t, err)
	require.NotNil(t, status.Lat)
	assert.Equal(t, 37.77, *status.Lat)
}

func TestHeartbeatFieldValidation(t *testing.T) {
	svc, _, _ := newNodeFixture(t)

	bad := []models.HeartbeatRequest{
		{},                          // missing node_id
		{NodeID: "n1", BatteryPct: f64(150)},
		{NodeID: "n1", BatteryPct: f64(-1)},
		{NodeID: "n1", FramesSent: i64(-5)},
		{NodeID: "n1", EventsDetected: i64(-1)},
		{NodeID: "n1", TS: i64(0)},
	}
	for _, req := range bad {
		_, err := svc.Heartbeat(req)
		var vErr *ValidationError
		require.Error(t, err)
		assert.True(t, errors.As(err, &vErr), "want validation error for %+v", req)
	}

	ok := []models.HeartbeatRequest{
		{NodeID: "n1"},
		{NodeID: "n1", BatteryPct: f64(0)},
		{NodeID: "n1", BatteryPct: f64(100)},
		{NodeID: "n1", FramesSent: i64(0)},
	}
	for _, req := range ok {
		_, err := svc.Heartbeat(req)
		assert.NoError(t, err, "request %+v", req)
	}
}

func TestOnlineJoinsRegisteredNames(t *testing.T) {
	svc, registry, tracker := newNodeFixture(t)

	require.NoError(t, registry.Create(models.Node{NodeID: "n1", Token: "t", Name: "cam-1"}))
	tracker.Upsert("n1", time.Now(), models.HeartbeatRequest{})
	tracker.Upsert("unregistered", time.Now(), models.HeartbeatRequest{})

	online, err := svc.Online(time.Now())
	require.NoError(t, err)
	require.Len(t, online, 2)

	// Sorted by node id for a stable response.
	assert.Equal(t, "n1", online[0].NodeID)
	assert.Equal(t, "cam-1", online[0].Name)
	assert.Equal(t, "unregistered", online[1].NodeID)
	assert.Empty(t, online[1].Name)
}
