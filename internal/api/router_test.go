package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/geoevents-backend-go/internal/config"
	"github.com/jengzang/geoevents-backend-go/internal/handler"
	"github.com/jengzang/geoevents-backend-go/internal/heartbeat"
	"github.com/jengzang/geoevents-backend-go/internal/models"
	"github.com/jengzang/geoevents-backend-go/internal/payment"
	"github.com/jengzang/geoevents-backend-go/internal/service"
	"github.com/jengzang/geoevents-backend-go/internal/spatial"
	"github.com/jengzang/geoevents-backend-go/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testApp struct {
	router  *gin.Engine
	cfg     *config.Config
	tracker *heartbeat.Tracker
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *testApp {
	t.Helper()

	cfg := &config.Config{
		Port:                 ":0",
		DataDir:              t.TempDir(),
		CORSOrigin:           "*",
		JWTSecret:            "test-jwt-secret",
		PaymentCurrency:      "USDC",
		PaymentChain:         "base-sepolia",
		PaymentDescription:   "coverage data",
		PaymentURL:           "https://example.com/pay",
		PaymentDemoToken:     "demo-token",
		PaymentSigningSecret: "signing-secret",
	}
	if mutate != nil {
		mutate(cfg)
	}

	registry := store.NewRegistry(cfg.NodesPath())
	eventLog := store.NewEventLog(cfg.EventLogPath())
	blobs, err := store.NewBlobStore(cfg.BlobsDir())
	require.NoError(t, err)
	tracker := heartbeat.NewTracker()

	nodeService := service.NewNodeService(registry, tracker, cfg.JWTSecret)
	ingestService := service.NewIngestService(eventLog, blobs, tracker)
	worldService := service.NewWorldService(eventLog, registry, tracker)

	router := SetupRouter(cfg, registry, Handlers{
		Nodes:  handler.NewNodeHandler(nodeService, cfg.RegisterSecret),
		Ingest: handler.NewIngestHandler(ingestService),
		World:  handler.NewWorldHandler(worldService),
		Blobs:  handler.NewBlobHandler(blobs),
	})
	return &testApp{router: router, cfg: cfg, tracker: tracker}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	if target != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, target))
	}
}

func registerNode(t *testing.T, app *testApp, name string) models.RegisterResponse {
	t.Helper()
	headers := map[string]string{}
	if app.cfg.RegisterSecret != "" {
		headers[handler.RegisterSecretHeader] = app.cfg.RegisterSecret
	}
	w := app.do(t, http.MethodPost, "/v1/nodes/register", gin.H{"name": name}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reg models.RegisterResponse
	decodeData(t, w, &reg)
	require.NotEmpty(t, reg.NodeID)
	require.NotEmpty(t, reg.Token)
	return reg
}

var tinyJPEG = []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x01, 0xFF, 0xD9}

func sendFrame(t *testing.T, app *testApp, token string, lat, lon float64) {
	t.Helper()
	w := app.do(t, http.MethodPost, "/v1/events/frame", gin.H{
		"lat":         lat,
		"lon":         lon,
		"jpeg_base64": base64.StdEncoding.EncodeToString(tinyJPEG),
	}, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)
	w := app.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterSharedSecret(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.RegisterSecret = "s3cret" })

	w := app.do(t, http.MethodPost, "/v1/nodes/register", gin.H{"name": "cam-1"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, "/v1/nodes/register", gin.H{"name": "cam-1"},
		map[string]string{handler.RegisterSecretHeader: "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	registerNode(t, app, "cam-1")
}

func TestFrameAuth(t *testing.T) {
	app := newTestApp(t, nil)

	// No token at all.
	w := app.do(t, http.MethodPost, "/v1/events/frame", gin.H{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Token that resolves to no node.
	w = app.do(t, http.MethodPost, "/v1/events/frame", gin.H{},
		map[string]string{"Authorization": "Bearer not-a-real-token"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFrameIngestOverridesNodeID(t *testing.T) {
	app := newTestApp(t, nil)
	reg := registerNode(t, app, "cam-1")

	w := app.do(t, http.MethodPost, "/v1/events/frame", gin.H{
		"node_id":     "spoofed-node",
		"lat":         37.77,
		"lon":         -122.42,
		"jpeg_base64": base64.StdEncoding.EncodeToString(tinyJPEG),
	}, map[string]string{"Authorization": "Bearer " + reg.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var events struct {
		Events []struct {
			NodeID string `json:"node_id"`
			Cell   string `json:"cell"`
		} `json:"events"`
	}
	cell := spatial.CellID(37.77, -122.42, 9)
	we := app.do(t, http.MethodGet, "/v1/world/events?cell="+cell, nil, nil)
	require.Equal(t, http.StatusOK, we.Code)
	decodeData(t, we, &events)
	require.Len(t, events.Events, 1)
	assert.Equal(t, reg.NodeID, events.Events[0].NodeID, "payload node_id must be ignored")
}

func TestFrameValidationLeavesLogUntouched(t *testing.T) {
	app := newTestApp(t, nil)
	reg := registerNode(t, app, "cam-1")

	cases := []gin.H{
		{"lon": -122.42, "jpeg_base64": "abcd"},              // missing lat
		{"lat": 137.77, "lon": -122.42, "jpeg_base64": "ab"}, // lat out of range
		{"lat": 37.77, "lon": -122.42},                       // missing jpeg
		{"lat": 37.77, "lon": -122.42, "jpeg_base64": ""},    // empty jpeg
		{"lat": 37.77, "lon": -122.42, "jpeg_base64": "!!"},  // invalid base64
	}
	for _, body := range cases {
		w := app.do(t, http.MethodPost, "/v1/events/frame", body,
			map[string]string{"Authorization": "Bearer " + reg.Token})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}

	// No rejected request may have appended anything.
	_, err := os.Stat(app.cfg.EventLogPath())
	assert.True(t, os.IsNotExist(err), "log must be untouched after rejected ingestions")
}

func TestWorldCellsScenario(t *testing.T) {
	app := newTestApp(t, nil)
	reg := registerNode(t, app, "cam-1")
	sendFrame(t, app, reg.Token, 37.77, -122.42)

	w := app.do(t, http.MethodGet, "/v1/world/cells?res=9", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		TotalEvents int `json:"total_events"`
		UniqueCells int `json:"unique_cells"`
		Cells       []struct {
			Cell  string `json:"cell"`
			Count int    `json:"count"`
		} `json:"cells"`
	}
	decodeData(t, w, &result)

	assert.Equal(t, 1, result.TotalEvents)
	assert.Equal(t, 1, result.UniqueCells)
	require.Len(t, result.Cells, 1)
	assert.Equal(t, spatial.CellID(37.77, -122.42, 9), result.Cells[0].Cell)
	assert.Equal(t, 1, result.Cells[0].Count)
}

func TestHeartbeatValidationAndMerge(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, http.MethodPost, "/v1/nodes/heartbeat",
		gin.H{"node_id": "n1", "battery_pct": 150}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/v1/nodes/heartbeat",
		gin.H{"node_id": "n1", "battery_pct": 42.5}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Second heartbeat omits battery_pct; the merged status keeps it.
	w = app.do(t, http.MethodPost, "/v1/nodes/heartbeat",
		gin.H{"node_id": "n1", "frames_sent": 7}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status models.HeartbeatStatus
	decodeData(t, w, &status)
	require.NotNil(t, status.BatteryPct)
	assert.Equal(t, 42.5, *status.BatteryPct)
	require.NotNil(t, status.FramesSent)
	assert.Equal(t, int64(7), *status.FramesSent)
}

func TestHeartbeatRejectsLoneCoordinate(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, http.MethodPost, "/v1/nodes/heartbeat",
		gin.H{"node_id": "n1", "lat": 37.77}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnlineNodes(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, http.MethodPost, "/v1/nodes/heartbeat", gin.H{"node_id": "fresh"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A node last heard from 11 minutes ago is not online.
	app.tracker.Upsert("stale", time.Now().Add(-11*time.Minute), models.HeartbeatRequest{})

	wo := app.do(t, http.MethodGet, "/v1/nodes/online", nil, nil)
	require.Equal(t, http.StatusOK, wo.Code)

	var payload struct {
		Nodes []models.OnlineNode `json:"nodes"`
		Count int                 `json:"count"`
	}
	decodeData(t, wo, &payload)
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, "fresh", payload.Nodes[0].NodeID)
}

func TestVisionIngestAndCoverage(t *testing.T) {
	app := newTestApp(t, nil)
	reg := registerNode(t, app, "cam-1")
	sendFrame(t, app, reg.Token, 37.77, -122.42)

	// Invalid vision payloads.
	for _, body := range []gin.H{
		{"lat": 37.77, "lon": -122.42, "event_type": "person", "confidence": 0.9},                       // no node_id
		{"node_id": "n1", "lat": 37.77, "lon": -122.42, "event_type": "ghost", "confidence": 0.9},       // bad type
		{"node_id": "n1", "lat": 37.77, "lon": -122.42, "event_type": "person", "confidence": 1.5},      // bad confidence
		{"node_id": "n1", "lat": 37.77, "lon": -122.42, "event_type": "person"},                         // no confidence
		{"node_id": "n1", "lat": 37.77, "lon": -122.42, "event_type": "person", "confidence": 0.9, "metadata": "scalar"}, // scalar metadata
	} {
		w := app.do(t, http.MethodPost, "/v1/vision/events", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}

	// Valid vision event, no JPEG attached.
	w := app.do(t, http.MethodPost, "/v1/vision/events", gin.H{
		"node_id":    "n1",
		"lat":        37.77,
		"lon":        -122.42,
		"event_type": "person",
		"confidence": 0.9,
		"metadata":   gin.H{"track": 1},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Side effect: the node's events_detected counter moved.
	status, ok := app.tracker.Get("n1")
	require.True(t, ok)
	require.NotNil(t, status.EventsDetected)
	assert.Equal(t, int64(1), *status.EventsDetected)

	// Vision coverage sees only the vision event, not the frame.
	wc := app.do(t, http.MethodGet, "/v1/vision/coverage?res=9", nil, nil)
	require.Equal(t, http.StatusOK, wc.Code)
	var result struct {
		TotalEvents  int `json:"total_events"`
		SkippedLines int `json:"skipped_lines"`
	}
	decodeData(t, wc, &result)
	assert.Equal(t, 1, result.TotalEvents)
	assert.Equal(t, 1, result.SkippedLines)
}

func TestWorldStats(t *testing.T) {
	app := newTestApp(t, nil)
	reg := registerNode(t, app, "cam-1")
	sendFrame(t, app, reg.Token, 37.77, -122.42)

	w := app.do(t, http.MethodPost, "/v1/nodes/heartbeat", gin.H{"node_id": reg.NodeID}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	ws := app.do(t, http.MethodGet, "/v1/world/stats?res=9", nil, nil)
	require.Equal(t, http.StatusOK, ws.Code)

	var stats struct {
		TotalNodes  int `json:"total_nodes"`
		ActiveNodes int `json:"active_nodes"`
		TotalEvents int `json:"total_events"`
		UniqueCells int `json:"unique_cells"`
		LastEvent   *struct {
			Cell string `json:"cell"`
		} `json:"last_event"`
	}
	decodeData(t, ws, &stats)
	assert.Equal(t, 1, stats.TotalNodes)
	assert.Equal(t, 1, stats.ActiveNodes)
	assert.Equal(t, 1, stats.TotalEvents)
	assert.Equal(t, 1, stats.UniqueCells)
	require.NotNil(t, stats.LastEvent)
	assert.Equal(t, spatial.CellID(37.77, -122.42, 9), stats.LastEvent.Cell)
}

func TestPaymentGate(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.PaymentsEnabled = true })

	// No payment header on a priced route.
	w := app.do(t, http.MethodGet, "/v1/world/cells?res=9", nil, nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	var quote payment.Quote
	decodeData(t, w, &quote)
	assert.Equal(t, 1, quote.Price)
	assert.Equal(t, "USDC", quote.Currency)
	assert.Equal(t, "base-sepolia", quote.Chain)
	assert.NotEmpty(t, quote.PaymentURL)
	assert.NotEmpty(t, quote.Description)

	// Demo token passes.
	w = app.do(t, http.MethodGet, "/v1/world/cells?res=9", nil,
		map[string]string{payment.TokenHeader: "demo-token"})
	assert.Equal(t, http.StatusOK, w.Code)

	// HMAC-signed custom token passes.
	token := "proof-123"
	w = app.do(t, http.MethodGet, "/v1/world/events?cell=x", nil, map[string]string{
		payment.TokenHeader:     token,
		payment.SignatureHeader: payment.Sign("signing-secret", token),
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Unpriced routes stay open.
	w = app.do(t, http.MethodGet, "/v1/world/stats", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = app.do(t, http.MethodGet, "/v1/vision/coverage", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBlobServing(t *testing.T) {
	app := newTestApp(t, nil)
	reg := registerNode(t, app, "cam-1")
	sendFrame(t, app, reg.Token, 37.77, -122.42)

	cell := spatial.CellID(37.77, -122.42, 9)
	we := app.do(t, http.MethodGet, "/v1/world/events?cell="+cell, nil, nil)
	require.Equal(t, http.StatusOK, we.Code)

	var payload struct {
		Events []struct {
			JPEGBlob *string `json:"jpeg_blob"`
		} `json:"events"`
	}
	decodeData(t, we, &payload)
	require.Len(t, payload.Events, 1)
	require.NotNil(t, payload.Events[0].JPEGBlob)

	w := app.do(t, http.MethodGet, "/v1/blobs/"+*payload.Events[0].JPEGBlob, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, tinyJPEG, w.Body.Bytes())

	// Traversal and unknown names are 404s.
	w = app.do(t, http.MethodGet, "/v1/blobs/..", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = app.do(t, http.MethodGet, "/v1/blobs/missing.jpg", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorldEventsNewestFirst(t *testing.T) {
	app := newTestApp(t, nil)
	reg := registerNode(t, app, "cam-1")

	for i := 0; i < 3; i++ {
		sendFrame(t, app, reg.Token, 37.77, -122.42)
	}

	cell := spatial.CellID(37.77, -122.42, 9)
	w := app.do(t, http.MethodGet, "/v1/world/events?cell="+cell+"&limit=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Events []struct {
			ID        string   `json:"id"`
			DistanceM *float64 `json:"distance_m"`
		} `json:"events"`
		Count int `json:"count"`
	}
	decodeData(t, w, &payload)
	assert.Equal(t, 2, payload.Count)
	require.Len(t, payload.Events, 2)
	require.NotNil(t, payload.Events[0].DistanceM)
	assert.Less(t, *payload.Events[0].DistanceM, 500.0)
}
