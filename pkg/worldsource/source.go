// Package worldsource is the client-side counterpart of the world
// endpoints. When it is co-located with the server's data directory it
// recomputes aggregations by reading the raw event log and nodes file
// directly; otherwise it transparently falls back to the HTTP API.
// Both paths run the same shared aggregation code and return the same
// shapes, so callers cannot tell which one served a request.
package worldsource

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jengzang/geoevents-backend-go/internal/coverage"
	"github.com/jengzang/geoevents-backend-go/internal/payment"
	"github.com/jengzang/geoevents-backend-go/internal/store"
)

// Source reads world aggregations from the raw data files when they
// are reachable, and from the server API otherwise
type Source struct {
	dataDir string
	baseURL string
	client  *http.Client

	// PaymentToken (and optionally PaymentSignature) is attached to
	// HTTP fallback requests hitting payment-gated routes.
	PaymentToken     string
	PaymentSignature string
}

// New creates a source. dataDir may be empty to force API mode;
// baseURL may be empty when the data directory is always reachable.
func New(dataDir, baseURL string) *Source {
	return &Source{
		dataDir: dataDir,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// filesAvailable reports whether the raw data directory is readable.
// A missing event log inside an existing data dir still counts as
// available: it reads as an empty log, same as on the server.
func (s *Source) filesAvailable() bool {
	if s.dataDir == "" {
		return false
	}
	info, err := os.Stat(s.dataDir)
	return err == nil && info.IsDir()
}

// Coverage returns the spatial aggregation over all events
func (s *Source) Coverage(p coverage.Params) (*coverage.Result, error) {
	if s.filesAvailable() {
		if result, err := s.fileCoverage(p); err == nil {
			return result, nil
		}
	}
	return s.apiCoverage("/v1/world/cells", p)
}

// VisionCoverage returns the aggregation restricted to vision events
func (s *Source) VisionCoverage(p coverage.Params) (*coverage.Result, error) {
	p.TypeFilter = "vision"
	if s.filesAvailable() {
		if result, err := s.fileCoverage(p); err == nil {
			return result, nil
		}
	}
	return s.apiCoverage("/v1/vision/coverage", p)
}

// Stats returns the world summary counters. In file mode the
// active-node count is always zero: heartbeat state lives only in the
// server process and is not persisted anywhere a file reader could
// see.
func (s *Source) Stats(res int, hours float64) (*coverage.Stats, error) {
	if s.filesAvailable() {
		result, err := s.fileCoverage(coverage.Params{Res: res, Hours: hours})
		if err == nil {
			totalNodes := 0
			if doc, derr := store.NewRegistry(s.nodesPath()).Load(); derr == nil {
				totalNodes = len(doc.Nodes)
			}
			return coverage.StatsFromResult(result, totalNodes, 0), nil
		}
	}

	query := url.Values{}
	if res > 0 {
		query.Set("res", strconv.Itoa(res))
	}
	if hours > 0 {
		query.Set("hours", strconv.FormatFloat(hours, 'f', -1, 64))
	}
	var stats coverage.Stats
	if err := s.get("/v1/world/stats", query, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// EventsByCell returns up to limit records matching the cell, newest
// first
func (s *Source) EventsByCell(cellID string, res, limit int) ([]coverage.EventMatch, error) {
	if cellID == "" {
		return nil, fmt.Errorf("cell is required")
	}

	if s.filesAvailable() {
		if matches, err := s.fileEvents(cellID, res, limit); err == nil {
			return matches, nil
		}
	}

	query := url.Values{}
	query.Set("cell", cellID)
	if res > 0 {
		query.Set("res", strconv.Itoa(res))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var payload struct {
		Events []coverage.EventMatch `json:"events"`
		Count  int                   `json:"count"`
	}
	if err := s.get("/v1/world/events", query, &payload); err != nil {
		return nil, err
	}
	return payload.Events, nil
}

func (s *Source) eventLogPath() string {
	return filepath.Join(s.dataDir, "events.jsonl")
}

func (s *Source) nodesPath() string {
	return filepath.Join(s.dataDir, "nodes.json")
}

func (s *Source) fileCoverage(p coverage.Params) (*coverage.Result, error) {
	r, err := store.NewEventLog(s.eventLogPath()).Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return coverage.Aggregate(r, time.Now(), p)
}

func (s *Source) fileEvents(cellID string, res, limit int) ([]coverage.EventMatch, error) {
	r, err := store.NewEventLog(s.eventLogPath()).Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return coverage.QueryEvents(r, cellID, res, limit)
}

func (s *Source) apiCoverage(path string, p coverage.Params) (*coverage.Result, error) {
	query := url.Values{}
	if p.Res > 0 {
		query.Set("res", strconv.Itoa(p.Res))
	}
	if p.Hours > 0 {
		query.Set("hours", strconv.FormatFloat(p.Hours, 'f', -1, 64))
	}
	if p.Limit > 0 {
		query.Set("limit", strconv.Itoa(p.Limit))
	}
	var result coverage.Result
	if err := s.get(path, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// get performs one API call and unwraps the standard response
// envelope into target
func (s *Source) get(path string, query url.Values, target interface{}) error {
	if s.baseURL == "" {
		return fmt.Errorf("no data directory and no server base URL configured")
	}

	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if s.PaymentToken != "" {
		req.Header.Set(payment.TokenHeader, s.PaymentToken)
		if s.PaymentSignature != "" {
			req.Header.Set(payment.SignatureHeader, s.PaymentSignature)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, envelope.Message)
	}
	if target != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, target); err != nil {
			return fmt.Errorf("failed to decode payload from %s: %w", path, err)
		}
	}
	return nil
}
