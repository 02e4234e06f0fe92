package service

import (
	"time"

	"github.com/jengzang/geoevents-backend-go/internal/coverage"
	"github.com/jengzang/geoevents-backend-go/internal/heartbeat"
	"github.com/jengzang/geoevents-backend-go/internal/store"
)

// WorldService serves the authoritative spatial aggregations and point
// queries. Every call is a full linear scan of the event log; at this
// scale that is an accepted tradeoff, and a scan racing an in-flight
// append may or may not see the newest record.
type WorldService struct {
	log      *store.EventLog
	registry *store.Registry
	tracker  *heartbeat.Tracker
}

// NewWorldService creates a new world service
func NewWorldService(log *store.EventLog, registry *store.Registry, tracker *heartbeat.Tracker) *WorldService {
	return &WorldService{
		log:      log,
		registry: registry,
		tracker:  tracker,
	}
}

// Coverage runs one aggregation pass over the log
func (s *WorldService) Coverage(p coverage.Params) (*coverage.Result, error) {
	r, err := s.log.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return coverage.Aggregate(r, time.Now(), p)
}

// Stats aggregates the same event set as Coverage and joins in the
// node counters
func (s *WorldService) Stats(res int, hours float64) (*coverage.Stats, error) {
	result, err := s.Coverage(coverage.Params{Res: res, Hours: hours})
	if err != nil {
		return nil, err
	}

	totalNodes, err := s.registry.Count()
	if err != nil {
		return nil, err
	}
	activeNodes := s.tracker.CountOnline(time.Now())

	return coverage.StatsFromResult(result, totalNodes, activeNodes), nil
}

// EventsByCell returns up to limit records matching the cell, newest
// first
func (s *WorldService) EventsByCell(cellID string, res, limit int) ([]coverage.EventMatch, error) {
	if cellID == "" {
		return nil, invalid("cell", "cell is required")
	}

	r, err := s.log.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return coverage.QueryEvents(r, cellID, res, limit)
}
