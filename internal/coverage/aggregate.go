// Package coverage implements the spatial aggregation over the
// append-only event log. It is the single shared implementation behind
// both the authoritative server endpoints and the client-side file
// source in pkg/worldsource, so window, truncation, tie-break and
// skipped-line semantics cannot drift between the two.
package coverage

import (
	"bufio"
	"encoding/json"
	"io"
	"math"
	"sort"
	"time"

	"github.com/jengzang/geoevents-backend-go/internal/models"
	"github.com/jengzang/geoevents-backend-go/internal/spatial"
)

// DefaultLimit bounds the number of cells returned when the caller
// does not supply one
const DefaultLimit = 50

// Params controls one aggregation pass
type Params struct {
	Res        int     // Target H3 resolution
	Hours      float64 // Lookback window in hours; 0 scans the whole log
	Limit      int     // Max cells returned
	TypeFilter string  // Restrict to one event type ("" accepts all)
}

// CellCount is one ranked aggregation bucket
type CellCount struct {
	Cell  string `json:"cell"`
	Count int    `json:"count"`
}

// LastEvent summarizes the most recent accepted record of a scan
type LastEvent struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	TS     int64  `json:"ts"`
	NodeID string `json:"node_id,omitempty"`
	Cell   string `json:"cell"`
}

// Result is the aggregation outcome. For any scan,
// total_events + skipped_lines equals the number of non-empty lines
// in the log.
type Result struct {
	Res          int         `json:"res"`
	Hours        float64     `json:"hours,omitempty"`
	TotalEvents  int         `json:"total_events"`
	UniqueCells  int         `json:"unique_cells"`
	SkippedLines int         `json:"skipped_lines"`
	MinCount     int         `json:"min_count"`
	MaxCount     int         `json:"max_count"`
	Truncated    bool        `json:"truncated"`
	Cells        []CellCount `json:"cells"`
	LastEvent    *LastEvent  `json:"last_event,omitempty"`
}

// logRecord is a lenient view of one log line. Pointer fields
// distinguish absent coordinates from zero ones; records written by
// other log versions still aggregate as long as a usable cell or
// coordinate pair is present.
type logRecord struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	TS     int64    `json:"ts"`
	NodeID string   `json:"node_id"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Cell   string   `json:"cell"`
	H3Res  int      `json:"h3_res"`
}

// resolveCell maps a record to a cell at the target resolution.
// Finite stored coordinates are recomputed directly; otherwise the
// stored cell is reused as-is (same resolution) or coarsened via its
// parent. A finer-than-stored request has no answer and returns false.
func resolveCell(rec *logRecord, res int) (string, bool) {
	if rec.Lat != nil && rec.Lon != nil && spatial.ValidLatLng(*rec.Lat, *rec.Lon) {
		return spatial.CellID(*rec.Lat, *rec.Lon, res), true
	}
	if rec.Cell != "" {
		return spatial.ParentCellID(rec.Cell, res)
	}
	return "", false
}

// Aggregate streams every non-empty line of the log, buckets accepted
// records into cells at p.Res, and returns the top p.Limit cells by
// count. Lines that fail to parse, records that cannot be resolved to
// a cell, records outside the lookback window and records excluded by
// the type filter are skipped and counted in skipped_lines, never
// propagated as errors.
func Aggregate(r io.Reader, now time.Time, p Params) (*Result, error) {
	if !spatial.ValidResolution(p.Res) {
		p.Res = spatial.DefaultResolution
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}

	var cutoff int64
	if p.Hours > 0 {
		cutoff = now.Add(-time.Duration(p.Hours * float64(time.Hour))).Unix()
	}

	result := &Result{Res: p.Res, Hours: p.Hours, Cells: []CellCount{}}
	counts := make(map[string]int)
	var last *LastEvent

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec logRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			result.SkippedLines++
			continue
		}
		if p.TypeFilter != "" && rec.Type != p.TypeFilter {
			result.SkippedLines++
			continue
		}
		if cutoff > 0 && rec.TS < cutoff {
			result.SkippedLines++
			continue
		}

		cell, ok := resolveCell(&rec, p.Res)
		if !ok {
			result.SkippedLines++
			continue
		}

		counts[cell]++
		result.TotalEvents++
		if last == nil || rec.TS >= last.TS {
			last = &LastEvent{ID: rec.ID, Type: rec.Type, TS: rec.TS, NodeID: rec.NodeID, Cell: cell}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	result.UniqueCells = len(counts)
	result.LastEvent = last

	ranked := make([]CellCount, 0, len(counts))
	minCount, maxCount := math.MaxInt, 0
	for cell, count := range counts {
		ranked = append(ranked, CellCount{Cell: cell, Count: count})
		if count < minCount {
			minCount = count
		}
		if count > maxCount {
			maxCount = count
		}
	}
	if len(ranked) > 0 {
		result.MinCount = minCount
		result.MaxCount = maxCount
	}

	// Deterministic ranking: count descending, then cell id ascending,
	// so both implementations and repeated calls agree exactly.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Cell < ranked[j].Cell
	})

	if len(ranked) > p.Limit {
		result.Truncated = true
		ranked = ranked[:p.Limit]
	}
	result.Cells = ranked
	return result, nil
}

// EventMatch is one point-query hit: the stored record plus its
// distance from the queried cell's center
type EventMatch struct {
	models.Event
	DistanceM *float64 `json:"distance_m,omitempty"`
}

// QueryEvents scans the log newest-first and returns up to limit
// records matching the target cell. With res <= 0 a record matches by
// stored-cell equality; with a resolution supplied the record's cell
// is recomputed (or parent-derived) at that resolution and compared.
// "Most recent first" ordering is part of the contract.
func QueryEvents(r io.Reader, cellID string, res, limit int) ([]EventMatch, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var lines [][]byte
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		buf := make([]byte, len(line))
		copy(buf, line)
		lines = append(lines, buf)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	matches := []EventMatch{}
	for i := len(lines) - 1; i >= 0 && len(matches) < limit; i-- {
		var rec logRecord
		if err := json.Unmarshal(lines[i], &rec); err != nil {
			continue
		}

		matched := false
		if res <= 0 {
			matched = rec.Cell == cellID
		} else if cell, ok := resolveCell(&rec, res); ok {
			matched = cell == cellID
		}
		if !matched {
			continue
		}

		var event models.Event
		if err := json.Unmarshal(lines[i], &event); err != nil {
			continue
		}
		match := EventMatch{Event: event}
		if rec.Lat != nil && rec.Lon != nil {
			if d, ok := spatial.DistanceToCellCenter(*rec.Lat, *rec.Lon, cellID); ok {
				match.DistanceM = &d
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}
