package coverage

// Stats is the summary returned by the world-stats endpoint. The
// event-derived fields come straight out of an Aggregate pass; node
// counters are joined in by the caller.
type Stats struct {
	Res          int        `json:"res"`
	Hours        float64    `json:"hours,omitempty"`
	TotalNodes   int        `json:"total_nodes"`
	ActiveNodes  int        `json:"active_nodes"`
	TotalEvents  int        `json:"total_events"`
	UniqueCells  int        `json:"unique_cells"`
	SkippedLines int        `json:"skipped_lines"`
	LastEvent    *LastEvent `json:"last_event,omitempty"`
}

// StatsFromResult folds an aggregation result and node counters into
// a Stats summary
func StatsFromResult(result *Result, totalNodes, activeNodes int) *Stats {
	return &Stats{
		Res:          result.Res,
		Hours:        result.Hours,
		TotalNodes:   totalNodes,
		ActiveNodes:  activeNodes,
		TotalEvents:  result.TotalEvents,
		UniqueCells:  result.UniqueCells,
		SkippedLines: result.SkippedLines,
		LastEvent:    result.LastEvent,
	}
}
