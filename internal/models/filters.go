package models

// CoverageFilter represents query parameters for the spatial
// aggregation endpoints
type CoverageFilter struct {
	Hours float64 `form:"hours"` // Lookback window; 0 means the whole log
	Res   int     `form:"res"`   // Target H3 resolution
	Limit int     `form:"limit"` // Max cells to return
}

// CellEventsFilter represents query parameters for the point lookup
// endpoint GET /v1/world/events
type CellEventsFilter struct {
	Cell  string `form:"cell"`
	Res   int    `form:"res"`   // 0 means match by stored cell
	Limit int    `form:"limit"` // Max events to return
}

// StatsFilter represents query parameters for GET /v1/world/stats
type StatsFilter struct {
	Hours float64 `form:"hours"`
	Res   int     `form:"res"`
}
