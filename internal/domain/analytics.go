package domain

// DayStats aggregates activity for one UTC day.
type DayStats struct {
	Analyses    int64 `json:"analyses"`
	ActiveUsers int   `json:"active_users"`
}

// Snapshot is a point-in-time copy of the process-wide counters, served to
// the /admin command and the admin HTTP API.
type Snapshot struct {
	TotalUsers    int64               `json:"total_users"`
	TotalAnalyses int64               `json:"total_analyses"`
	CommandUsage  map[string]int64    `json:"command_usage"`
	Days          map[string]DayStats `json:"days"`
}
