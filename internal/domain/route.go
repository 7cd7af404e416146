package domain

import "time"

// Expected arrival interval communicated to a customer.
type ETAWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Represents a single stop in a team's route.
// Sequence is 0-based and contiguous within the route.
type RouteStop struct {
	Job           *Job
	Sequence      int
	ETA           ETAWindow
	TravelSeconds int
	// Estimated is set when the inbound leg used a straight-line estimate.
	Estimated bool
}

// Represents the ordered route for a single team on one date.
// It is immutable planning data and contains no side effects.
type TeamRoute struct {
	Team                 *Team
	Stops                []RouteStop
	TotalDistanceMeters  int
	TotalDurationSeconds int
}

type OptimizationStats struct {
	AssignedJobs        int `json:"assigned_jobs"`
	ActiveTeams         int `json:"active_teams"`
	TotalDistanceMeters int `json:"total_distance_meters"`
}

// OptimizationResult is produced fresh for each (tenant, date) run.
type OptimizationResult struct {
	TenantID   string
	TenantName string
	Date       string
	Routes     []TeamRoute
	Stats      OptimizationStats
	Warnings   []string
	Unassigned []int64
}

func (r *OptimizationResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// RouteAssignment is the persisted record of one job's place in a team route.
// (TenantID, JobID, RouteDate) is unique.
type RouteAssignment struct {
	TenantID  string    `json:"tenant_id"`
	JobID     int64     `json:"job_id"`
	RouteDate string    `json:"route_date"`
	TeamID    int64     `json:"team_id"`
	Sequence  int       `json:"sequence"`
	ETA       ETAWindow `json:"eta"`
}
