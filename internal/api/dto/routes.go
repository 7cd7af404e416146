package dto

import (
	"route-dispatch-service/internal/domain"
	"time"
)

type RouteStopResponse struct {
	JobID    int64     `json:"job_id"`
	Sequence int       `json:"sequence"`
	ETAStart time.Time `json:"eta_start"`
	ETAEnd   time.Time `json:"eta_end"`
}

type TeamRouteResponse struct {
	TeamID int64               `json:"team_id"`
	Stops  []RouteStopResponse `json:"stops"`
}

type RoutesResponse struct {
	TenantID string              `json:"tenant_id"`
	Date     string              `json:"date"`
	Teams    []TeamRouteResponse `json:"teams"`
}

// NewRoutesResponse groups assignments by team, keeping the store's order.
func NewRoutesResponse(tenantID, date string, as []domain.RouteAssignment) RoutesResponse {
	out := RoutesResponse{TenantID: tenantID, Date: date, Teams: []TeamRouteResponse{}}

	idx := map[int64]int{}
	for _, a := range as {
		i, ok := idx[a.TeamID]
		if !ok {
			i = len(out.Teams)
			idx[a.TeamID] = i
			out.Teams = append(out.Teams, TeamRouteResponse{TeamID: a.TeamID, Stops: []RouteStopResponse{}})
		}
		out.Teams[i].Stops = append(out.Teams[i].Stops, RouteStopResponse{
			JobID:    a.JobID,
			Sequence: a.Sequence,
			ETAStart: a.ETA.Start,
			ETAEnd:   a.ETA.End,
		})
	}
	return out
}
