package services

import (
	"context"
	"fmt"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/platform/obs"
	"route-dispatch-service/internal/ports"
)

type PersistResult struct {
	JobsUpdated        int `json:"jobs_updated"`
	AssignmentsCreated int `json:"assignments_created"`
}

// AssignmentPersister replaces a tenant's assignments for a date with an
// optimizer result. The replace is all-or-nothing: any failure is reported
// as ErrPersistence and nothing new is visible to dispatch.
type AssignmentPersister struct {
	store ports.AssignmentStore
}

func NewAssignmentPersister(store ports.AssignmentStore) *AssignmentPersister {
	return &AssignmentPersister{store: store}
}

func (p *AssignmentPersister) Persist(ctx context.Context, result *domain.OptimizationResult) (_ PersistResult, err error) {
	defer obs.Time(ctx, "persister.Persist")(&err)

	if result == nil {
		return PersistResult{}, fmt.Errorf("%w: persist: nil optimization result", ErrPersistence)
	}

	assignments, err := BuildAssignments(result)
	if err != nil {
		return PersistResult{}, fmt.Errorf("%w: persist %s/%s: %v", ErrPersistence, result.TenantID, result.Date, err)
	}

	counts, err := p.store.ReplaceAssignments(ctx, result.TenantID, result.Date, assignments)
	if err != nil {
		return PersistResult{}, fmt.Errorf("%w: persist %s/%s: %v", ErrPersistence, result.TenantID, result.Date, err)
	}

	return PersistResult{
		JobsUpdated:        counts.JobsUpdated,
		AssignmentsCreated: counts.AssignmentsCreated,
	}, nil
}

// BuildAssignments flattens team routes into assignment rows and checks that
// each job appears once, sequences run 0..k-1 per team and ETA starts never
// go backwards.
func BuildAssignments(result *domain.OptimizationResult) ([]domain.RouteAssignment, error) {
	seen := make(map[int64]int64)
	out := make([]domain.RouteAssignment, 0, result.Stats.AssignedJobs)

	for _, route := range result.Routes {
		if route.Team == nil {
			return nil, fmt.Errorf("route without team")
		}
		for i, stop := range route.Stops {
			if stop.Job == nil {
				return nil, fmt.Errorf("team %d: stop %d has no job", route.Team.ID, i)
			}
			if stop.Sequence != i {
				return nil, fmt.Errorf("team %d: sequence %d at position %d", route.Team.ID, stop.Sequence, i)
			}
			if stop.ETA.End.Before(stop.ETA.Start) {
				return nil, fmt.Errorf("job %d: eta window ends before it starts", stop.Job.ID)
			}
			if i > 0 && stop.ETA.Start.Before(route.Stops[i-1].ETA.Start) {
				return nil, fmt.Errorf("team %d: eta start decreases at position %d", route.Team.ID, i)
			}
			if prev, dup := seen[stop.Job.ID]; dup {
				return nil, fmt.Errorf("job %d assigned to teams %d and %d", stop.Job.ID, prev, route.Team.ID)
			}
			seen[stop.Job.ID] = route.Team.ID

			out = append(out, domain.RouteAssignment{
				TenantID:  result.TenantID,
				JobID:     stop.Job.ID,
				RouteDate: result.Date,
				TeamID:    route.Team.ID,
				Sequence:  stop.Sequence,
				ETA:       stop.ETA,
			})
		}
	}

	return out, nil
}
