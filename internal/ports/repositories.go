package ports

import (
	"context"
	"route-dispatch-service/internal/domain"
)

// Port: tenants known to the platform.
type TenantRepository interface {
	ListTenants(ctx context.Context) ([]*domain.Tenant, error)
}

// Port: read-only job access for the optimizer.
type JobRepository interface {
	// Jobs scheduled for date that are not completed or cancelled.
	ListEligibleJobs(ctx context.Context, tenantID, date string) ([]*domain.Job, error)
}

// Port: read-only team access for the optimizer.
type TeamRepository interface {
	ListActiveTeams(ctx context.Context, tenantID string) ([]*domain.Team, error)
}

type ReplaceCounts struct {
	JobsUpdated        int
	AssignmentsCreated int
}

// Port: durable route assignments keyed by (tenant, date).
type AssignmentStore interface {
	// Atomically supersede every assignment for (tenantID, date).
	ReplaceAssignments(ctx context.Context, tenantID, date string, assignments []domain.RouteAssignment) (ReplaceCounts, error)
	ListAssignments(ctx context.Context, tenantID, date string) ([]domain.RouteAssignment, error)
}
