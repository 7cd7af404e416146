package services

import (
	"context"
	"fmt"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/platform/obs"
	"route-dispatch-service/internal/ports"
	"slices"
	"time"
)

const defaultMaxTwoOptScans = 200

// RouteOptimizer computes one tenant's routes for one local date.
type RouteOptimizer struct {
	jobs      ports.JobRepository
	teams     ports.TeamRepository
	estimator *DistanceEstimator
	gate      *TenantScheduleGate
	metrics   *obs.Metrics

	lookupConcurrency int
	maxScans          int
}

func NewRouteOptimizer(
	jobs ports.JobRepository,
	teams ports.TeamRepository,
	estimator *DistanceEstimator,
	gate *TenantScheduleGate,
) *RouteOptimizer {
	return &RouteOptimizer{
		jobs:              jobs,
		teams:             teams,
		estimator:         estimator,
		gate:              gate,
		lookupConcurrency: 5,
		maxScans:          defaultMaxTwoOptScans,
	}
}

func (o *RouteOptimizer) WithSettings(lookupConcurrency, maxScans int) *RouteOptimizer {
	if lookupConcurrency > 0 {
		o.lookupConcurrency = lookupConcurrency
	}
	if maxScans > 0 {
		o.maxScans = maxScans
	}
	return o
}

func (o *RouteOptimizer) WithMetrics(m *obs.Metrics) *RouteOptimizer {
	o.metrics = m
	return o
}

// Optimize partitions the tenant's eligible jobs for date across its active
// teams and orders each team's stops. "No work" is not an error: the result
// carries zero assigned jobs and a warning saying why.
func (o *RouteOptimizer) Optimize(ctx context.Context, tenant *domain.Tenant, date string) (_ *domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "optimizer.Optimize")(&err)
	started := time.Now()
	defer func() { o.metrics.OptimizeDuration(time.Since(started)) }()

	loc, err := o.gate.Location(tenant)
	if err != nil {
		return nil, err
	}
	shiftStart, err := tenant.ShiftStart(date, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: optimize: %v", ErrConfigurationSkip, err)
	}

	result := &domain.OptimizationResult{
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
		Date:       date,
		Routes:     []domain.TeamRoute{},
		Warnings:   []string{},
		Unassigned: []int64{},
	}

	jobs, err := o.loadJobs(ctx, tenant.ID, date)
	if err != nil {
		return nil, err
	}
	teams, err := o.loadTeams(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	if len(jobs) == 0 {
		result.Warn(fmt.Sprintf("no jobs scheduled for %s", date))
	}
	if len(teams) == 0 {
		result.Warn("no eligible teams: no active team with capacity")
	}
	if len(jobs) == 0 || len(teams) == 0 {
		return result, nil
	}

	loads, unassigned := AssignJobsByDepotDistance(teams, jobs)
	for _, j := range unassigned {
		result.Unassigned = append(result.Unassigned, j.ID)
		result.Warn(fmt.Sprintf("job %d not assigned: all teams at capacity", j.ID))
	}

	for _, load := range loads {
		if len(load.Jobs) == 0 {
			continue
		}

		route, warnings := o.planTeam(ctx, load, shiftStart, tenant.ETAWindow())
		result.Routes = append(result.Routes, route)
		result.Warnings = append(result.Warnings, warnings...)

		result.Stats.AssignedJobs += len(route.Stops)
		result.Stats.ActiveTeams++
		result.Stats.TotalDistanceMeters += route.TotalDistanceMeters
	}

	return result, nil
}

// planTeam builds the cost matrix, seeds a nearest-neighbour tour, improves it
// with 2-opt and converts the order into ETA windows.
func (o *RouteOptimizer) planTeam(
	ctx context.Context,
	load *domain.TeamLoad,
	shiftStart time.Time,
	slack time.Duration,
) (domain.TeamRoute, []string) {
	var warnings []string

	points := make([]domain.Coordinates, 0, len(load.Jobs)+1)
	points = append(points, load.Team.Depot)
	for _, j := range load.Jobs {
		points = append(points, j.Location)
	}

	m := buildCostMatrix(ctx, o.estimator, points, o.lookupConcurrency)
	if n, reason := m.estimated(); n > 0 {
		total := len(points) * (len(points) - 1)
		warnings = append(warnings, fmt.Sprintf(
			"team %d: %d of %d distance lookups used straight-line estimates: %v",
			load.Team.ID, n, total, reason,
		))
	}

	route := nearestNeighborTour(m)
	if _, converged := twoOpt(route, m.cost, o.maxScans); !converged {
		warnings = append(warnings, fmt.Sprintf(
			"team %d: 2-opt stopped after %d scans without converging", load.Team.ID, o.maxScans,
		))
	}

	stops, meters, seconds, etaWarnings := buildStops(route, load.Jobs, m, shiftStart, slack)
	warnings = append(warnings, etaWarnings...)

	return domain.TeamRoute{
		Team:                 load.Team,
		Stops:                stops,
		TotalDistanceMeters:  meters,
		TotalDurationSeconds: seconds,
	}, warnings
}

func (o *RouteOptimizer) loadJobs(ctx context.Context, tenantID, date string) ([]*domain.Job, error) {
	jobs, err := o.jobs.ListEligibleJobs(ctx, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("optimize: list eligible jobs: %w", err)
	}

	out := make([]*domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if !j.Eligible(tenantID, date) {
			continue
		}
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigurationSkip, err)
		}
		out = append(out, j)
	}
	slices.SortFunc(out, func(a, b *domain.Job) int { return cmpInt64(a.ID, b.ID) })
	return out, nil
}

func (o *RouteOptimizer) loadTeams(ctx context.Context, tenantID string) ([]*domain.Team, error) {
	teams, err := o.teams.ListActiveTeams(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("optimize: list active teams: %w", err)
	}

	out := make([]*domain.Team, 0, len(teams))
	for _, t := range teams {
		if !t.Active || t.Capacity <= 0 || t.TenantID != tenantID {
			continue
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigurationSkip, err)
		}
		out = append(out, t)
	}
	return out, nil
}
