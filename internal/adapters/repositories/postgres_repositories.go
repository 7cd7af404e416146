package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/platform/obs"
	"time"
)

// PostgreSQL-backed implementation of the TenantRepository port.
type PostgresTenantRepository struct{ DB *sql.DB }

func NewPostgresTenantRepository(db *sql.DB) *PostgresTenantRepository {
	return &PostgresTenantRepository{DB: db}
}

// ListTenants returns every tenant. An unset dispatch hour loads as the default.
func (r *PostgresTenantRepository) ListTenants(ctx context.Context) (_ []*domain.Tenant, err error) {
	defer obs.Time(ctx, "repo.ListTenants")(&err)

	if r.DB == nil {
		return nil, errors.New("postgres tenant repository: DB is nil")
	}

	query := `
	SELECT
		id,
		name,
		timezone,
		COALESCE(dispatch_hour, $1),
		route_optimization_enabled,
		shift_start_minutes,
		eta_window_minutes
	FROM tenants
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, query, domain.DefaultDispatchHour)
	if err != nil {
		return nil, fmt.Errorf("list tenants: query tenants table: %w", err)
	}
	defer rows.Close()

	tenants := make([]*domain.Tenant, 0, 16)
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Timezone,
			&t.DispatchHour,
			&t.RouteOptimizationEnabled,
			&t.ShiftStartMinutes,
			&t.ETAWindowMinutes,
		); err != nil {
			return nil, fmt.Errorf("list tenants: scan row: %w", err)
		}
		tenants = append(tenants, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tenants: row iteration: %w", err)
	}

	return tenants, nil
}

// PostgreSQL-backed implementation of the TeamRepository port.
type PostgresTeamRepository struct{ DB *sql.DB }

func NewPostgresTeamRepository(db *sql.DB) *PostgresTeamRepository {
	return &PostgresTeamRepository{DB: db}
}

func (r *PostgresTeamRepository) ListActiveTeams(ctx context.Context, tenantID string) (_ []*domain.Team, err error) {
	defer obs.Time(ctx, "repo.ListActiveTeams")(&err)

	if r.DB == nil {
		return nil, errors.New("postgres team repository: DB is nil")
	}

	query := `
	SELECT
		id,
		tenant_id,
		name,
		lead_chat_id,
		depot_lat,
		depot_lon,
		capacity,
		active
	FROM teams
	WHERE tenant_id = $1
		AND active
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active teams: query teams table: %w", err)
	}
	defer rows.Close()

	teams := make([]*domain.Team, 0, 8)
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(
			&t.ID,
			&t.TenantID,
			&t.Name,
			&t.LeadChatID,
			&t.Depot.Lat,
			&t.Depot.Lon,
			&t.Capacity,
			&t.Active,
		); err != nil {
			return nil, fmt.Errorf("list active teams: scan row: %w", err)
		}
		teams = append(teams, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active teams: row iteration: %w", err)
	}

	return teams, nil
}

// PostgreSQL-backed implementation of the JobRepository port.
type PostgresJobRepository struct{ DB *sql.DB }

func NewPostgresJobRepository(db *sql.DB) *PostgresJobRepository {
	return &PostgresJobRepository{DB: db}
}

// ListEligibleJobs returns the tenant's jobs on date that are neither
// completed nor cancelled, in id order.
func (r *PostgresJobRepository) ListEligibleJobs(ctx context.Context, tenantID, date string) (_ []*domain.Job, err error) {
	defer obs.Time(ctx, "repo.ListEligibleJobs")(&err)

	if r.DB == nil {
		return nil, errors.New("postgres job repository: DB is nil")
	}

	query := `
	SELECT
		id,
		tenant_id,
		scheduled_date::text,
		lat,
		lon,
		address,
		customer_name,
		customer_phone,
		service_minutes,
		window_start,
		window_end,
		status
	FROM jobs
	WHERE tenant_id = $1
		AND scheduled_date = $2::date
		AND status NOT IN ('completed', 'cancelled')
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, query, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("list eligible jobs: query jobs table: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.Job, 0, 64)
	for rows.Next() {
		var (
			j                      domain.Job
			serviceMinutes         int
			windowStart, windowEnd sql.NullTime
			status                 string
		)
		if err := rows.Scan(
			&j.ID,
			&j.TenantID,
			&j.ScheduledDate,
			&j.Location.Lat,
			&j.Location.Lon,
			&j.Address,
			&j.CustomerName,
			&j.CustomerPhone,
			&serviceMinutes,
			&windowStart,
			&windowEnd,
			&status,
		); err != nil {
			return nil, fmt.Errorf("list eligible jobs: scan row: %w", err)
		}

		j.ServiceDuration = time.Duration(serviceMinutes) * time.Minute
		j.Status = domain.JobStatus(status)
		if windowStart.Valid && windowEnd.Valid {
			j.Window = &domain.TimeWindow{Earliest: windowStart.Time, Latest: windowEnd.Time}
		}
		jobs = append(jobs, &j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list eligible jobs: row iteration: %w", err)
	}

	return jobs, nil
}
