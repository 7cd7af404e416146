package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the PostgreSQL tables the service reads and writes.
// Tenant, team and job rows are owned by the dashboard; this service only
// writes route_assignments, the routing columns on jobs and distance_cache.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createTenantsQuery := `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT '',
		dispatch_hour INTEGER CHECK (dispatch_hour BETWEEN 0 AND 23),
		route_optimization_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		shift_start_minutes INTEGER NOT NULL DEFAULT 0,
		eta_window_minutes INTEGER NOT NULL DEFAULT 0
	);
	`

	createTeamsQuery := `
	CREATE TABLE IF NOT EXISTS teams (
		id BIGINT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		name TEXT NOT NULL DEFAULT '',
		lead_chat_id TEXT NOT NULL DEFAULT '',
		depot_lat DOUBLE PRECISION NOT NULL,
		depot_lon DOUBLE PRECISION NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`

	createJobsQuery := `
	CREATE TABLE IF NOT EXISTS jobs (
		id BIGINT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		scheduled_date DATE NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		service_minutes INTEGER NOT NULL DEFAULT 0,
		window_start TIMESTAMPTZ,
		window_end TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'scheduled',
		team_id BIGINT REFERENCES teams(id),
		route_sequence INTEGER,
		eta_start TIMESTAMPTZ,
		eta_end TIMESTAMPTZ
	);
	`

	createAssignmentsQuery := `
	CREATE TABLE IF NOT EXISTS route_assignments (
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		job_id BIGINT NOT NULL REFERENCES jobs(id),
		route_date DATE NOT NULL,
		team_id BIGINT NOT NULL REFERENCES teams(id),
		sequence INTEGER NOT NULL CHECK (sequence >= 0),
		eta_start TIMESTAMPTZ NOT NULL,
		eta_end TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (tenant_id, job_id, route_date)
	);
	`

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS distance_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (origin, destination)
	);
	`

	createIndexQueries := []string{
		`CREATE INDEX IF NOT EXISTS idx_jobs_tenant_date ON jobs(tenant_id, scheduled_date);`,
		`CREATE INDEX IF NOT EXISTS idx_route_assignments_team ON route_assignments(tenant_id, route_date, team_id, sequence);`,
		`CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin ON distance_cache(destination, origin);`,
	}

	statements := []string{
		createTenantsQuery,
		createTeamsQuery,
		createJobsQuery,
		createAssignmentsQuery,
		createDistanceCacheQuery,
	}
	statements = append(statements, createIndexQueries...)

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
