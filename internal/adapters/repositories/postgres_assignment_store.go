package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/platform/obs"
	"route-dispatch-service/internal/ports"
)

// PostgreSQL-backed implementation of the AssignmentStore port.
type PostgresAssignmentStore struct{ DB *sql.DB }

func NewPostgresAssignmentStore(db *sql.DB) *PostgresAssignmentStore {
	return &PostgresAssignmentStore{DB: db}
}

// ReplaceAssignments supersedes every assignment for (tenantID, date) in one
// transaction. A transaction-scoped advisory lock serializes concurrent
// writers for the same pair; readers see either the old set or the new one.
func (s *PostgresAssignmentStore) ReplaceAssignments(
	ctx context.Context,
	tenantID, date string,
	assignments []domain.RouteAssignment,
) (_ ports.ReplaceCounts, err error) {
	defer obs.Time(ctx, "repo.ReplaceAssignments")(&err)

	if s.DB == nil {
		return ports.ReplaceCounts{}, errors.New("postgres assignment store: DB is nil")
	}

	for _, a := range assignments {
		if a.TenantID != tenantID || a.RouteDate != date {
			return ports.ReplaceCounts{}, fmt.Errorf(
				"replace assignments: job %d belongs to %s/%s, not %s/%s",
				a.JobID, a.TenantID, a.RouteDate, tenantID, date,
			)
		}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1::text || '|' || $2::text));`,
		tenantID, date,
	); err != nil {
		return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: advisory lock: %w", err)
	}

	// Routing columns from a previous run must not outlive its assignments.
	if _, err := tx.ExecContext(ctx, `
	UPDATE jobs
	SET team_id = NULL, route_sequence = NULL, eta_start = NULL, eta_end = NULL
	WHERE tenant_id = $1
		AND id IN (
			SELECT job_id FROM route_assignments
			WHERE tenant_id = $1 AND route_date = $2::date
		);
	`, tenantID, date); err != nil {
		return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: clear job routing: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM route_assignments WHERE tenant_id = $1 AND route_date = $2::date;`,
		tenantID, date,
	); err != nil {
		return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: delete previous: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `
	INSERT INTO route_assignments (tenant_id, job_id, route_date, team_id, sequence, eta_start, eta_end)
	VALUES ($1, $2, $3::date, $4, $5, $6, $7);
	`)
	if err != nil {
		return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: prepare insert: %w", err)
	}
	defer insert.Close()

	update, err := tx.PrepareContext(ctx, `
	UPDATE jobs
	SET team_id = $1, route_sequence = $2, eta_start = $3, eta_end = $4
	WHERE id = $5 AND tenant_id = $6;
	`)
	if err != nil {
		return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: prepare job update: %w", err)
	}
	defer update.Close()

	var counts ports.ReplaceCounts
	for _, a := range assignments {
		if _, err := insert.ExecContext(ctx,
			a.TenantID, a.JobID, a.RouteDate, a.TeamID, a.Sequence, a.ETA.Start, a.ETA.End,
		); err != nil {
			return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: insert job_id=%d: %w", a.JobID, err)
		}
		counts.AssignmentsCreated++

		res, err := update.ExecContext(ctx, a.TeamID, a.Sequence, a.ETA.Start, a.ETA.End, a.JobID, a.TenantID)
		if err != nil {
			return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: update job_id=%d: %w", a.JobID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: rows affected job_id=%d: %w", a.JobID, err)
		}
		counts.JobsUpdated += int(n)
	}

	if err := tx.Commit(); err != nil {
		return ports.ReplaceCounts{}, fmt.Errorf("replace assignments: commit tx: %w", err)
	}

	return counts, nil
}

// ListAssignments returns the persisted routes for (tenantID, date) ordered
// by team and sequence.
func (s *PostgresAssignmentStore) ListAssignments(ctx context.Context, tenantID, date string) (_ []domain.RouteAssignment, err error) {
	defer obs.Time(ctx, "repo.ListAssignments")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres assignment store: DB is nil")
	}

	query := `
	SELECT
		tenant_id,
		job_id,
		route_date::text,
		team_id,
		sequence,
		eta_start,
		eta_end
	FROM route_assignments
	WHERE tenant_id = $1
		AND route_date = $2::date
	ORDER BY team_id, sequence;
	`
	rows, err := s.DB.QueryContext(ctx, query, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("list assignments: query route_assignments table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RouteAssignment, 0, 32)
	for rows.Next() {
		var a domain.RouteAssignment
		if err := rows.Scan(
			&a.TenantID,
			&a.JobID,
			&a.RouteDate,
			&a.TeamID,
			&a.Sequence,
			&a.ETA.Start,
			&a.ETA.End,
		); err != nil {
			return nil, fmt.Errorf("list assignments: scan row: %w", err)
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assignments: row iteration: %w", err)
	}

	return out, nil
}
