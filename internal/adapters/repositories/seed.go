package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"route-dispatch-service/internal/domain"
	"strings"
	"time"
)

type TenantSeed struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Timezone                 string `json:"timezone"`
	DispatchHour             *int   `json:"dispatch_hour"`
	RouteOptimizationEnabled bool   `json:"route_optimization_enabled"`
	ShiftStartMinutes        int    `json:"shift_start_minutes"`
	ETAWindowMinutes         int    `json:"eta_window_minutes"`
}

type TeamSeed struct {
	ID         int64   `json:"id"`
	TenantID   string  `json:"tenant_id"`
	Name       string  `json:"name"`
	LeadChatID string  `json:"lead_chat_id"`
	DepotLat   float64 `json:"depot_lat"`
	DepotLon   float64 `json:"depot_lon"`
	Capacity   int     `json:"capacity"`
	Active     bool    `json:"active"`
}

type JobSeed struct {
	ID             int64      `json:"id"`
	TenantID       string     `json:"tenant_id"`
	ScheduledDate  string     `json:"scheduled_date"`
	Lat            float64    `json:"lat"`
	Lon            float64    `json:"lon"`
	Address        string     `json:"address"`
	CustomerName   string     `json:"customer_name"`
	CustomerPhone  string     `json:"customer_phone"`
	ServiceMinutes int        `json:"service_minutes"`
	WindowStart    *time.Time `json:"window_start"`
	WindowEnd      *time.Time `json:"window_end"`
	Status         string     `json:"status"`
}

type Seed struct {
	Tenants []TenantSeed `json:"tenants"`
	Teams   []TeamSeed   `json:"teams"`
	Jobs    []JobSeed    `json:"jobs"`
}

// Validate checks the seed the same way the optimizer checks live records.
// When date is set it replaces every job's scheduled date.
func (s *Seed) Validate(date string) error {
	if date != "" {
		if _, err := time.Parse(domain.DateLayout, date); err != nil {
			return fmt.Errorf("seed: override date %q: %w", date, err)
		}
	}

	for i, t := range s.Tenants {
		t.ID = strings.TrimSpace(t.ID)
		tenant := domain.Tenant{ID: t.ID, Timezone: t.Timezone, ShiftStartMinutes: t.ShiftStartMinutes, ETAWindowMinutes: t.ETAWindowMinutes}
		if t.DispatchHour != nil {
			tenant.DispatchHour = *t.DispatchHour
		}
		if err := tenant.Validate(); err != nil {
			return fmt.Errorf("seed: tenant at index %d: %w", i+1, err)
		}
		s.Tenants[i] = t
	}

	for i, t := range s.Teams {
		team := domain.Team{ID: t.ID, TenantID: t.TenantID, Depot: domain.Coordinates{Lat: t.DepotLat, Lon: t.DepotLon}, Capacity: t.Capacity}
		if err := team.Validate(); err != nil {
			return fmt.Errorf("seed: team at index %d: %w", i+1, err)
		}
	}

	for i := range s.Jobs {
		j := &s.Jobs[i]
		if date != "" {
			j.ScheduledDate = date
		}
		if j.Status == "" {
			j.Status = string(domain.JobScheduled)
		}
		job := domain.Job{
			ID:              j.ID,
			TenantID:        j.TenantID,
			ScheduledDate:   j.ScheduledDate,
			Location:        domain.Coordinates{Lat: j.Lat, Lon: j.Lon},
			ServiceDuration: time.Duration(j.ServiceMinutes) * time.Minute,
		}
		if j.WindowStart != nil && j.WindowEnd != nil {
			job.Window = &domain.TimeWindow{Earliest: *j.WindowStart, Latest: *j.WindowEnd}
		}
		if err := job.Validate(); err != nil {
			return fmt.Errorf("seed: job at index %d: %w", i+1, err)
		}
	}

	return nil
}

// LoadSeed reads and validates a seed file.
func LoadSeed(jsonPath, date string) (*Seed, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var seed Seed
	if err := json.Unmarshal(bytes, &seed); err != nil {
		return nil, fmt.Errorf("seed: parse json: %w", err)
	}
	if err := seed.Validate(date); err != nil {
		return nil, err
	}
	return &seed, nil
}

// SeedFromJSON upserts tenants, teams and jobs from a JSON file. When date is
// non-empty every job is scheduled on it, which makes demo data reusable.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath, date string) error {
	seed, err := LoadSeed(jsonPath, date)
	if err != nil {
		return err
	}
	return Apply(ctx, db, seed)
}

// Apply writes a validated seed in one transaction.
func Apply(ctx context.Context, db *sql.DB, seed *Seed) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range seed.Tenants {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO tenants (id, name, timezone, dispatch_hour, route_optimization_enabled, shift_start_minutes, eta_window_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			dispatch_hour = EXCLUDED.dispatch_hour,
			route_optimization_enabled = EXCLUDED.route_optimization_enabled,
			shift_start_minutes = EXCLUDED.shift_start_minutes,
			eta_window_minutes = EXCLUDED.eta_window_minutes;
		`, t.ID, t.Name, t.Timezone, t.DispatchHour, t.RouteOptimizationEnabled, t.ShiftStartMinutes, t.ETAWindowMinutes); err != nil {
			return fmt.Errorf("seed: upsert tenant %s: %w", t.ID, err)
		}
	}

	for _, t := range seed.Teams {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO teams (id, tenant_id, name, lead_chat_id, depot_lat, depot_lon, capacity, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET tenant_id = EXCLUDED.tenant_id,
			name = EXCLUDED.name,
			lead_chat_id = EXCLUDED.lead_chat_id,
			depot_lat = EXCLUDED.depot_lat,
			depot_lon = EXCLUDED.depot_lon,
			capacity = EXCLUDED.capacity,
			active = EXCLUDED.active;
		`, t.ID, t.TenantID, t.Name, t.LeadChatID, t.DepotLat, t.DepotLon, t.Capacity, t.Active); err != nil {
			return fmt.Errorf("seed: upsert team %d: %w", t.ID, err)
		}
	}

	for _, j := range seed.Jobs {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO jobs (id, tenant_id, scheduled_date, lat, lon, address, customer_name, customer_phone,
			service_minutes, window_start, window_end, status)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET tenant_id = EXCLUDED.tenant_id,
			scheduled_date = EXCLUDED.scheduled_date,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			address = EXCLUDED.address,
			customer_name = EXCLUDED.customer_name,
			customer_phone = EXCLUDED.customer_phone,
			service_minutes = EXCLUDED.service_minutes,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			status = EXCLUDED.status;
		`, j.ID, j.TenantID, j.ScheduledDate, j.Lat, j.Lon, j.Address, j.CustomerName, j.CustomerPhone,
			j.ServiceMinutes, j.WindowStart, j.WindowEnd, j.Status); err != nil {
			return fmt.Errorf("seed: upsert job %d: %w", j.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
