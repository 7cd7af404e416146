package services

import (
	"fmt"
	"route-dispatch-service/internal/domain"
	"time"
)

// TenantScheduleGate decides which tenants run the daily cycle on a tick.
//
// The local hour is resolved from the tenant's IANA zone. Daylight-saving
// transitions are not special-cased: a skipped local hour means no dispatch
// that day, and a repeated one re-runs the idempotent replace+notify cycle.
type TenantScheduleGate struct {
	fallback *time.Location
}

// NewTenantScheduleGate uses fallbackZone for tenants without a timezone.
func NewTenantScheduleGate(fallbackZone string) (*TenantScheduleGate, error) {
	loc, err := time.LoadLocation(fallbackZone)
	if err != nil {
		return nil, fmt.Errorf("schedule gate: load fallback zone %q: %w", fallbackZone, err)
	}
	return &TenantScheduleGate{fallback: loc}, nil
}

// Location resolves the tenant's zone, falling back to the gate default.
func (g *TenantScheduleGate) Location(t *domain.Tenant) (*time.Location, error) {
	if t.Timezone == "" {
		return g.fallback, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: tenant %s timezone %q: %v", ErrConfigurationSkip, t.ID, t.Timezone, err)
	}
	return loc, nil
}

// LocalHour returns the tenant's wall-clock hour at nowUTC.
func (g *TenantScheduleGate) LocalHour(t *domain.Tenant, nowUTC time.Time) (int, error) {
	loc, err := g.Location(t)
	if err != nil {
		return 0, err
	}
	return nowUTC.In(loc).Hour(), nil
}

// IsEligible reports whether the tenant is opted in and its local hour equals
// the configured dispatch hour.
func (g *TenantScheduleGate) IsEligible(t *domain.Tenant, nowUTC time.Time) bool {
	if !t.RouteOptimizationEnabled {
		return false
	}
	hour, err := g.LocalHour(t, nowUTC)
	if err != nil {
		return false
	}
	return hour == t.DispatchHour
}

// LocalDate is the tenant-local calendar date at nowUTC, used as the route date.
func (g *TenantScheduleGate) LocalDate(t *domain.Tenant, nowUTC time.Time) (string, error) {
	loc, err := g.Location(t)
	if err != nil {
		return "", err
	}
	return nowUTC.In(loc).Format(domain.DateLayout), nil
}
