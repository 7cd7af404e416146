package services

import (
	"route-dispatch-service/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleGateEligibleOncePerDay(t *testing.T) {
	g := newGate(t)

	for _, tz := range []string{"America/Chicago", "Asia/Kolkata", "Pacific/Auckland", "UTC"} {
		for hour := 0; hour < 24; hour++ {
			tenant := &domain.Tenant{ID: "t", Timezone: tz, DispatchHour: hour, RouteOptimizationEnabled: true}

			eligible := 0
			start := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
			for h := 0; h < 24; h++ {
				if g.IsEligible(tenant, start.Add(time.Duration(h)*time.Hour)) {
					eligible++
				}
			}
			assert.Equal(t, 1, eligible, "zone %s hour %d", tz, hour)
		}
	}
}

func TestScheduleGateLocalHour(t *testing.T) {
	g := newGate(t)
	tenant := acmeTenant()

	assert.True(t, g.IsEligible(tenant, acmeTick))
	assert.False(t, g.IsEligible(tenant, acmeTick.Add(time.Hour)))
	assert.False(t, g.IsEligible(tenant, acmeTick.Add(-time.Minute)))
	assert.True(t, g.IsEligible(tenant, acmeTick.Add(59*time.Minute)))

	date, err := g.LocalDate(tenant, acmeTick)
	require.NoError(t, err)
	assert.Equal(t, acmeDate, date)
}

func TestScheduleGateLocalDateBeforeUTCMidnight(t *testing.T) {
	g := newGate(t)

	// 04:30 UTC is still the previous evening in Chicago.
	date, err := g.LocalDate(acmeTenant(), time.Date(2026, 6, 15, 4, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026-06-14", date)
}

func TestScheduleGateHonorsMidnightDispatch(t *testing.T) {
	g := newGate(t)
	tenant := &domain.Tenant{ID: "t", Timezone: "UTC", DispatchHour: 0, RouteOptimizationEnabled: true}

	assert.True(t, g.IsEligible(tenant, time.Date(2026, 6, 15, 0, 10, 0, 0, time.UTC)))
	assert.False(t, g.IsEligible(tenant, time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC)))
}

func TestScheduleGateFallbackZone(t *testing.T) {
	g := newGate(t)
	tenant := acmeTenant()
	tenant.Timezone = ""

	assert.True(t, g.IsEligible(tenant, acmeTick))
}

func TestScheduleGateOptOutAndBadZone(t *testing.T) {
	g := newGate(t)

	off := acmeTenant()
	off.RouteOptimizationEnabled = false
	assert.False(t, g.IsEligible(off, acmeTick))

	bad := acmeTenant()
	bad.Timezone = "Mars/Olympus_Mons"
	assert.False(t, g.IsEligible(bad, acmeTick))

	_, err := g.LocalDate(bad, acmeTick)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigurationSkip)
}

func TestNewTenantScheduleGateRejectsUnknownZone(t *testing.T) {
	_, err := NewTenantScheduleGate("Nowhere/Special")
	assert.Error(t, err)
}
