package services

import (
	"context"
	"fmt"
	"route-dispatch-service/internal/adapters/distance"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/platform/obs"
	"route-dispatch-service/internal/ports"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchFixture struct {
	tenants *fakeTenants
	jobs    *fakeJobs
	teams   *fakeTeams
	store   *fakeStore
	sender  *fakeSender
	locker  *fakeLocker

	provider ports.DistanceProvider
}

func newBatchFixture(tenants ...*domain.Tenant) *batchFixture {
	jobs := map[string][]*domain.Job{}
	teams := map[string][]*domain.Team{}
	for _, tn := range tenants {
		js := acmeJobs()
		for _, j := range js {
			j.TenantID = tn.ID
		}
		ts := acmeTeams()
		for _, team := range ts {
			team.TenantID = tn.ID
			team.LeadChatID = tn.ID + "-" + team.LeadChatID
		}
		jobs[tn.ID] = js
		teams[tn.ID] = ts
	}

	return &batchFixture{
		tenants: &fakeTenants{tenants: tenants},
		jobs:    &fakeJobs{byTenant: jobs},
		teams:   &fakeTeams{byTenant: teams},
		store:   newFakeStore(),
		sender:  newFakeSender(),
		locker:  newFakeLocker(),
	}
}

func (f *batchFixture) runner(t *testing.T) *BatchRunner {
	t.Helper()
	gate := newGate(t)
	opt := NewRouteOptimizer(f.jobs, f.teams, NewDistanceEstimator(f.provider, time.Second), gate)
	return NewBatchRunner(
		f.tenants,
		gate,
		opt,
		NewAssignmentPersister(f.store),
		NewDispatchCoordinator(f.sender, f.sender),
	).WithLocker(f.locker, time.Minute)
}

// acmeRoads answers every directed pair among the acme depots and jobs with
// road figures that differ from the straight-line fallback.
func acmeRoads() (*distance.MockDistanceProvider, map[string]int) {
	var points []domain.Coordinates
	for _, team := range acmeTeams() {
		points = append(points, team.Depot)
	}
	for _, j := range acmeJobs() {
		points = append(points, j.Location)
	}

	seconds := map[string]int{}
	var pairs []distance.MockPair
	for _, from := range points {
		for _, to := range points {
			if from == to {
				continue
			}
			meters := int(haversineMeters(from, to) * 1.2)
			secs := meters/9 + 60
			seconds[from.Key()+"|"+to.Key()] = secs
			pairs = append(pairs, distance.MockPair{From: from, To: to, Meters: meters, Seconds: secs})
		}
	}
	return distance.NewMockDistanceProvider(pairs), seconds
}

func TestBatchRunnerAcmeEndToEnd(t *testing.T) {
	f := newBatchFixture(acmeTenant())
	roads, roadSeconds := acmeRoads()
	f.provider = roads

	report, err := f.runner(t).Run(context.Background(), acmeTick)
	require.NoError(t, err)

	assert.True(t, report.RanAt.Equal(acmeTick))
	require.Len(t, report.Results, 1)
	got := report.Results[0]

	assert.Equal(t, "acme", got.TenantID)
	assert.True(t, got.Dispatched)
	assert.Equal(t, OutcomeDispatched, got.Outcome)
	assert.Equal(t, acmeDate, got.Date)
	assert.Equal(t, TenantStats{
		Jobs:                  5,
		Assignments:           5,
		JobsUpdated:           5,
		TeamNotifications:     2,
		CustomerNotifications: 5,
		Errors:                0,
	}, got.Stats)
	assert.Empty(t, got.Errors)
	for _, w := range got.Warnings {
		assert.NotContains(t, w, "straight-line")
	}
	assert.Positive(t, roads.Calls())

	saved := f.store.saved["acme|"+acmeDate]
	require.Len(t, saved, 5)
	assert.Empty(t, f.locker.held, "lock released")

	// First stops arrive at 08:00 CDT plus the road time from the depot.
	depots := map[int64]domain.Coordinates{}
	for _, team := range acmeTeams() {
		depots[team.ID] = team.Depot
	}
	jobsAt := map[int64]domain.Coordinates{}
	for _, j := range acmeJobs() {
		jobsAt[j.ID] = j.Location
	}
	shiftStart := time.Date(2026, 6, 15, 13, 0, 0, 0, time.UTC)
	firsts := 0
	for _, a := range saved {
		if a.Sequence != 0 {
			continue
		}
		firsts++
		secs := roadSeconds[depots[a.TeamID].Key()+"|"+jobsAt[a.JobID].Key()]
		assert.True(t, a.ETA.Start.Equal(shiftStart.Add(time.Duration(secs)*time.Second)), "job %d", a.JobID)
		assert.Equal(t, time.Hour, a.ETA.End.Sub(a.ETA.Start))
	}
	assert.Equal(t, 2, firsts)
}

func TestBatchRunnerAcmeWithoutRoadsWarns(t *testing.T) {
	f := newBatchFixture(acmeTenant())

	report, err := f.runner(t).Run(context.Background(), acmeTick)
	require.NoError(t, err)

	got := report.Results[0]
	assert.True(t, got.Dispatched)
	require.NotEmpty(t, got.Warnings)
	assert.Contains(t, strings.Join(got.Warnings, "\n"), "straight-line")
}

func TestBatchRunnerNotDue(t *testing.T) {
	f := newBatchFixture(acmeTenant())

	report, err := f.runner(t).Run(context.Background(), acmeTick.Add(time.Hour))
	require.NoError(t, err)

	got := report.Results[0]
	assert.False(t, got.Dispatched)
	assert.Equal(t, OutcomeNotDue, got.Outcome)
	assert.Zero(t, f.store.calls)
	assert.Empty(t, f.sender.sms)
}

func TestBatchRunnerIsolatesTenantFailures(t *testing.T) {
	broken := acmeTenant()
	broken.ID = "broken"
	optout := acmeTenant()
	optout.ID = "optout"
	optout.RouteOptimizationEnabled = false
	badzone := acmeTenant()
	badzone.ID = "badzone"
	badzone.Timezone = "Not/AZone"
	london := acmeTenant()
	london.ID = "zeta"
	london.Timezone = "Europe/London"

	f := newBatchFixture(london, acmeTenant(), broken, optout, badzone)
	f.jobs.panicFor = "broken"

	reg := prometheus.NewRegistry()
	metrics, err := obs.NewMetrics(reg)
	require.NoError(t, err)

	report, err := f.runner(t).WithMetrics(metrics).WithConcurrency(2).Run(context.Background(), acmeTick)
	require.NoError(t, err)
	require.Len(t, report.Results, 5)

	byID := map[string]TenantResult{}
	var order []string
	for _, r := range report.Results {
		byID[r.TenantID] = r
		order = append(order, r.TenantID)
	}
	assert.Equal(t, []string{"acme", "badzone", "broken", "optout", "zeta"}, order)

	assert.True(t, byID["acme"].Dispatched)
	assert.Equal(t, OutcomeFailed, byID["broken"].Outcome)
	assert.Contains(t, byID["broken"].Reason, "panic")
	assert.Equal(t, OutcomeConfigurationSkip, byID["optout"].Outcome)
	assert.Equal(t, OutcomeConfigurationSkip, byID["badzone"].Outcome)
	assert.Equal(t, OutcomeNotDue, byID["zeta"].Outcome)

	expected := `
# HELP route_dispatch_cycles_total Per-tenant dispatch cycles by outcome
# TYPE route_dispatch_cycles_total counter
route_dispatch_cycles_total{outcome="configuration_skip"} 2
route_dispatch_cycles_total{outcome="dispatched"} 1
route_dispatch_cycles_total{outcome="failed"} 1
route_dispatch_cycles_total{outcome="not_due"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "route_dispatch_cycles_total"))
	assert.Contains(t, f.sender.telegrams, "acme-lead-north")
	assert.NotContains(t, f.sender.telegrams, "broken-lead-north")
}

func TestBatchRunnerPersistenceFailureSkipsDispatch(t *testing.T) {
	f := newBatchFixture(acmeTenant())
	f.store.err = errBoom

	report, err := f.runner(t).Run(context.Background(), acmeTick)
	require.NoError(t, err)

	got := report.Results[0]
	assert.False(t, got.Dispatched)
	assert.Equal(t, OutcomePersistenceFailed, got.Outcome)
	assert.Empty(t, f.sender.telegrams)
	assert.Empty(t, f.sender.sms)
}

func TestBatchRunnerNoWork(t *testing.T) {
	f := newBatchFixture(acmeTenant())
	f.jobs.byTenant["acme"] = nil

	report, err := f.runner(t).Run(context.Background(), acmeTick)
	require.NoError(t, err)

	got := report.Results[0]
	assert.Equal(t, OutcomeNoWork, got.Outcome)
	assert.Contains(t, got.Reason, "no jobs scheduled for 2026-06-15")
	assert.Zero(t, f.store.calls)
}

func TestBatchRunnerLockContention(t *testing.T) {
	f := newBatchFixture(acmeTenant())
	f.locker.held[fmt.Sprintf("lock:route:acme:%s", acmeDate)] = true

	report, err := f.runner(t).Run(context.Background(), acmeTick)
	require.NoError(t, err)

	assert.Equal(t, OutcomeInProgress, report.Results[0].Outcome)
	assert.Zero(t, f.store.calls)
}

func TestBatchRunnerPartialNotificationFailure(t *testing.T) {
	f := newBatchFixture(acmeTenant())
	f.sender.fail["acme-lead-north"] = errBoom

	report, err := f.runner(t).Run(context.Background(), acmeTick)
	require.NoError(t, err)

	got := report.Results[0]
	assert.True(t, got.Dispatched)
	assert.Equal(t, 1, got.Stats.TeamNotifications)
	assert.Equal(t, 5, got.Stats.CustomerNotifications)
	assert.Equal(t, 1, got.Stats.Errors)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "acme-lead-north", got.Errors[0].Recipient)
}

func TestBatchRunnerListTenantsError(t *testing.T) {
	f := newBatchFixture()
	f.tenants.err = errBoom

	report, err := f.runner(t).Run(context.Background(), acmeTick)
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, report.Results)
}
