package services

import (
	"context"
	"errors"
	"fmt"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/ports"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTenants struct {
	tenants []*domain.Tenant
	err     error
}

func (f *fakeTenants) ListTenants(context.Context) ([]*domain.Tenant, error) {
	return f.tenants, f.err
}

type fakeJobs struct {
	byTenant map[string][]*domain.Job
	err      error
	panicFor string
}

func (f *fakeJobs) ListEligibleJobs(_ context.Context, tenantID, date string) ([]*domain.Job, error) {
	if tenantID == f.panicFor {
		panic("job store exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Job
	for _, j := range f.byTenant[tenantID] {
		if j.Eligible(tenantID, date) {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeTeams struct {
	byTenant map[string][]*domain.Team
	err      error
}

func (f *fakeTeams) ListActiveTeams(_ context.Context, tenantID string) ([]*domain.Team, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byTenant[tenantID], nil
}

type fakeStore struct {
	mu    sync.Mutex
	calls int
	err   error
	saved map[string][]domain.RouteAssignment
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string][]domain.RouteAssignment{}}
}

func (s *fakeStore) ReplaceAssignments(_ context.Context, tenantID, date string, as []domain.RouteAssignment) (ports.ReplaceCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return ports.ReplaceCounts{}, s.err
	}
	s.saved[tenantID+"|"+date] = slices.Clone(as)
	return ports.ReplaceCounts{JobsUpdated: len(as), AssignmentsCreated: len(as)}, nil
}

func (s *fakeStore) ListAssignments(_ context.Context, tenantID, date string) ([]domain.RouteAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[tenantID+"|"+date], nil
}

// fakeSender implements both notifier ports and records what was sent.
type fakeSender struct {
	mu    sync.Mutex
	fail  map[string]error
	delay time.Duration
	panic bool

	telegrams map[string]string
	sms       map[string]string
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		fail:      map[string]error{},
		telegrams: map[string]string{},
		sms:       map[string]string{},
	}
}

func (f *fakeSender) deliver(ctx context.Context, into map[string]string, to, text string) (string, error) {
	if f.panic {
		panic("sender exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.fail[to]; err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	into[to] = text
	return fmt.Sprintf("msg-%d", len(into)), nil
}

func (f *fakeSender) SendToTeamLead(ctx context.Context, identity, text string) (string, error) {
	return f.deliver(ctx, f.telegrams, identity, text)
}

func (f *fakeSender) SendSMS(ctx context.Context, phone, text string) (string, error) {
	return f.deliver(ctx, f.sms, phone, text)
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]bool{}} }

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

// fakeLimiter denies every call unless allow is set; with denyFirst > 0 it
// denies only that many calls and admits the rest.
type fakeLimiter struct {
	mu        sync.Mutex
	allow     bool
	denyFirst int
	err       error
	keys      []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int64, _ time.Duration) (bool, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	allowed := l.allow || (l.denyFirst > 0 && len(l.keys) > l.denyFirst)
	return allowed, int64(len(l.keys)), l.err
}

var errBoom = errors.New("boom")

const acmeDate = "2026-06-15"

// 03:00 in America/Chicago (CDT) on acmeDate.
var acmeTick = time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC)

func acmeTenant() *domain.Tenant {
	return &domain.Tenant{
		ID:                       "acme",
		Name:                     "Acme Lawn Care",
		Timezone:                 "America/Chicago",
		DispatchHour:             3,
		RouteOptimizationEnabled: true,
	}
}

// Two clusters: three jobs near the north depot, two near the south one.
func acmeTeams() []*domain.Team {
	return []*domain.Team{
		{ID: 10, TenantID: "acme", Name: "North", LeadChatID: "lead-north", Depot: domain.Coordinates{Lat: 41.95, Lon: -87.65}, Capacity: 3, Active: true},
		{ID: 20, TenantID: "acme", Name: "South", LeadChatID: "lead-south", Depot: domain.Coordinates{Lat: 41.80, Lon: -87.62}, Capacity: 3, Active: true},
	}
}

func acmeJobs() []*domain.Job {
	job := func(id int64, lat, lon float64) *domain.Job {
		return &domain.Job{
			ID:              id,
			TenantID:        "acme",
			ScheduledDate:   acmeDate,
			Location:        domain.Coordinates{Lat: lat, Lon: lon},
			CustomerName:    fmt.Sprintf("Customer %d", id),
			CustomerPhone:   fmt.Sprintf("+1312555010%d", id),
			ServiceDuration: 30 * time.Minute,
			Status:          domain.JobScheduled,
		}
	}
	return []*domain.Job{
		job(1, 41.96, -87.65),
		job(2, 41.95, -87.62),
		job(3, 41.93, -87.66),
		job(4, 41.785, -87.62),
		job(5, 41.80, -87.66),
	}
}

func newGate(t *testing.T) *TenantScheduleGate {
	t.Helper()
	g, err := NewTenantScheduleGate("America/Chicago")
	require.NoError(t, err)
	return g
}

// newAcmeOptimizer runs on straight-line estimates only.
func newAcmeOptimizer(t *testing.T, jobs *fakeJobs, teams *fakeTeams) *RouteOptimizer {
	t.Helper()
	if jobs == nil {
		jobs = &fakeJobs{byTenant: map[string][]*domain.Job{"acme": acmeJobs()}}
	}
	if teams == nil {
		teams = &fakeTeams{byTenant: map[string][]*domain.Team{"acme": acmeTeams()}}
	}
	return NewRouteOptimizer(jobs, teams, NewDistanceEstimator(nil, time.Second), newGate(t))
}
