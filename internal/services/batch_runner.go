package services

import (
	"context"
	"errors"
	"fmt"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/platform/obs"
	"route-dispatch-service/internal/ports"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type TenantStats struct {
	Jobs                  int `json:"jobs"`
	Assignments           int `json:"assignments"`
	JobsUpdated           int `json:"jobs_updated"`
	TeamNotifications     int `json:"team_notifications"`
	CustomerNotifications int `json:"customer_notifications"`
	Errors                int `json:"errors"`
}

// TenantResult is one tenant's line in the batch report.
type TenantResult struct {
	TenantID   string                  `json:"tenant_id"`
	Dispatched bool                    `json:"dispatched"`
	Outcome    Outcome                 `json:"outcome"`
	Reason     string                  `json:"reason,omitempty"`
	Date       string                  `json:"date,omitempty"`
	Stats      TenantStats             `json:"stats"`
	Warnings   []string                `json:"warnings,omitempty"`
	Errors     []domain.RecipientError `json:"errors,omitempty"`
}

type Report struct {
	RanAt   time.Time      `json:"ran_at"`
	Results []TenantResult `json:"results"`
}

// BatchRunner drives one tick: gate, optimize, persist, dispatch per tenant.
type BatchRunner struct {
	tenants     ports.TenantRepository
	gate        *TenantScheduleGate
	optimizer   *RouteOptimizer
	persister   *AssignmentPersister
	coordinator *DispatchCoordinator
	locker      ports.KeyLocker
	metrics     *obs.Metrics

	concurrency int
	lockTTL     time.Duration
}

func NewBatchRunner(
	tenants ports.TenantRepository,
	gate *TenantScheduleGate,
	optimizer *RouteOptimizer,
	persister *AssignmentPersister,
	coordinator *DispatchCoordinator,
) *BatchRunner {
	return &BatchRunner{
		tenants:     tenants,
		gate:        gate,
		optimizer:   optimizer,
		persister:   persister,
		coordinator: coordinator,
		concurrency: 4,
		lockTTL:     10 * time.Minute,
	}
}

// WithLocker enforces a single optimize+persist writer per (tenant, date).
func (r *BatchRunner) WithLocker(l ports.KeyLocker, ttl time.Duration) *BatchRunner {
	r.locker = l
	if ttl > 0 {
		r.lockTTL = ttl
	}
	return r
}

func (r *BatchRunner) WithConcurrency(n int) *BatchRunner {
	if n > 0 {
		r.concurrency = n
	}
	return r
}

func (r *BatchRunner) WithMetrics(m *obs.Metrics) *BatchRunner {
	r.metrics = m
	return r
}

// Run processes every tenant for the tick at nowUTC. A tenant failure never
// aborts the batch; an error is returned only when tenants cannot be listed.
func (r *BatchRunner) Run(ctx context.Context, nowUTC time.Time) (Report, error) {
	nowUTC = nowUTC.UTC()
	report := Report{RanAt: nowUTC, Results: []TenantResult{}}

	tenants, err := r.tenants.ListTenants(ctx)
	if err != nil {
		return report, fmt.Errorf("batch run: list tenants: %w", err)
	}

	results := make([]TenantResult, len(tenants))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, t := range tenants {
		g.Go(func() error {
			results[i] = r.runTenant(ctx, t, nowUTC)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortStableFunc(results, func(a, b TenantResult) int {
		return strings.Compare(a.TenantID, b.TenantID)
	})
	report.Results = results
	return report, nil
}

// runTenant is the per-tenant boundary: every error and panic stops here.
func (r *BatchRunner) runTenant(ctx context.Context, tenant *domain.Tenant, nowUTC time.Time) (res TenantResult) {
	if tenant == nil {
		return TenantResult{Outcome: OutcomeConfigurationSkip, Reason: "nil tenant record"}
	}
	res = TenantResult{TenantID: tenant.ID}

	log := zerolog.Ctx(ctx).With().Str("tenant_id", tenant.ID).Logger()
	ctx = log.WithContext(ctx)

	defer func() {
		if p := recover(); p != nil {
			res.Dispatched = false
			res.Outcome = OutcomeFailed
			res.Reason = fmt.Sprintf("panic: %v", p)
			log.Error().Interface("panic", p).Msg("tenant cycle panicked")
		}
		r.metrics.Cycle(string(res.Outcome))
	}()

	if err := tenant.Validate(); err != nil {
		return r.finish(log, res, fmt.Errorf("%w: %v", ErrConfigurationSkip, err))
	}
	if !tenant.RouteOptimizationEnabled {
		return r.finish(log, res, fmt.Errorf("%w: route optimization disabled", ErrConfigurationSkip))
	}
	if !r.gate.IsEligible(tenant, nowUTC) {
		hour, _ := r.gate.LocalHour(tenant, nowUTC)
		res.Outcome = OutcomeNotDue
		res.Reason = fmt.Sprintf("local hour %02d, dispatch hour %02d", hour, tenant.DispatchHour)
		return res
	}

	date, err := r.gate.LocalDate(tenant, nowUTC)
	if err != nil {
		return r.finish(log, res, err)
	}
	res.Date = date

	if r.locker != nil {
		unlock, ok, err := r.locker.TryLock(ctx, fmt.Sprintf("lock:route:%s:%s", tenant.ID, date), r.lockTTL)
		if err != nil {
			return r.finish(log, res, fmt.Errorf("acquire cycle lock: %w", err))
		}
		if !ok {
			return r.finish(log, res, fmt.Errorf("%w: %s/%s", ErrCycleInProgress, tenant.ID, date))
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("release cycle lock")
			}
		}()
	}

	result, err := r.optimizer.Optimize(ctx, tenant, date)
	if err != nil {
		return r.finish(log, res, err)
	}
	res.Warnings = result.Warnings
	res.Stats.Jobs = result.Stats.AssignedJobs

	if result.Stats.AssignedJobs == 0 {
		return r.finish(log, res, fmt.Errorf("%w: %s", ErrNoEligibleWork, strings.Join(result.Warnings, "; ")))
	}

	persisted, err := r.persister.Persist(ctx, result)
	if err != nil {
		return r.finish(log, res, err)
	}
	res.Stats.Assignments = persisted.AssignmentsCreated
	res.Stats.JobsUpdated = persisted.JobsUpdated

	dispatched := r.coordinator.Dispatch(ctx, result, true)

	res.Stats.TeamNotifications = dispatched.TelegramsSent
	res.Stats.CustomerNotifications = dispatched.SMSSent
	res.Stats.Errors = len(dispatched.Errors)
	res.Errors = dispatched.Errors

	res = r.finish(log, res, nil)
	if len(dispatched.Errors) > 0 {
		res.Reason = fmt.Sprintf("dispatched with %d notification failures", len(dispatched.Errors))
	}
	return res
}

func (r *BatchRunner) finish(log zerolog.Logger, res TenantResult, err error) TenantResult {
	res.Outcome = Classify(err)
	res.Dispatched = err == nil
	if err == nil {
		log.Info().
			Str("date", res.Date).
			Int("jobs", res.Stats.Jobs).
			Int("jobs_updated", res.Stats.JobsUpdated).
			Int("team_notifications", res.Stats.TeamNotifications).
			Int("customer_notifications", res.Stats.CustomerNotifications).
			Int("errors", res.Stats.Errors).
			Msg("tenant dispatched")
		return res
	}

	res.Reason = err.Error()
	ev := log.Info()
	if errors.Is(err, ErrPersistence) || res.Outcome == OutcomeFailed {
		ev = log.Error()
	}
	ev.Str("outcome", string(res.Outcome)).Err(err).Msg("tenant not dispatched")
	return res
}
