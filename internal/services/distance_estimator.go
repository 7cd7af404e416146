package services

import (
	"context"
	"errors"
	"fmt"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/platform/obs"
	"route-dispatch-service/internal/ports"
	"time"
)

// Leg is one directed travel estimate. When Estimated is set, Reason explains
// why the live provider was not used.
type Leg struct {
	ports.DistanceResult
	Estimated bool
	Reason    error
}

var (
	errNoProvider  = errors.New("no distance provider configured")
	errRateLimited = errors.New("distance provider rate limit reached")
)

// DistanceEstimator prefers live distance data and falls back to a
// straight-line estimate. It never fails.
type DistanceEstimator struct {
	provider ports.DistanceProvider
	limiter  ports.RateLimiter
	metrics  *obs.Metrics

	timeout       time.Duration
	ratePerMinute int64
	now           func() time.Time
}

func NewDistanceEstimator(provider ports.DistanceProvider, timeout time.Duration) *DistanceEstimator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DistanceEstimator{
		provider: provider,
		timeout:  timeout,
		now:      time.Now,
	}
}

// WithRateLimit throttles provider calls to perMinute across all workers.
func (e *DistanceEstimator) WithRateLimit(limiter ports.RateLimiter, perMinute int64) *DistanceEstimator {
	e.limiter = limiter
	e.ratePerMinute = perMinute
	return e
}

func (e *DistanceEstimator) WithMetrics(m *obs.Metrics) *DistanceEstimator {
	e.metrics = m
	return e
}

func (e *DistanceEstimator) fallback(from, to domain.Coordinates, reason error) Leg {
	e.metrics.DistanceFallback()
	return Leg{DistanceResult: straightLineEstimate(from, to), Estimated: true, Reason: reason}
}

// allow consumes one provider call from the shared budget.
func (e *DistanceEstimator) allow(ctx context.Context) error {
	if e.limiter == nil || e.ratePerMinute <= 0 {
		return nil
	}
	key := fmt.Sprintf("rl:distance:%s", e.now().UTC().Format("200601021504"))
	ok, _, err := e.limiter.Allow(ctx, key, e.ratePerMinute, 70*time.Second)
	if err != nil {
		return fmt.Errorf("distance rate limiter: %w", err)
	}
	if !ok {
		return errRateLimited
	}
	return nil
}

// Estimate returns the travel leg from -> to.
func (e *DistanceEstimator) Estimate(ctx context.Context, from, to domain.Coordinates) Leg {
	if from == to {
		return Leg{}
	}
	if e.provider == nil {
		return e.fallback(from, to, errNoProvider)
	}
	if err := e.allow(ctx); err != nil {
		return e.fallback(from, to, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	r, err := e.provider.GetDistance(ctx, from, to)
	if err != nil {
		return e.fallback(from, to, err)
	}
	return Leg{DistanceResult: r}
}

// EstimateRow returns legs from origin to each destination, in order.
// A matrix-capable provider is asked once for the whole row; anything it
// does not answer is estimated.
func (e *DistanceEstimator) EstimateRow(ctx context.Context, origin domain.Coordinates, destinations []domain.Coordinates) []Leg {
	out := make([]Leg, len(destinations))

	mp, ok := e.provider.(ports.DistanceMatrixProvider)
	if !ok {
		for i, d := range destinations {
			out[i] = e.Estimate(ctx, origin, d)
		}
		return out
	}

	var rowErr error
	var results map[string]ports.DistanceResult
	if rowErr = e.allow(ctx); rowErr == nil {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		results, rowErr = mp.GetDistances(callCtx, origin, destinations)
		cancel()
	}

	for i, d := range destinations {
		if d == origin {
			continue
		}
		if rowErr != nil {
			out[i] = e.fallback(origin, d, rowErr)
			continue
		}
		r, ok := results[d.Key()]
		if !ok {
			out[i] = e.fallback(origin, d, fmt.Errorf("no matrix entry for %s -> %s", origin.Key(), d.Key()))
			continue
		}
		out[i] = Leg{DistanceResult: r}
	}
	return out
}
