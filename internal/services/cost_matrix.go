package services

import (
	"context"
	"route-dispatch-service/internal/domain"
	"sync"
)

// costMatrix holds directed legs between route nodes. Node 0 is the depot;
// node k (k >= 1) is the k-th job of the team in id order.
type costMatrix struct {
	legs [][]Leg
}

func (m *costMatrix) size() int { return len(m.legs) }

// cost is the travel duration in seconds, which routing minimizes.
func (m *costMatrix) cost(from, to int) int64 {
	return int64(m.legs[from][to].DurationSeconds)
}

func (m *costMatrix) leg(from, to int) Leg { return m.legs[from][to] }

// estimated counts directed pairs answered by the fallback, and returns the
// first fallback reason seen in row-major order.
func (m *costMatrix) estimated() (int, error) {
	n := 0
	var first error
	for i := range m.legs {
		for j := range m.legs[i] {
			if i == j || !m.legs[i][j].Estimated {
				continue
			}
			n++
			if first == nil {
				first = m.legs[i][j].Reason
			}
		}
	}
	return n, first
}

// buildCostMatrix looks up every directed pair, one row per origin, with at
// most concurrency rows in flight.
func buildCostMatrix(
	ctx context.Context,
	estimator *DistanceEstimator,
	points []domain.Coordinates,
	concurrency int,
) *costMatrix {
	if concurrency <= 0 {
		concurrency = 1
	}

	m := &costMatrix{legs: make([][]Leg, len(points))}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range points {
		wg.Add(1)
		go func(origin int) {
			sem <- struct{}{}
			defer wg.Done()
			defer func() { <-sem }()

			// Each goroutine owns its row.
			m.legs[origin] = estimator.EstimateRow(ctx, points[origin], points)
			m.legs[origin][origin] = Leg{}
		}(i)
	}

	wg.Wait()
	return m
}
