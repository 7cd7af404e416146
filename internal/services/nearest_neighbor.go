package services

import "math"

// nearestNeighborTour builds the initial route from the depot (node 0).
//
// The algorithm minimizes immediate travel duration at each step. Ties go
// to the lower node index, which is the lower job id.
func nearestNeighborTour(m *costMatrix) []int {
	n := m.size()
	if n == 0 {
		return nil
	}

	visited := make([]bool, n)
	visited[0] = true
	route := make([]int, 1, n)

	current := 0
	for len(route) < n {
		best := -1
		bestCost := int64(math.MaxInt64)

		for next := 1; next < n; next++ {
			if visited[next] {
				continue
			}
			// Strict comparison keeps the lowest index on ties.
			if c := m.cost(current, next); c < bestCost {
				bestCost = c
				best = next
			}
		}

		visited[best] = true
		route = append(route, best)
		current = best
	}

	return route
}
