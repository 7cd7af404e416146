package services

// routeCost sums directed edge costs along an open route.
func routeCost(route []int, cost func(from, to int) int64) int64 {
	var total int64
	for k := 0; k+1 < len(route); k++ {
		total += cost(route[k], route[k+1])
	}
	return total
}

// twoOpt improves an open route in place with first-improvement 2-opt.
//
// route[0] is the depot and never moves. A move reverses positions i+1..j.
// Costs may be asymmetric, so the delta includes the reversed interior edges,
// read from prefix sums in both directions. Each applied move ends the scan
// and the next one starts over from the depot, so maxScans bounds applied
// moves plus the final clean scan. It returns the number of scans performed
// and whether the last one found nothing to improve.
func twoOpt(route []int, cost func(from, to int) int64, maxScans int) (int, bool) {
	n := len(route)
	if n < 3 {
		return 0, true
	}

	// fwd[k]: cost of route[0..k] walked forward; bwd[k]: same edges walked backward.
	fwd := make([]int64, n)
	bwd := make([]int64, n)

	scans := 0
	for scans < maxScans {
		scans++

		for k := 1; k < n; k++ {
			fwd[k] = fwd[k-1] + cost(route[k-1], route[k])
			bwd[k] = bwd[k-1] + cost(route[k], route[k-1])
		}

		improved := false
	scan:
		for i := 0; i < n-2; i++ {
			for j := i + 2; j < n; j++ {
				before := cost(route[i], route[i+1]) + (fwd[j] - fwd[i+1])
				after := cost(route[i], route[j]) + (bwd[j] - bwd[i+1])
				if j+1 < n {
					before += cost(route[j], route[j+1])
					after += cost(route[i+1], route[j+1])
				}

				if after-before < 0 {
					reverse(route, i+1, j)
					improved = true
					break scan
				}
			}
		}

		if !improved {
			return scans, true
		}
	}

	return scans, false
}

func reverse(route []int, from, to int) {
	for from < to {
		route[from], route[to] = route[to], route[from]
		from++
		to--
	}
}
