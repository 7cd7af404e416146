package services

import (
	"fmt"
	"route-dispatch-service/internal/domain"
	"time"
)

// buildStops walks the ordered route from shiftStart, accumulating travel and
// service time. Each window is [arrival, arrival+slack]. A job whose arrival
// misses its own time window is reported but keeps its position.
func buildStops(
	route []int,
	jobs []*domain.Job,
	m *costMatrix,
	shiftStart time.Time,
	slack time.Duration,
) (stops []domain.RouteStop, meters, seconds int, warnings []string) {
	stops = make([]domain.RouteStop, 0, len(route))
	clock := shiftStart

	for pos := 1; pos < len(route); pos++ {
		from, to := route[pos-1], route[pos]
		leg := m.leg(from, to)
		job := jobs[to-1]

		arrival := clock.Add(time.Duration(leg.DurationSeconds) * time.Second)
		meters += leg.DistanceMeters
		seconds += leg.DurationSeconds

		if job.Window != nil && !job.Window.Contains(arrival) {
			warnings = append(warnings, fmt.Sprintf(
				"job %d: arrival %s outside requested window %s-%s",
				job.ID,
				arrival.Format("15:04"),
				job.Window.Earliest.In(arrival.Location()).Format("15:04"),
				job.Window.Latest.In(arrival.Location()).Format("15:04"),
			))
		}

		stops = append(stops, domain.RouteStop{
			Job:           job,
			Sequence:      pos - 1,
			ETA:           domain.ETAWindow{Start: arrival, End: arrival.Add(slack)},
			TravelSeconds: leg.DurationSeconds,
			Estimated:     leg.Estimated,
		})

		clock = arrival.Add(job.ServiceDuration)
	}

	return stops, meters, seconds, warnings
}
