package services

import (
	"math"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/ports"
)

const (
	earthRadiusMeters = 6371000.0
	// Straight lines understate street distance.
	roadFactor = 1.3
	// Urban average for service vans.
	fallbackSpeedMetersPerSecond = 40000.0 / 3600.0
)

func haversineMeters(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// straightLineEstimate approximates road travel from the great-circle distance.
func straightLineEstimate(a, b domain.Coordinates) ports.DistanceResult {
	meters := haversineMeters(a, b) * roadFactor
	return ports.DistanceResult{
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(meters / fallbackSpeedMetersPerSecond)),
	}
}
