package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/platform/obs"
	"route-dispatch-service/internal/ports"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultORSBaseURL = "https://api.openrouteservice.org"

// Cache for directed travel results, keyed by destination Coordinates.Key().
type DistanceCache interface {
	GetMany(ctx context.Context, origin domain.Coordinates, destinations []domain.Coordinates) (map[string]ports.DistanceResult, error)
	PutMany(ctx context.Context, origin domain.Coordinates, results map[string]ports.DistanceResult) error
}

// ORSDistanceProvider implements DistanceMatrixProvider using OpenRouteService.
//
// It coordinates:
//   - Persistent distance matrix caching
//   - Origin->many matrix row requests with retry/backoff
//
// The provider is safe for concurrent use.
type ORSDistanceProvider struct {
	session       *http.Client
	apiKey        string
	baseURL       string
	profile       string
	retryBackoff  time.Duration
	distanceCache DistanceCache
}

func NewORSDistanceProvider(
	apiKey string,
	baseURL string,
	distanceCache DistanceCache,
) (*ORSDistanceProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = defaultORSBaseURL
	}

	provider := &ORSDistanceProvider{
		session:       &http.Client{Timeout: 10 * time.Second},
		apiKey:        apiKey,
		baseURL:       strings.TrimRight(baseURL, "/"),
		profile:       "driving-car",
		retryBackoff:  200 * time.Millisecond,
		distanceCache: distanceCache,
	}

	return provider, nil
}

// Delegate to batched path to reuse caching and matrix logic.
func (o *ORSDistanceProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (ports.DistanceResult, error) {
	results, err := o.GetDistances(ctx, origin, []domain.Coordinates{destination})
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf(
			"get distances %s -> %s: %w",
			origin.Key(), destination.Key(), err,
		)
	}

	if origin.Key() == destination.Key() {
		return ports.DistanceResult{}, nil
	}

	result, ok := results[destination.Key()]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("no distance result for %s -> %s", origin.Key(), destination.Key())
	}

	return result, nil
}

// Compute distances from a single origin to many destinations.
func (o *ORSDistanceProvider) GetDistances(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.GetDistances")(&err)

	if !origin.Valid() {
		return nil, fmt.Errorf("origin %s is not a valid point", origin.Key())
	}

	originKey := origin.Key()
	seen := make(map[string]struct{}, len(destinations))
	destList := make([]domain.Coordinates, 0, len(destinations))
	for _, d := range destinations {
		if !d.Valid() {
			return nil, fmt.Errorf("destination %s is not a valid point", d.Key())
		}
		k := d.Key()
		if k == originKey {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		destList = append(destList, d)
	}

	if len(destList) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	destinationHits := make(map[string]ports.DistanceResult)
	// Check persistent distance cache before issuing external API calls.
	if o.distanceCache != nil {
		hits, err := o.distanceCache.GetMany(ctx, origin, destList)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("distance cache read failed")
		} else {
			destinationHits = hits
		}
	}

	destinationMisses := make([]domain.Coordinates, 0, len(destList))
	for _, d := range destList {
		if _, ok := destinationHits[d.Key()]; !ok {
			destinationMisses = append(destinationMisses, d)
		}
	}

	if len(destinationMisses) == 0 {
		return destinationHits, nil
	}

	// Fetch a single origin->many matrix row for all cache misses.
	fetched, err := o.fetchMatrixRow(ctx, origin, destinationMisses)
	if err != nil {
		return nil, fmt.Errorf(
			"fetching matrix row: %w",
			err,
		)
	}

	missing := make([]string, 0)

	for _, d := range destinationMisses {
		if _, ok := fetched[d.Key()]; !ok {
			missing = append(missing, d.Key())
		}
	}

	if len(missing) > 0 {
		// Callers estimate whatever is absent from the row.
		zerolog.Ctx(ctx).Warn().
			Str("origin", origin.Key()).
			Str("missing", strings.Join(missing, ", ")).
			Msg("ORS matrix row incomplete")
	}

	if o.distanceCache != nil {
		if err := o.distanceCache.PutMany(ctx, origin, fetched); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("distance cache write failed")
		}
	}

	out := make(map[string]ports.DistanceResult, len(destinationHits)+len(fetched))
	for k, v := range destinationHits {
		out[k] = v
	}
	for k, v := range fetched {
		out[k] = v
	}

	return out, nil
}
