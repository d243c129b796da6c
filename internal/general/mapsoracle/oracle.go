// Driving-distance oracle backed by the Google Maps Distance Matrix API.
package mapsoracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"food-dispatch/internal/ports"
)

// ErrUnavailable marks provider-side failures (network, quota, timeout).
// Callers fall back to straight-line ordering on it.
var ErrUnavailable = errors.New("distance provider unavailable")

// Oracle implements ports.DistanceOracle against the Distance Matrix API.
// One call covers a whole candidate shortlist (many origins, one
// destination), so re-ranking costs a single round trip.
type Oracle struct {
	client  *maps.Client
	timeout time.Duration
}

// New creates an Oracle with the given API key. timeout caps each
// Distance Matrix call; on expiry the caller falls back to straight-line
// ordering.
func New(apiKey string, timeout time.Duration) (*Oracle, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Oracle{client: client, timeout: timeout}, nil
}

var _ ports.DistanceOracle = (*Oracle)(nil)

// DrivingDistances returns driving distances in kilometers from each origin
// to the destination, in origin order. A negative entry means the provider
// had no route for that origin.
func (o *Oracle) DrivingDistances(ctx context.Context, origins []ports.GeoPoint, dest ports.GeoPoint) ([]float64, error) {
	if len(origins) == 0 {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	originStrs := make([]string, len(origins))
	for i, p := range origins {
		originStrs[i] = fmt.Sprintf("%f,%f", p.Latitude, p.Longitude)
	}

	resp, err := o.client.DistanceMatrix(callCtx, &maps.DistanceMatrixRequest{
		Origins:      originStrs,
		Destinations: []string{fmt.Sprintf("%f,%f", dest.Latitude, dest.Longitude)},
		Mode:         maps.TravelModeDriving,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Rows) != len(origins) {
		return nil, fmt.Errorf("maps api returned %d rows for %d origins", len(resp.Rows), len(origins))
	}

	out := make([]float64, len(origins))
	for i, row := range resp.Rows {
		out[i] = -1
		if len(row.Elements) == 0 {
			continue
		}
		el := row.Elements[0]
		if el.Status != "OK" {
			continue
		}
		out[i] = float64(el.Distance.Meters) / 1000.0
	}
	return out, nil
}
