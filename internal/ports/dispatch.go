package ports

import (
	"context"
	"time"

	"food-dispatch/internal/general/contracts"
)

// NearbyDriver is one hit from a LocationStore radius query.
type NearbyDriver struct {
	DriverID   string
	Latitude   float64
	Longitude  float64
	DistanceKM float64   // straight-line distance from the query center
	ObservedAt time.Time // when the driver last reported this position
}

// LocationStore keeps the live driver position index. Entries older than
// the store's freshness TTL are never returned by Nearby.
type LocationStore interface {
	Update(ctx context.Context, driverID string, lat, lng float64) error
	Remove(ctx context.Context, driverID string) error
	Nearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]NearbyDriver, error)
}

// DistanceOracle answers driving-distance questions. Implementations call
// an external routing provider; callers must treat errors as "oracle
// unavailable" and fall back to straight-line ordering.
type DistanceOracle interface {
	// DrivingDistances returns driving distances in kilometers from each
	// origin to the destination, in origin order. A negative entry means
	// the provider had no route for that origin.
	DrivingDistances(ctx context.Context, origins []GeoPoint, dest GeoPoint) ([]float64, error)
}

// DriverNotifier reaches a driver's live connection. The coordinator only
// offers to drivers it can actually reach; unreachable candidates are
// skipped, not failed.
type DriverNotifier interface {
	IsDriverConnected(driverID string) bool
	PushDeliveryOffer(ctx context.Context, driverID string, offer contracts.WSDriverDeliveryOffer) error
}

// Candidate is a driver ranked by the selector, ready for an offer.
type Candidate struct {
	DriverID       string
	Latitude       float64
	Longitude      float64
	StraightLineKM float64
	DrivingKM      float64 // -1 when the oracle did not answer
	Rating         float64
}
