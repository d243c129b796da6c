// Live driver position index backed by Redis GEO.
package redisgeo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"food-dispatch/internal/ports"
)

const (
	driverGeoKey  = "geo:drivers:active"
	seenKeyPrefix = "geo:drivers:seen:%s"
)

// Store implements ports.LocationStore on top of a Redis GEO set plus one
// freshness stamp key per driver. The GEO set itself has no per-member TTL,
// so Nearby cross-checks the stamp and drops drivers whose last report is
// older than the configured freshness window.
type Store struct {
	client    *redis.Client
	freshness time.Duration
}

// NewStore wires a Store around an existing Redis client. freshness is how
// long a reported position stays eligible for dispatch.
func NewStore(client *redis.Client, freshness time.Duration) *Store {
	if freshness <= 0 {
		freshness = 3 * time.Minute
	}
	return &Store{client: client, freshness: freshness}
}

var _ ports.LocationStore = (*Store)(nil)

// Update records the driver's latest position and refreshes the stamp.
func (s *Store) Update(ctx context.Context, driverID string, lat, lng float64) error {
	now := time.Now().UTC()

	pipe := s.client.Pipeline()
	pipe.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	})
	// stamp lives slightly longer than the freshness window so Nearby can
	// tell "stale" apart from "never reported"
	pipe.Set(ctx, seenKey(driverID), strconv.FormatInt(now.UnixMilli(), 10), 2*s.freshness)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove drops the driver from the index, typically on going offline.
func (s *Store) Remove(ctx context.Context, driverID string) error {
	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, driverGeoKey, driverID)
	pipe.Del(ctx, seenKey(driverID))
	_, err := pipe.Exec(ctx)
	return err
}

// Nearby returns drivers within radiusKM of the center, closest first,
// skipping entries whose last report is older than the freshness window.
func (s *Store) Nearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]ports.NearbyDriver, error) {
	if limit <= 0 {
		limit = 20
	}

	// overfetch so stale entries don't shrink the page
	results, err := s.client.GeoSearchLocation(ctx, driverGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lng,
			Latitude:   lat,
			Radius:     radiusKM,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit * 2,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	// fetch all stamps in one round trip
	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = seenKey(r.Name)
	}
	stamps, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-s.freshness)
	out := make([]ports.NearbyDriver, 0, limit)
	for i, r := range results {
		observedAt, ok := parseStamp(stamps[i])
		if !ok || observedAt.Before(cutoff) {
			// stale entry: evict lazily so the set does not grow unbounded
			s.client.ZRem(ctx, driverGeoKey, r.Name)
			continue
		}

		out = append(out, ports.NearbyDriver{
			DriverID:   r.Name,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			DistanceKM: r.Dist,
			ObservedAt: observedAt,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func seenKey(driverID string) string {
	return fmt.Sprintf(seenKeyPrefix, driverID)
}

func parseStamp(raw any) (time.Time, bool) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}
