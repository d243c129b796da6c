package service

import (
	"context"
	"sort"

	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

// selectCandidates finds drivers for an order, best first. Search rings
// expand outwards until one yields at least one eligible driver; a driver
// who already declined the order is never a candidate again. Must run
// inside a transaction (rejection and driver reads).
func (service *dispatchService) selectCandidates(
	ctx context.Context,
	orderID string,
	pickupLat, pickupLng float64,
	codAmount decimal.Decimal,
) ([]ports.Candidate, error) {
	rejectedIDs, err := service.rejections.DriverIDsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	rejected := make(map[string]bool, len(rejectedIDs))
	for _, id := range rejectedIDs {
		rejected[id] = true
	}

	for _, radiusKM := range service.cfg.Dispatch.SearchRadiiKM {
		hits, err := service.locStore.Nearby(ctx, pickupLat, pickupLng, radiusKM, service.cfg.Dispatch.MaxCandidates)
		if err != nil {
			return nil, err
		}

		byID := make(map[string]ports.NearbyDriver, len(hits))
		ids := make([]string, 0, len(hits))
		for _, hit := range hits {
			if rejected[hit.DriverID] {
				continue
			}
			byID[hit.DriverID] = hit
			ids = append(ids, hit.DriverID)
		}
		if len(ids) == 0 {
			continue
		}

		drivers, err := service.drivers.GetManyByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}

		candidates := make([]ports.Candidate, 0, len(drivers))
		for _, drv := range drivers {
			if !drv.Status.Dispatchable() || !drv.IsVerified {
				continue
			}
			if !drv.CanCarryCOD(codAmount) {
				continue
			}
			hit := byID[drv.ID]
			candidates = append(candidates, ports.Candidate{
				DriverID:       drv.ID,
				Latitude:       hit.Latitude,
				Longitude:      hit.Longitude,
				StraightLineKM: hit.DistanceKM,
				DrivingKM:      -1,
				Rating:         drv.AverageRating,
			})
		}
		if len(candidates) == 0 {
			continue // widen the ring
		}

		service.rerankByDrivingDistance(ctx, candidates, pickupLat, pickupLng)
		return candidates, nil
	}

	return nil, nil
}

// rerankByDrivingDistance asks the routing oracle for real driving
// distances and sorts the shortlist by them. When the oracle is missing,
// over budget or failing, the straight-line order stands.
func (service *dispatchService) rerankByDrivingDistance(ctx context.Context, candidates []ports.Candidate, pickupLat, pickupLng float64) {
	if service.oracle != nil && len(candidates) > 1 {
		oracleCtx, cancel := context.WithTimeout(ctx, service.cfg.Dispatch.OracleCallBudget)
		defer cancel()

		origins := make([]ports.GeoPoint, len(candidates))
		for i, c := range candidates {
			origins[i] = ports.GeoPoint{Latitude: c.Latitude, Longitude: c.Longitude}
		}

		distances, err := service.oracle.DrivingDistances(oracleCtx, origins, ports.GeoPoint{Latitude: pickupLat, Longitude: pickupLng})
		if err != nil {
			service.logger.Debug(ctx, "oracle_unavailable",
				"Routing oracle failed, keeping straight-line order",
				map[string]any{"candidates": len(candidates)})
		} else {
			for i := range candidates {
				candidates[i].DrivingKM = distances[i]
			}
		}
	}

	sortCandidates(candidates)
}

// sortCandidates orders by effective distance to pickup, closest first,
// breaking ties on rating. Driving distance wins over straight-line when
// the oracle answered for that driver.
func sortCandidates(candidates []ports.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		di := effectiveKM(candidates[i])
		dj := effectiveKM(candidates[j])
		if di != dj {
			return di < dj
		}
		return candidates[i].Rating > candidates[j].Rating
	})
}

func effectiveKM(c ports.Candidate) float64 {
	if c.DrivingKM >= 0 {
		return c.DrivingKM
	}
	return c.StraightLineKM
}
