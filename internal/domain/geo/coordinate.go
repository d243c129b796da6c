package geo

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Coordinate is the domain entity corresponding to the `coordinates` table.
type Coordinate struct {
	ID         string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	EntityID   string
	EntityType EntityType
	Address    string
	Latitude   float64
	Longitude  float64
	IsCurrent  bool
}

var (
	ErrEmptyEntityID    = errors.New("entity_id cannot be empty")
	ErrEmptyAddress     = errors.New("address cannot be empty")
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	ErrBadTimestamps    = errors.New("updated_at cannot be before created_at")
)

// NewCoordinate constructs a new Coordinate entity with IsCurrent=true.
func NewCoordinate(entityID string, entityType EntityType, address string, latitude, longitude float64) (*Coordinate, error) {
	now := time.Now().UTC()
	coordinate := &Coordinate{
		CreatedAt:  now,
		UpdatedAt:  now,
		EntityID:   strings.TrimSpace(entityID),
		EntityType: entityType,
		Address:    strings.TrimSpace(address),
		Latitude:   latitude,
		Longitude:  longitude,
		IsCurrent:  true,
	}
	if err := coordinate.Validate(); err != nil {
		return nil, err
	}

	return coordinate, nil
}

// Validate checks invariants of the Coordinate entity.
func (coordinate *Coordinate) Validate() error {
	if coordinate.EntityID == "" {
		return ErrEmptyEntityID
	}
	if !coordinate.EntityType.Valid() {
		return ErrInvalidEntityType
	}
	if coordinate.Address == "" {
		return ErrEmptyAddress
	}
	if err := ValidateLatLng(coordinate.Latitude, coordinate.Longitude); err != nil {
		return err
	}
	if !coordinate.CreatedAt.IsZero() && !coordinate.UpdatedAt.IsZero() && coordinate.UpdatedAt.Before(coordinate.CreatedAt) {
		return ErrBadTimestamps
	}
	return nil
}

// ValidateLatLng rejects coordinates outside the valid WGS84 ranges.
func ValidateLatLng(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 || math.IsNaN(latitude) {
		return ErrInvalidLatitude
	}
	if longitude < -180 || longitude > 180 || math.IsNaN(longitude) {
		return ErrInvalidLongitude
	}
	return nil
}

// HaversineKM is the great-circle distance between two points in kilometers.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0 // Earth radius in km
	a1 := lat1 * math.Pi / 180
	a2 := lat2 * math.Pi / 180
	da := (lat2 - lat1) * math.Pi / 180
	db := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(da/2)*math.Sin(da/2) +
		math.Cos(a1)*math.Cos(a2)*math.Sin(db/2)*math.Sin(db/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// EstimateDurationMinutes converts a driving distance into a rough ETA
// using an average-city-speed heuristic.
func EstimateDurationMinutes(distanceKM float64) int {
	const avgSpeedKMH = 21.0
	minutes := (distanceKM / avgSpeedKMH) * 60.0

	// ceil to whole minutes
	m := int(math.Ceil(minutes))
	if m < 1 {
		return 1
	}

	return m
}
