package geo

import (
	"math"
	"testing"
)

func TestHaversineKM(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKM                 float64
		tolerance              float64
	}{
		{"same point", 10.762622, 106.660172, 10.762622, 106.660172, 0, 0.001},
		{"saigon center to airport", 10.7769, 106.7009, 10.8188, 106.6519, 7.0, 0.5},
		{"hanoi to saigon", 21.0278, 105.8342, 10.8231, 106.6297, 1137, 15},
		{"one degree of latitude", 0, 0, 1, 0, 111.19, 0.2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HaversineKM(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.wantKM) > tc.tolerance {
				t.Errorf("HaversineKM = %.3f, want %.3f (±%.3f)", got, tc.wantKM, tc.tolerance)
			}
		})
	}
}

func TestEstimateDurationMinutes(t *testing.T) {
	cases := []struct {
		distanceKM float64
		want       int
	}{
		{0, 1}, // never below a minute
		{5.25, 15},
		{21, 60},
	}

	for _, tc := range cases {
		if got := EstimateDurationMinutes(tc.distanceKM); got != tc.want {
			t.Errorf("EstimateDurationMinutes(%.2f) = %d, want %d", tc.distanceKM, got, tc.want)
		}
	}
}

func TestValidateLatLng(t *testing.T) {
	cases := []struct {
		lat, lng float64
		wantErr  error
	}{
		{10.76, 106.66, nil},
		{91, 0, ErrInvalidLatitude},
		{-91, 0, ErrInvalidLatitude},
		{0, 181, ErrInvalidLongitude},
		{0, -181, ErrInvalidLongitude},
		{math.NaN(), 0, ErrInvalidLatitude},
	}

	for _, tc := range cases {
		if err := ValidateLatLng(tc.lat, tc.lng); err != tc.wantErr {
			t.Errorf("ValidateLatLng(%v, %v) = %v, want %v", tc.lat, tc.lng, err, tc.wantErr)
		}
	}
}

func TestNewCoordinate(t *testing.T) {
	coordinate, err := NewCoordinate("rest-1", EntityTypeRestaurant, "12 Nguyen Hue, District 1", 10.7735, 106.7043)
	if err != nil {
		t.Fatalf("NewCoordinate: %v", err)
	}
	if !coordinate.IsCurrent {
		t.Error("new coordinate should be current")
	}

	if _, err := NewCoordinate("", EntityTypeDriver, "addr", 10, 106); err != ErrEmptyEntityID {
		t.Errorf("empty entity id: got %v", err)
	}
	if _, err := NewCoordinate("d-1", EntityType("shop"), "addr", 10, 106); err != ErrInvalidEntityType {
		t.Errorf("bad entity type: got %v", err)
	}
}
