package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// WSCustomerOrderStatus mirrors messages sent over the customer WebSocket.
type WSCustomerOrderStatus struct {
	Type        string       `json:"type"` // "order_status_update"
	OrderID     string       `json:"order_id"`
	OrderNumber string       `json:"order_number,omitempty"`
	Status      string       `json:"status"`
	DriverInfo  *DriverBrief `json:"driver_info,omitempty"`
	Envelope                 // allows correlation_id reuse
}

// WSDriverDeliveryOffer mirrors "delivery_offer" to drivers.
type WSDriverDeliveryOffer struct {
	Type               string          `json:"type"` // "delivery_offer"
	OfferID            string          `json:"offer_id"`
	OrderID            string          `json:"order_id"`
	OrderNumber        string          `json:"order_number,omitempty"`
	Pickup             GeoPoint        `json:"pickup_location"`
	Dropoff            GeoPoint        `json:"dropoff_location"`
	DeliveryFee        decimal.Decimal `json:"delivery_fee"`
	CODAmount          decimal.Decimal `json:"cod_amount"`
	DistanceToPickupKm float64         `json:"distance_to_pickup_km,omitempty"`
	EstimatedTripMin   int             `json:"estimated_trip_minutes,omitempty"`
	ExpiresAt          string          `json:"expires_at,omitempty"` // ISO-8601
	Envelope
}

// WSCustomerLocationUpdate streams the courier position to the customer.
type WSCustomerLocationUpdate struct {
	Type           string    `json:"type"` // "driver_location_update"
	OrderID        string    `json:"order_id"`
	Location       GeoPoint  `json:"location"`
	SpeedKMH       float64   `json:"speed_kmh,omitempty"`
	HeadingDegrees float64   `json:"heading_degrees,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Envelope
}
