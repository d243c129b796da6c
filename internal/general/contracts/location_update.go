package contracts

import "time"

// LocationUpdateMessage is broadcast by Dispatch Service.
// Exchange: ExchangeLocationFanout (fanout, no routing key).
type LocationUpdateMessage struct {
	DriverID       string    `json:"driver_id"`
	OrderID        string    `json:"order_id,omitempty"`
	Location       GeoPoint  `json:"location"`
	SpeedKMH       float64   `json:"speed_kmh,omitempty"`
	HeadingDegrees float64   `json:"heading_degrees,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Envelope
}
