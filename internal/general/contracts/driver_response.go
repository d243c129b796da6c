package contracts

import "time"

// DriverOfferResponse is published by Dispatch Service after a driver
// accepted or declined an offer.
// Routing key: "driver.response.{order_id}" on ExchangeDriverTopic.
type DriverOfferResponse struct {
	OrderID                 string       `json:"order_id"`
	OfferID                 string       `json:"offer_id"`
	DriverID                string       `json:"driver_id"`
	Accepted                bool         `json:"accepted"`
	Reason                  string       `json:"reason,omitempty"` // DECLINED|OFFER_TIMEOUT when not accepted
	EstimatedArrivalMinutes int          `json:"estimated_arrival_minutes,omitempty"`
	DriverLocation          *GeoPoint    `json:"driver_location,omitempty"`
	DriverInfo              *DriverBrief `json:"driver_info,omitempty"`
	EstimatedArrival        *time.Time   `json:"estimated_arrival,omitempty"`
	Envelope
}
