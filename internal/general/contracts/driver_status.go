package contracts

import "time"

// DriverStatusMessage is published by Dispatch Service.
// Routing key: "driver.status.{driver_id}" on ExchangeDriverTopic.
type DriverStatusMessage struct {
	DriverID  string    `json:"driver_id"`
	Status    string    `json:"status"` // OFFLINE|ONLINE|AVAILABLE|BUSY
	OrderID   string    `json:"order_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
