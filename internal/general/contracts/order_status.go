package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatusMessage is published by Order Service on every status change.
// Routing key: "order.status.{status}" on ExchangeOrderTopic.
type OrderStatusMessage struct {
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number,omitempty"`
	Status      string           `json:"status"` // PENDING|UNASSIGNED|OFFERING|OFFERED|ASSIGNED|PICKED_UP|DELIVERED|CANCELLED
	Timestamp   time.Time        `json:"timestamp"`
	DriverID    string           `json:"driver_id,omitempty"`
	Total       *decimal.Decimal `json:"total_amount,omitempty"`
	Envelope
}

// AdminAlertMessage is published when the dispatch loop needs an operator.
// Routing key: "order.alert.{alert_kind}" on ExchangeOrderTopic.
type AdminAlertMessage struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number,omitempty"`
	Kind        string    `json:"kind"` // e.g. manual_dispatch_required
	Detail      string    `json:"detail,omitempty"`
	Rejections  int       `json:"rejections,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Envelope
}
