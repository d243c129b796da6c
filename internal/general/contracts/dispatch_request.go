package contracts

import "github.com/shopspring/decimal"

// DispatchRequest is published by Order Service once an order is paid and
// ready for a driver.
// Routing key: "order.dispatch.{payment_method}" on ExchangeOrderTopic.
type DispatchRequest struct {
	OrderID        string          `json:"order_id"`     // UUID
	OrderNumber    string          `json:"order_number"` // e.g., ORD_20241216_001
	RestaurantID   string          `json:"restaurant_id"`
	Pickup         GeoPoint        `json:"pickup_location"`
	Dropoff        GeoPoint        `json:"dropoff_location"`
	PaymentMethod  string          `json:"payment_method"` // COD|WALLET|VNPAY
	CODAmount      decimal.Decimal `json:"cod_amount"`     // zero for prepaid orders
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	TimeoutSeconds int             `json:"timeout_seconds,omitempty"` // per-offer accept window
	Envelope
}
