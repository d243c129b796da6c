package ports

import (
	"context"
	"time"

	"food-dispatch/internal/domain/order"

	"github.com/shopspring/decimal"
)

// ----- DTOs for Order Service -----

// CreateOrderInput is the validated input required to place an order.
type CreateOrderInput struct {
	CustomerID       string
	RestaurantID     string
	PaymentMethod    order.PaymentMethod
	Subtotal         decimal.Decimal
	DeliveryFee      decimal.Decimal
	PickupAddress    string
	PickupLatitude   float64
	PickupLongitude  float64
	DropoffAddress   string
	DropoffLatitude  float64
	DropoffLongitude float64
}

// CreateOrderResult is returned by OrderService.CreateOrder().
type CreateOrderResult struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// ConfirmPaymentResult is returned after payment confirmation hands the
// order to dispatch.
type ConfirmPaymentResult struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Message       string `json:"message"`
}

type CancelOrderResult struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at"`
	Refunded    bool   `json:"refunded"`
	Message     string `json:"message"`
}

// ----- Order Service Interface -----

// OrderService exposes the boundary for the order service.
type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error)
	ConfirmPayment(ctx context.Context, orderID string) (ConfirmPaymentResult, error)
	CancelOrder(ctx context.Context, orderID, reason string) (CancelOrderResult, error)
	RunBackgroundConsumers(ctx context.Context)
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Dispatch Service -----

// GoOnlineInput is the validated input for POST /drivers/{driver_id}/online.
type GoOnlineInput struct {
	DriverID  string  // from path
	Latitude  float64 // from body
	Longitude float64 // from body
}

// GoOnlineResult matches the API response for going online.
type GoOnlineResult struct {
	Status    string `json:"status"`     // "AVAILABLE"
	SessionID string `json:"session_id"` // driver session identifier
	Message   string `json:"message"`    // friendly confirmation
}

// GoOfflineInput is the validated input for POST /drivers/{driver_id}/offline.
type GoOfflineInput struct {
	DriverID string // from path
}

// SessionSummary summarizes an ended online session.
type SessionSummary struct {
	DurationHours       float64         `json:"duration_hours"`
	DeliveriesCompleted int             `json:"deliveries_completed"`
	Earnings            decimal.Decimal `json:"earnings"`
}

// GoOfflineResult matches the API response for going offline.
type GoOfflineResult struct {
	Status         string         `json:"status"`     // "OFFLINE"
	SessionID      string         `json:"session_id"` // the same session id
	SessionSummary SessionSummary `json:"session_summary"`
	Message        string         `json:"message"`
}

// UpdateLocationInput is the validated input for POST /drivers/{driver_id}/location.
type UpdateLocationInput struct {
	DriverID       string   // from path
	Latitude       float64  // from body
	Longitude      float64  // from body
	AccuracyMeters *float64 // optional
	SpeedKmh       *float64 // optional
	HeadingDegrees *float64 // optional
}

// UpdateLocationResult matches the API response for a location update.
type UpdateLocationResult struct {
	CoordinateID string    `json:"coordinate_id"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OfferDecisionInput is the validated input for POST /drivers/{driver_id}/offers/{offer_id}/accept (or /reject).
type OfferDecisionInput struct {
	DriverID string // from path
	OfferID  string // from path
	OrderID  string // from body
	Reason   string // optional, reject only
}

// AcceptOfferResult matches the API response for accepting an offer.
type AcceptOfferResult struct {
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status"` // "ASSIGNED"
	AssignedAt time.Time `json:"assigned_at"`
	Message    string    `json:"message"`
}

// RejectOfferResult matches the API response for declining an offer.
type RejectOfferResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"` // back to "OFFERING"
	Message string `json:"message"`
}

// PickupInput is the validated input for POST /drivers/{driver_id}/pickup.
type PickupInput struct {
	DriverID       string   // from path
	OrderID        string   // from body
	DriverLocation GeoPoint `json:"driver_location"` // {"latitude","longitude"}
}

// PickupResult matches the API response for confirming a pickup.
type PickupResult struct {
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status"` // "PICKED_UP"
	PickedUpAt time.Time `json:"picked_up_at"`
	Message    string    `json:"message"`
}

// DeliverInput is the validated input for POST /drivers/{driver_id}/deliver.
type DeliverInput struct {
	DriverID      string   // from path
	OrderID       string   // from body
	FinalLocation GeoPoint `json:"final_location"` // {"latitude","longitude"}
}

// DeliverResult matches the API response for completing a delivery.
type DeliverResult struct {
	OrderID        string          `json:"order_id"`
	Status         string          `json:"status"` // "DELIVERED"
	DeliveredAt    time.Time       `json:"delivered_at"`
	DriverEarnings decimal.Decimal `json:"driver_earnings"`
	Message        string          `json:"message"`
}

// ----- Dispatch Service Interface -----

// DispatchService manages driver shifts, locations and the offer lifecycle.
type DispatchService interface {
	GoOnline(ctx context.Context, in GoOnlineInput) (GoOnlineResult, error)
	GoOffline(ctx context.Context, in GoOfflineInput) (GoOfflineResult, error)
	UpdateLocation(ctx context.Context, in UpdateLocationInput) (UpdateLocationResult, error)
	AcceptOffer(ctx context.Context, in OfferDecisionInput) (AcceptOfferResult, error)
	RejectOffer(ctx context.Context, in OfferDecisionInput) (RejectOfferResult, error)
	ConfirmPickup(ctx context.Context, in PickupInput) (PickupResult, error)
	ConfirmDelivery(ctx context.Context, in DeliverInput) (DeliverResult, error)
	StartBackgroundWorkers(ctx context.Context)
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Wallet operations -----

// WalletOpResult is returned by deposits and withdrawals.
type WalletOpResult struct {
	WalletID      string          `json:"wallet_id"`
	TransactionID string          `json:"transaction_id"`
	Balance       decimal.Decimal `json:"balance"`
	Message       string          `json:"message"`
}

// WalletBalanceResult is returned by GET /wallet.
type WalletBalanceResult struct {
	WalletID string          `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
}

// WalletService exposes customer-facing wallet operations.
type WalletService interface {
	Deposit(ctx context.Context, ownerID string, amount decimal.Decimal) (WalletOpResult, error)
	Withdraw(ctx context.Context, ownerID string, amount decimal.Decimal) (WalletOpResult, error)
	Balance(ctx context.Context, ownerID string) (WalletBalanceResult, error)
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Admin Dashboard -----

// OverviewMetrics groups all numeric KPIs for the overview.
type OverviewMetrics struct {
	ActiveOrders                int             `json:"active_orders"`
	AvailableDrivers            int             `json:"available_drivers"`
	BusyDrivers                 int             `json:"busy_drivers"`
	TotalOrdersToday            int             `json:"total_orders_today"`
	TotalRevenueToday           decimal.Decimal `json:"total_revenue_today"`
	AverageDispatchMinutes      float64         `json:"average_dispatch_minutes"`
	AverageDeliveryMinutes      float64         `json:"average_delivery_minutes"`
	CancellationRate            float64         `json:"cancellation_rate"`
	OrdersNeedingManualDispatch int             `json:"orders_needing_manual_dispatch"`
}

// GeoPoint represents a simple latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SystemOverviewResult is the top-level response DTO for GET /admin/overview endpoint.
type SystemOverviewResult struct {
	Timestamp time.Time       `json:"timestamp"`
	Metrics   OverviewMetrics `json:"metrics"`
}

// ActiveOrderRow represents a single active order row in the admin overview.
type ActiveOrderRow struct {
	OrderID               string    `json:"order_id"`
	OrderNumber           string    `json:"order_number"`
	Status                string    `json:"status"`
	CustomerID            string    `json:"customer_id"`
	RestaurantID          string    `json:"restaurant_id"`
	DriverID              string    `json:"driver_id"`
	PickupAddress         string    `json:"pickup_address"`
	DropoffAddress        string    `json:"dropoff_address"`
	PlacedAt              time.Time `json:"placed_at"`
	NeedsManualDispatch   bool      `json:"needs_manual_dispatch"`
	DispatchAttempts      int       `json:"dispatch_attempts"`
	CurrentDriverLocation GeoPoint  `json:"current_driver_location"`
}

// ActiveOrdersResult is the top-level response DTO for GET /admin/orders/active endpoint.
type ActiveOrdersResult struct {
	Orders     []ActiveOrderRow `json:"orders"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// EarningsReportResult is the top-level response DTO for GET /admin/earnings.
type EarningsReportResult struct {
	From           time.Time         `json:"from"`
	To             time.Time         `json:"to"`
	Totals         EarningsTotals    `json:"totals"`
	TopDrivers     []EarningsByOwner `json:"top_drivers"`
	TopRestaurants []EarningsByOwner `json:"top_restaurants"`
}

// ----- Admin Service Interface -----

// AdminService exposes monitoring and analytics operations for administrators.
type AdminService interface {
	GetSystemOverview(ctx context.Context) (SystemOverviewResult, error)
	GetActiveOrders(ctx context.Context, page, pageSize string) (ActiveOrdersResult, error)
	GetEarningsReport(ctx context.Context, from, to string) (EarningsReportResult, error)
}
