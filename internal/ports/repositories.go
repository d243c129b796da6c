package ports

import (
	"context"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/domain/geo"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/domain/wallet"

	"github.com/shopspring/decimal"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CoordinatesRepository defines methods for managing coordinates (driver, customer, restaurant).
type CoordinatesRepository interface {
	UpsertForDriver(ctx context.Context, driverID string, coord geo.Coordinate, makeCurrent bool) (string, time.Time, error)
	UpsertForRestaurant(ctx context.Context, restaurantID string, coord geo.Coordinate, makeCurrent bool) (string, time.Time, error)
	GetCurrentForDriver(ctx context.Context, driverID string) (*geo.Coordinate, error)
	GetCurrentForRestaurant(ctx context.Context, restaurantID string) (*geo.Coordinate, error)
	SaveDriverLocation(ctx context.Context, driverID string, latitude, longitude, accuracyMeters, speedKmh, headingDegrees float64, address string) (*geo.Coordinate, error)
}

// OrderRepository defines the methods for managing order data.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, id string) (*order.Order, error)
	GetActiveForDriver(ctx context.Context, driverID string) (*order.Order, error)
	GetOrdersByDriver(ctx context.Context, driverID string, limit int) ([]*order.Order, error)
	UpdateStatus(ctx context.Context, id string, status order.Status, ts time.Time) error
	ConfirmPayment(ctx context.Context, orderID string, ts time.Time) error
	StartDispatch(ctx context.Context, orderID string, ts time.Time) error
	OfferToDriver(ctx context.Context, orderID, driverID string, expiresAt time.Time) error
	AcceptOffer(ctx context.Context, orderID, driverID string, assignedAt time.Time) error
	WithdrawOffer(ctx context.Context, orderID, driverID string) error
	MarkPickedUp(ctx context.Context, orderID string, ts time.Time) error
	MarkDelivered(ctx context.Context, orderID string, deliveredAt time.Time) error
	Cancel(ctx context.Context, orderID, reason string, cancelledAt time.Time) error
	FlagManualDispatch(ctx context.Context, orderID string) error

	// dispatch loop feeds
	ListAwaitingOffer(ctx context.Context, limit int) ([]*order.Order, error)
	ListExpiredOffers(ctx context.Context, now time.Time, limit int) ([]*order.Order, error)
	ListStaleUnpaid(ctx context.Context, method order.PaymentMethod, olderThan time.Time, limit int) ([]*order.Order, error)

	// admin metrics
	CountActive(ctx context.Context) (int, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error)
	CancellationRateBetween(ctx context.Context, start, end time.Time) (float64, error)
	SumDeliveredTotalBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	AvgDispatchMinutesBetween(ctx context.Context, start, end time.Time) (float64, error)
	AvgDeliveryMinutesBetween(ctx context.Context, start, end time.Time) (float64, error)
	CountNeedingManualDispatch(ctx context.Context) (int, error)
	HydrateActiveRows(ctx context.Context, offset, limit int) ([]ActiveOrderRow, error)
}

// OrderEventRepository defines the methods for managing order event data.
type OrderEventRepository interface {
	Append(ctx context.Context, e *order.Event) error
}

// RejectionRepository records which drivers turned an order down. Rows are
// append-only.
type RejectionRepository interface {
	Append(ctx context.Context, rejection *order.Rejection) error
	DriverIDsForOrder(ctx context.Context, orderID string) ([]string, error)
	CountForOrder(ctx context.Context, orderID string) (int, error)
}

// DriverRepository defines the methods for managing driver data.
type DriverRepository interface {
	CreateDriver(ctx context.Context, driverObj *driver.Driver) error
	GetByID(ctx context.Context, driverID string) (*driver.Driver, error)
	GetManyByIDs(ctx context.Context, driverIDs []string) ([]driver.Driver, error)
	UpdateStatus(ctx context.Context, driverID string, status driver.DriverStatus) error
	IncrementCountersOnDelivery(ctx context.Context, driverID string, earnings decimal.Decimal) error
	CountByStatus(ctx context.Context, status driver.DriverStatus) (int, error)
}

// DriverSessionRepository defines the methods for managing driver session data.
type DriverSessionRepository interface {
	Start(ctx context.Context, driverID string) (sessionID string, err error)
	End(ctx context.Context, sessionID string, summary driver.DriverSession) error
	GetActiveForDriver(ctx context.Context, driverID string) (*driver.DriverSession, error)
	IncrementCounters(ctx context.Context, sessionID string, totalDeliveries int, totalEarnings decimal.Decimal) error
}

// LocationHistoryRepository defines the methods for archiving location history data.
type LocationHistoryRepository interface {
	Archive(ctx context.Context, record *geo.LocationHistory) error
}

// WalletRepository defines the methods for managing wallet rows and their
// append-only transaction journal. GetForOwnerLocked takes a row lock so
// balance checks and journal inserts stay atomic; callers must be inside
// UnitOfWork.WithinTx.
type WalletRepository interface {
	GetOrCreateForOwner(ctx context.Context, ownerID string) (*wallet.Wallet, error)
	GetForOwnerLocked(ctx context.Context, ownerID string) (*wallet.Wallet, error)
	UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, tx *wallet.Transaction) error
	ListTransactions(ctx context.Context, walletID string, limit int) ([]*wallet.Transaction, error)
}

// EarningsRepository persists per-order settlement summaries. One row per
// order; GetByOrderID returning a row means the order is already settled.
type EarningsRepository interface {
	GetByOrderID(ctx context.Context, orderID string) (*wallet.EarningsSummary, error)
	Insert(ctx context.Context, summary *wallet.EarningsSummary) error
	TotalsBetween(ctx context.Context, from, to time.Time) (EarningsTotals, error)
	DriverTotalsBetween(ctx context.Context, from, to time.Time, limit int) ([]EarningsByOwner, error)
	RestaurantTotalsBetween(ctx context.Context, from, to time.Time, limit int) ([]EarningsByOwner, error)
}

// EarningsTotals aggregates every settled order in a time window.
type EarningsTotals struct {
	SettledOrders      int             `json:"settled_orders"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DeliveryFees       decimal.Decimal `json:"delivery_fees"`
	Commission         decimal.Decimal `json:"commission"`
	PlatformDriverFees decimal.Decimal `json:"platform_driver_fees"`
	RestaurantNet      decimal.Decimal `json:"restaurant_net"`
	DriverNet          decimal.Decimal `json:"driver_net"`
	PlatformTotal      decimal.Decimal `json:"platform_total"`
}

// EarningsByOwner is one driver's or restaurant's share of a time window.
type EarningsByOwner struct {
	OwnerID string          `json:"owner_id"`
	Orders  int             `json:"orders"`
	Net     decimal.Decimal `json:"net"`
}
