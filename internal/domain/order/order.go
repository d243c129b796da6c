package order

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the domain entity corresponding to the `orders` table.
type Order struct {
	// Identity & audit
	ID          string
	OrderNumber string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Actors
	CustomerID   string
	RestaurantID string
	DriverID     *string // nil until a driver accepts

	// Core state
	Status        Status
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus

	// Money
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	TotalAmount decimal.Decimal

	// Pickup (restaurant) and dropoff locations
	PickupAddress    string
	PickupLatitude   float64
	PickupLongitude  float64
	DropoffAddress   string
	DropoffLatitude  float64
	DropoffLongitude float64

	// Dispatch state
	OfferedDriverID     *string
	OfferExpiresAt      *time.Time
	OfferingSince       *time.Time
	DispatchAttempts    int
	NeedsManualDispatch bool

	// Lifecycle timestamps
	PlacedAt    time.Time
	AssignedAt  *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time

	CancellationReason *string
}

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderNumberRequired     = errors.New("order number is required")
	ErrCustomerRequired        = errors.New("customer id is required")
	ErrRestaurantRequired      = errors.New("restaurant id is required")
	ErrDriverRequired          = errors.New("driver id is required")
	ErrNegativeAmount          = errors.New("amounts cannot be negative")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrAlreadyAssigned         = errors.New("driver already assigned")
	ErrNoDriverAssigned        = errors.New("no driver assigned")
	ErrNoOfferOutstanding      = errors.New("no offer outstanding")
	ErrOfferDriverMismatch     = errors.New("offer belongs to a different driver")
	ErrOfferExpired            = errors.New("offer has expired")
)

// NewOrder creates a new order in PENDING/UNPAID state. TotalAmount is
// always subtotal + delivery fee.
func NewOrder(orderNumber, customerID, restaurantID string, method PaymentMethod, subtotal, deliveryFee decimal.Decimal) (*Order, error) {
	if orderNumber = strings.TrimSpace(orderNumber); orderNumber == "" {
		return nil, ErrOrderNumberRequired
	}
	if customerID = strings.TrimSpace(customerID); customerID == "" {
		return nil, ErrCustomerRequired
	}
	if restaurantID = strings.TrimSpace(restaurantID); restaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if subtotal.IsNegative() || deliveryFee.IsNegative() {
		return nil, ErrNegativeAmount
	}

	now := time.Now().UTC()
	return &Order{
		OrderNumber:   orderNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
		CustomerID:    customerID,
		RestaurantID:  restaurantID,
		Status:        StatusPending,
		PaymentMethod: method,
		PaymentStatus: PaymentUnpaid,
		Subtotal:      subtotal,
		DeliveryFee:   deliveryFee,
		TotalAmount:   subtotal.Add(deliveryFee),
		PlacedAt:      now,
	}, nil
}

// ConfirmPayment moves PENDING -> UNASSIGNED. Prepaid methods flip the
// payment status to PAID; COD stays UNPAID until the door.
func (order *Order) ConfirmPayment() error {
	if order.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	if order.PaymentMethod.Prepaid() {
		order.PaymentStatus = PaymentPaid
	}
	order.setStatus(StatusUnassigned)
	return nil
}

// StartDispatch moves UNASSIGNED -> OFFERING and stamps the moment the
// order entered the dispatch loop.
func (order *Order) StartDispatch() error {
	if order.Status != StatusUnassigned {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	order.OfferingSince = &now
	order.setStatus(StatusOffering)
	return nil
}

// OfferTo moves OFFERING -> OFFERED and records the candidate the offer
// went out to, together with its deadline.
func (order *Order) OfferTo(driverID string, expiresAt time.Time) error {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return ErrDriverRequired
	}
	if order.DriverID != nil && *order.DriverID != "" {
		return ErrAlreadyAssigned
	}
	if order.Status != StatusOffering {
		return ErrInvalidStatusTransition
	}

	order.OfferedDriverID = &driverID
	order.OfferExpiresAt = &expiresAt
	order.DispatchAttempts++
	order.setStatus(StatusOffered)
	return nil
}

// AcceptOffer moves OFFERED -> ASSIGNED. Only the driver the offer went
// out to may accept, and only before the deadline.
func (order *Order) AcceptOffer(driverID string, now time.Time) error {
	if order.Status != StatusOffered {
		return ErrInvalidStatusTransition
	}
	if order.OfferedDriverID == nil || *order.OfferedDriverID == "" {
		return ErrNoOfferOutstanding
	}
	if *order.OfferedDriverID != driverID {
		return ErrOfferDriverMismatch
	}
	if order.OfferExpiresAt != nil && now.After(*order.OfferExpiresAt) {
		return ErrOfferExpired
	}

	order.DriverID = &driverID
	assignedAt := now.UTC()
	order.AssignedAt = &assignedAt
	order.clearOffer()
	order.setStatus(StatusAssigned)
	return nil
}

// WithdrawOffer moves OFFERED back to OFFERING after a decline or a
// timeout, clearing the outstanding offer.
func (order *Order) WithdrawOffer() error {
	if order.Status != StatusOffered {
		return ErrInvalidStatusTransition
	}
	order.clearOffer()
	order.setStatus(StatusOffering)
	return nil
}

// FlagManualDispatch parks the order for an operator after the automatic
// dispatch loop gave up. The order stays in OFFERING.
func (order *Order) FlagManualDispatch() error {
	if order.Status != StatusOffering {
		return ErrInvalidStatusTransition
	}
	order.NeedsManualDispatch = true
	order.touch()
	return nil
}

// MarkPickedUp transitions ASSIGNED -> PICKED_UP.
func (order *Order) MarkPickedUp() error {
	if order.DriverID == nil || *order.DriverID == "" {
		return ErrNoDriverAssigned
	}
	if order.Status != StatusAssigned {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	order.PickedUpAt = &now
	order.setStatus(StatusPickedUp)
	return nil
}

// MarkDelivered transitions PICKED_UP -> DELIVERED. DeliveredAt is set
// exactly once. A COD order becomes PAID here, cash changes hands at the
// door.
func (order *Order) MarkDelivered() error {
	if order.DriverID == nil || *order.DriverID == "" {
		return ErrNoDriverAssigned
	}
	if order.Status != StatusPickedUp {
		return ErrInvalidStatusTransition
	}
	if order.DeliveredAt == nil {
		now := time.Now().UTC()
		order.DeliveredAt = &now
	}
	if order.PaymentMethod == PaymentCOD {
		order.PaymentStatus = PaymentPaid
	}
	order.setStatus(StatusDelivered)
	return nil
}

// Cancel transitions to CANCELLED from any non-terminal state. Delivered
// or already-cancelled orders cannot be cancelled.
func (order *Order) Cancel(reason string) error {
	if order.Status.Terminal() {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	order.CancelledAt = &now
	if rs := strings.TrimSpace(reason); rs != "" {
		order.CancellationReason = &rs
	}
	order.clearOffer()
	order.setStatus(StatusCancelled)
	return nil
}

// MarkRefunded flips a PAID order to REFUNDED after the money went back.
func (order *Order) MarkRefunded() error {
	if order.PaymentStatus != PaymentPaid {
		return ErrInvalidPaymentStatus
	}
	order.PaymentStatus = PaymentRefunded
	order.touch()
	return nil
}

// CODAmount is the cash the driver must collect at the door: the order
// total for COD orders, zero for everything prepaid.
func (order *Order) CODAmount() decimal.Decimal {
	if order.PaymentMethod == PaymentCOD {
		return order.TotalAmount
	}
	return decimal.Zero
}

// OfferExpired reports whether an outstanding offer is past its deadline.
func (order *Order) OfferExpired(now time.Time) bool {
	return order.Status == StatusOffered &&
		order.OfferExpiresAt != nil &&
		now.After(*order.OfferExpiresAt)
}

// ----- internal helpers -----

func (order *Order) clearOffer() {
	order.OfferedDriverID = nil
	order.OfferExpiresAt = nil
}

func (order *Order) setStatus(status Status) {
	order.Status = status
	order.touch()
}

func (order *Order) touch() {
	order.UpdatedAt = time.Now().UTC()
}
