package order

import (
	"errors"
	"strings"
	"time"
)

// Rejection is the domain entity corresponding to the
// `order_driver_rejections` table. Rows are append-only: once a driver
// turned an order down they are never offered it again.
type Rejection struct {
	ID         string
	OrderID    string
	DriverID   string
	Reason     string
	RejectedAt time.Time
}

// Well-known rejection reasons. Reason is free text in the DB; these are
// the ones the dispatch loop writes itself.
const (
	RejectionDeclined     = "DECLINED"
	RejectionOfferTimeout = "OFFER_TIMEOUT"
)

var (
	ErrRejectionOrderRequired  = errors.New("order id is required")
	ErrRejectionDriverRequired = errors.New("driver id is required")
)

// NewRejection records that driverID turned orderID down "now".
func NewRejection(orderID, driverID, reason string) (*Rejection, error) {
	if orderID = strings.TrimSpace(orderID); orderID == "" {
		return nil, ErrRejectionOrderRequired
	}
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrRejectionDriverRequired
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = RejectionDeclined
	}

	return &Rejection{
		OrderID:    orderID,
		DriverID:   driverID,
		Reason:     reason,
		RejectedAt: time.Now().UTC(),
	}, nil
}
