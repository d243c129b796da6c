package driver

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DriverSession is the domain entity corresponding to the `driver_sessions` table.
type DriverSession struct {
	ID              string
	DriverID        string
	StartedAt       time.Time
	EndedAt         *time.Time
	TotalDeliveries int
	TotalEarnings   decimal.Decimal
}

var (
	ErrDriverIDRequired    = errors.New("driver id is required")
	ErrSessionAlreadyEnded = errors.New("session already ended")
)

// NewSession creates a new driver session starting "now".
func NewSession(driverID string) (*DriverSession, error) {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrDriverIDRequired
	}

	now := time.Now().UTC()
	return &DriverSession{
		DriverID:        driverID,
		StartedAt:       now,
		TotalDeliveries: 0,
		TotalEarnings:   decimal.Zero,
	}, nil
}

// AddDelivery increments session delivery counters.
func (session *DriverSession) AddDelivery(earnings decimal.Decimal) error {
	if session.EndedAt != nil {
		return ErrSessionAlreadyEnded
	}
	if earnings.IsNegative() {
		return ErrNegativeTotals
	}

	session.TotalDeliveries++
	session.TotalEarnings = session.TotalEarnings.Add(earnings)
	return nil
}

// End marks the session ended "now". Returns an error on double end.
func (session *DriverSession) End() error {
	if session.EndedAt != nil {
		return ErrSessionAlreadyEnded
	}
	now := time.Now().UTC()
	session.EndedAt = &now
	return nil
}
