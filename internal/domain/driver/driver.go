package driver

import (
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Attrs is a JSON-friendly bag for vehicle attributes (plate, make, model, color, year, etc.).
type Attrs map[string]any

// Driver is the domain entity corresponding to the `drivers` table.
type Driver struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Required business fields
	LicenseNumber string

	// Vehicle details (JSON)
	VehicleAttrs Attrs

	// Dispatch constraints
	CODLimit decimal.Decimal // max cash the driver will carry for a single order

	// KPIs
	AverageRating   float64
	TotalDeliveries int
	TotalEarnings   decimal.Decimal

	// Operational state
	Status     DriverStatus
	IsVerified bool
}

var (
	ErrDriverNotFound      = errors.New("driver not found")
	ErrUserIDRequired      = errors.New("user id is required")
	ErrLicenseRequired     = errors.New("license number is required")
	ErrInvalidStatusSwitch = errors.New("invalid driver status transition")
	ErrInvalidRating       = errors.New("rating must be between 1.0 and 5.0")
	ErrNegativeTotals      = errors.New("totals cannot be negative")
	ErrNegativeCODLimit    = errors.New("cod limit cannot be negative")
)

// NewDriver creates a new Driver entity with sane defaults.
func NewDriver(userID, licenseNumber string, attrs Attrs, codLimit decimal.Decimal) (*Driver, error) {
	if userID = strings.TrimSpace(userID); userID == "" {
		return nil, ErrUserIDRequired
	}
	if licenseNumber = strings.TrimSpace(licenseNumber); licenseNumber == "" {
		return nil, ErrLicenseRequired
	}
	if codLimit.IsNegative() {
		return nil, ErrNegativeCODLimit
	}

	now := time.Now().UTC()
	return &Driver{
		ID:              userID,
		CreatedAt:       now,
		UpdatedAt:       now,
		LicenseNumber:   licenseNumber,
		VehicleAttrs:    cloneAttrs(attrs),
		CODLimit:        codLimit,
		AverageRating:   5.0,
		TotalDeliveries: 0,
		TotalEarnings:   decimal.Zero,
		Status:          DriverStatusOffline,
		IsVerified:      false,
	}, nil
}

// CanCarryCOD reports whether the driver may take an order requiring
// codAmount in cash at the door. A zero codAmount always passes.
func (driver *Driver) CanCarryCOD(codAmount decimal.Decimal) bool {
	if !codAmount.IsPositive() {
		return true
	}
	return codAmount.LessThanOrEqual(driver.CODLimit)
}

// ApplyEarnings increments counters after a delivery settlement.
func (driver *Driver) ApplyEarnings(deliveriesDelta int, earningsDelta decimal.Decimal) error {
	if deliveriesDelta < 0 || earningsDelta.IsNegative() {
		return ErrNegativeTotals
	}
	driver.TotalDeliveries += deliveriesDelta
	driver.TotalEarnings = driver.TotalEarnings.Add(earningsDelta)
	driver.touch()
	return nil
}

// SetRating overwrites the rolling average rating.
func (driver *Driver) SetRating(rating float64) error {
	if rating < 1.0 || rating > 5.0 {
		return ErrInvalidRating
	}
	driver.AverageRating = rating
	driver.touch()
	return nil
}

// ---- State transitions (minimal, explicit) ----

// GoOnline transitions OFFLINE -> ONLINE at the start of a shift.
func (driver *Driver) GoOnline() error {
	if driver.Status != DriverStatusOffline {
		return ErrInvalidStatusSwitch
	}
	driver.setStatus(DriverStatusOnline)
	return nil
}

// MarkAvailable transitions ONLINE/BUSY -> AVAILABLE, entering the
// candidate pool.
func (driver *Driver) MarkAvailable() error {
	switch driver.Status {
	case DriverStatusOnline, DriverStatusBusy:
		driver.setStatus(DriverStatusAvailable)
		return nil
	default:
		return ErrInvalidStatusSwitch
	}
}

// MarkBusy transitions ONLINE/AVAILABLE -> BUSY (after accepting an order).
func (driver *Driver) MarkBusy() error {
	switch driver.Status {
	case DriverStatusOnline, DriverStatusAvailable:
		driver.setStatus(DriverStatusBusy)
		return nil
	default:
		return ErrInvalidStatusSwitch
	}
}

// GoOffline transitions ONLINE/AVAILABLE/BUSY -> OFFLINE.
func (driver *Driver) GoOffline() error {
	switch driver.Status {
	case DriverStatusOnline, DriverStatusAvailable, DriverStatusBusy:
		driver.setStatus(DriverStatusOffline)
		return nil
	default:
		return ErrInvalidStatusSwitch
	}
}

// ---- internal helpers ----

func (driver *Driver) setStatus(status DriverStatus) {
	driver.Status = status
	driver.touch()
}

func (driver *Driver) touch() {
	driver.UpdatedAt = time.Now().UTC()
}

func cloneAttrs(in Attrs) Attrs {
	if in == nil {
		return nil
	}
	out := make(Attrs, len(in))
	maps.Copy(out, in)
	return out
}
