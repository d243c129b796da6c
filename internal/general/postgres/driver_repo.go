// internal/adapters/postgres/driver_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DriverRepo persists drivers using pgx and plain SQL.
type DriverRepo struct{}

// NewDriverRepo constructs a new DriverRepo.
func NewDriverRepo() ports.DriverRepository {
	return &DriverRepo{}
}

// CreateDriver inserts a new driver row. The referenced user must already exist in users(id).
func (repo *DriverRepo) CreateDriver(ctx context.Context, driverObj *driver.Driver) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// insert driver record
	err = tx.QueryRow(ctx, `
		INSERT INTO drivers (id, license_number, vehicle_attrs, cod_limit, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at, average_rating, total_deliveries, total_earnings, is_verified
	`,
		driverObj.ID,
		driverObj.LicenseNumber,
		driverObj.VehicleAttrs, // automatically marshaled by pgx to jsonb
		driverObj.CODLimit,
		driverObj.Status.String(), // typically start as 'OFFLINE'
	).Scan(&driverObj.ID, &driverObj.CreatedAt, &driverObj.UpdatedAt, &driverObj.AverageRating, &driverObj.TotalDeliveries, &driverObj.TotalEarnings, &driverObj.IsVerified)
	if err != nil {
		return err
	}

	return nil
}

// GetByID returns one driver by id.
func (repo *DriverRepo) GetByID(ctx context.Context, driverID string) (*driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out driver.Driver
	var statusText string
	var vehicleAttrs []byte

	// query driver row
	err = tx.QueryRow(ctx, `
		SELECT
			id, created_at, updated_at,
			license_number, vehicle_attrs, cod_limit,
			average_rating, total_deliveries, total_earnings,
			status, is_verified
		FROM drivers
		WHERE id = $1
	`, driverID).Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt,
		&out.LicenseNumber, &vehicleAttrs, &out.CODLimit,
		&out.AverageRating, &out.TotalDeliveries, &out.TotalEarnings,
		&statusText, &out.IsVerified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, driver.ErrDriverNotFound
		}
		return nil, err
	}

	out.Status = driver.DriverStatus(statusText)

	if len(vehicleAttrs) > 0 {
		if err := json.Unmarshal(vehicleAttrs, &out.VehicleAttrs); err != nil {
			return nil, err
		}
	}

	return &out, nil
}

// GetManyByIDs returns driver rows for the given ids. Missing ids are
// silently skipped; the caller decides whether that matters.
func (repo *DriverRepo) GetManyByIDs(ctx context.Context, driverIDs []string) ([]driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(driverIDs) == 0 {
		return nil, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT
			id, created_at, updated_at,
			license_number, vehicle_attrs, cod_limit,
			average_rating, total_deliveries, total_earnings,
			status, is_verified
		FROM drivers
		WHERE id = ANY($1)
	`, driverIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []driver.Driver
	for rows.Next() {
		var (
			out          driver.Driver
			statusText   string
			vehicleAttrs []byte
		)

		if err := rows.Scan(
			&out.ID, &out.CreatedAt, &out.UpdatedAt,
			&out.LicenseNumber, &vehicleAttrs, &out.CODLimit,
			&out.AverageRating, &out.TotalDeliveries, &out.TotalEarnings,
			&statusText, &out.IsVerified,
		); err != nil {
			return nil, err
		}

		out.Status = driver.DriverStatus(statusText)

		// decode JSONB vehicle_attrs (nullable)
		if len(vehicleAttrs) > 0 {
			var attrs driver.Attrs
			if err := json.Unmarshal(vehicleAttrs, &attrs); err != nil {
				return nil, err
			}
			out.VehicleAttrs = attrs
		}

		drivers = append(drivers, out)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return drivers, nil
}

// UpdateStatus sets the driver status (idempotent if unchanged).
func (repo *DriverRepo) UpdateStatus(ctx context.Context, driverID string, status driver.DriverStatus) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// lock the row and read current status to keep transitions explicit when needed
	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM drivers
		WHERE id = $1
		FOR UPDATE
	`, driverID).Scan(&current)
	if err != nil {
		return err
	}

	// idempotent success
	if current == status.String() {
		return nil
	}

	// validate new status
	if !status.Valid() {
		return errors.New("invalid driver status")
	}

	// update state
	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET status = $1,
		    updated_at = now()
		WHERE id = $2
	`, status.String(), driverID)
	return err
}

// IncrementCountersOnDelivery increments total_deliveries by 1 and adds earnings to total_earnings.
func (repo *DriverRepo) IncrementCountersOnDelivery(ctx context.Context, driverID string, earnings decimal.Decimal) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// guard against negative inputs (mirrors domain & DB constraints)
	if earnings.IsNegative() {
		return errors.New("earnings cannot be negative")
	}

	// update counters atomically
	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET total_deliveries = total_deliveries + 1,
		    total_earnings = total_earnings + $1,
		    updated_at = now()
		WHERE id = $2
	`, earnings, driverID)
	return err
}

// CountByStatus returns the number of drivers currently in the given status.
func (repo *DriverRepo) CountByStatus(ctx context.Context, status driver.DriverStatus) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM drivers
		WHERE status = $1
	`, status.String()).Scan(&n)
	if err != nil {
		return 0, err
	}

	return n, nil
}
