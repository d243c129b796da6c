package driver

import (
	"errors"
	"strings"
)

// DriverStatus is a driver status as stored in the `driver_status` table.
type DriverStatus string

const (
	DriverStatusOffline   DriverStatus = "OFFLINE"
	DriverStatusOnline    DriverStatus = "ONLINE"
	DriverStatusAvailable DriverStatus = "AVAILABLE"
	DriverStatusBusy      DriverStatus = "BUSY"
)

var ErrInvalidDriverStatus = errors.New("invalid driver status")

// ParseDriverStatus normalizes (uppercases+trims) and validates a driver status string.
func ParseDriverStatus(in string) (DriverStatus, error) {
	status := DriverStatus(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidDriverStatus
}

// Valid reports whether the driver status is one of the allowed driver status constants.
func (status DriverStatus) Valid() bool {
	switch status {
	case DriverStatusOffline, DriverStatusOnline, DriverStatusAvailable, DriverStatusBusy:
		return true
	default:
		return false
	}
}

// Dispatchable reports whether a driver in this status may receive offers.
// ONLINE (fresh on shift) and AVAILABLE (free again after a delivery)
// both enter the candidate pool.
func (status DriverStatus) Dispatchable() bool {
	return status == DriverStatusOnline || status == DriverStatusAvailable
}

// Working reports whether the driver is on shift at all.
func (status DriverStatus) Working() bool {
	return status != DriverStatusOffline
}

// String returns the string representation of the DriverStatus.
func (status DriverStatus) String() string {
	return string(status)
}
