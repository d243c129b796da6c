package order

import (
	"errors"
	"strings"
)

// Status is an order status as stored in the `order_status` table.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusUnassigned Status = "UNASSIGNED"
	StatusOffering   Status = "OFFERING"
	StatusOffered    Status = "OFFERED"
	StatusAssigned   Status = "ASSIGNED"
	StatusPickedUp   Status = "PICKED_UP"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

var ErrInvalidStatus = errors.New("invalid order status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed order status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusUnassigned, StatusOffering, StatusOffered,
		StatusAssigned, StatusPickedUp, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo specifies if the status can transition to the next status.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusPending:
		return next == StatusUnassigned || next == StatusCancelled

	case StatusUnassigned:
		return next == StatusOffering || next == StatusCancelled

	case StatusOffering:
		return next == StatusOffered || next == StatusCancelled

	case StatusOffered:
		// a declined or expired offer sends the order back into the
		// dispatch loop
		return next == StatusAssigned || next == StatusOffering || next == StatusCancelled

	case StatusAssigned:
		return next == StatusPickedUp || next == StatusCancelled

	case StatusPickedUp:
		return next == StatusDelivered || next == StatusCancelled

	case StatusDelivered, StatusCancelled:
		return false

	default:
		return false
	}
}

// Terminal indicates if the status is in a terminal state.
func (status Status) Terminal() bool {
	return status == StatusDelivered || status == StatusCancelled
}

// Dispatchable reports whether an order in this status may still be handed
// to a driver.
func (status Status) Dispatchable() bool {
	return status == StatusUnassigned || status == StatusOffering
}
