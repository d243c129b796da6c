package order

import (
	"errors"
	"strings"
)

// EventType corresponds to the values in the `order_event_type` table.
type EventType string

const (
	EventOrderPlaced      EventType = "ORDER_PLACED"
	EventPaymentConfirmed EventType = "PAYMENT_CONFIRMED"
	EventDispatchStarted  EventType = "DISPATCH_STARTED"
	EventDriverOffered    EventType = "DRIVER_OFFERED"
	EventDriverAssigned   EventType = "DRIVER_ASSIGNED"
	EventDriverRejected   EventType = "DRIVER_REJECTED"
	EventOrderPickedUp    EventType = "ORDER_PICKED_UP"
	EventOrderDelivered   EventType = "ORDER_DELIVERED"
	EventOrderCancelled   EventType = "ORDER_CANCELLED"
	EventOrderSettled     EventType = "ORDER_SETTLED"
	EventManualDispatch   EventType = "MANUAL_DISPATCH_REQUIRED"
	EventStatusChanged    EventType = "STATUS_CHANGED"
)

var ErrInvalidEventType = errors.New("invalid order event type")

// ParseEventType normalizes (uppercases+trims) and validates an event type string.
func ParseEventType(input string) (EventType, error) {
	eventType := EventType(strings.ToUpper(strings.TrimSpace(input)))
	if eventType.Valid() {
		return eventType, nil
	}
	return "", ErrInvalidEventType
}

// Valid reports whether eventType is one of the allowed event type constants.
func (eventType EventType) Valid() bool {
	switch eventType {
	case EventOrderPlaced,
		EventPaymentConfirmed,
		EventDispatchStarted,
		EventDriverOffered,
		EventDriverAssigned,
		EventDriverRejected,
		EventOrderPickedUp,
		EventOrderDelivered,
		EventOrderCancelled,
		EventOrderSettled,
		EventManualDispatch,
		EventStatusChanged:
		return true
	default:
		return false
	}
}

// String returns the string representation of the EventType.
func (eventType EventType) String() string {
	return string(eventType)
}
