package order

import (
	"errors"
	"strings"
)

// PaymentMethod is a payment method as stored in the `payment_method` table.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentWallet PaymentMethod = "WALLET"
	PaymentVNPay  PaymentMethod = "VNPAY"
)

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

// ParsePaymentMethod normalizes (uppercases+trims) and validates a payment method string.
func ParsePaymentMethod(in string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToUpper(strings.TrimSpace(in)))
	if method.Valid() {
		return method, nil
	}
	return "", ErrInvalidPaymentMethod
}

// Valid reports whether method is one of the allowed payment method constants.
func (method PaymentMethod) Valid() bool {
	switch method {
	case PaymentCOD, PaymentWallet, PaymentVNPay:
		return true
	default:
		return false
	}
}

// String returns the string representation of the PaymentMethod.
func (method PaymentMethod) String() string {
	return string(method)
}

// Prepaid reports whether the method settles before dispatch. COD settles
// at the door, everything else up front.
func (method PaymentMethod) Prepaid() bool {
	return method != PaymentCOD
}

// PaymentStatus is a payment status as stored in the `payment_status` table.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

var ErrInvalidPaymentStatus = errors.New("invalid payment status")

// ParsePaymentStatus normalizes (uppercases+trims) and validates a payment status string.
func ParsePaymentStatus(in string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidPaymentStatus
}

// Valid reports whether status is one of the allowed payment status constants.
func (status PaymentStatus) Valid() bool {
	switch status {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded:
		return true
	default:
		return false
	}
}

// String returns the string representation of the PaymentStatus.
func (status PaymentStatus) String() string {
	return string(status)
}
