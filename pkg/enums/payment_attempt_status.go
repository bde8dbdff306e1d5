package enums

import "fmt"

// PaymentAttemptStatus mirrors the provider's checkout/payment status vocabulary.
type PaymentAttemptStatus string

const (
	PaymentAttemptStatusPending    PaymentAttemptStatus = "pending"
	PaymentAttemptStatusProcessing PaymentAttemptStatus = "processing"
	PaymentAttemptStatusSucceeded  PaymentAttemptStatus = "succeeded"
	PaymentAttemptStatusFailed     PaymentAttemptStatus = "failed"
	PaymentAttemptStatusCanceled   PaymentAttemptStatus = "canceled"
)

var validPaymentAttemptStatuses = []PaymentAttemptStatus{
	PaymentAttemptStatusPending,
	PaymentAttemptStatusProcessing,
	PaymentAttemptStatusSucceeded,
	PaymentAttemptStatusFailed,
	PaymentAttemptStatusCanceled,
}

// String implements fmt.Stringer.
func (p PaymentAttemptStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentAttemptStatus.
func (p PaymentAttemptStatus) IsValid() bool {
	for _, candidate := range validPaymentAttemptStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the attempt reached a final provider state.
func (p PaymentAttemptStatus) IsTerminal() bool {
	switch p {
	case PaymentAttemptStatusSucceeded, PaymentAttemptStatusFailed, PaymentAttemptStatusCanceled:
		return true
	default:
		return false
	}
}

// ParsePaymentAttemptStatus converts raw input into a PaymentAttemptStatus.
func ParsePaymentAttemptStatus(value string) (PaymentAttemptStatus, error) {
	for _, candidate := range validPaymentAttemptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment attempt status %q", value)
}
