// Package gateway talks to the external payment processor.
package gateway

import "errors"

// ErrMissingCredential is returned when a client is built without a secret
// key. Callers treat it as "gateway disabled", not as a startup failure.
var ErrMissingCredential = errors.New("gateway credential is not configured")

type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentRequiresCapture       IntentStatus = "requires_capture"
	IntentProcessing            IntentStatus = "processing"
	IntentCanceled              IntentStatus = "canceled"
	IntentSucceeded             IntentStatus = "succeeded"
)

// Intent is the gateway's view of one charge attempt.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       IntentStatus
}

func (i *Intent) Succeeded() bool {
	return i != nil && i.Status == IntentSucceeded
}

// InFlight reports whether the customer or the processor may still move
// money on this intent without further action from us.
func (i *Intent) InFlight() bool {
	if i == nil {
		return false
	}
	switch i.Status {
	case IntentProcessing, IntentRequiresAction, IntentRequiresCapture:
		return true
	}
	return false
}

type CreateIntentRequest struct {
	// Amount is in the currency's minor unit.
	Amount         int64
	Currency       string
	MethodTypes    []string
	IdempotencyKey string
	Metadata       map[string]string
}
