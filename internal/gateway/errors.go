package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/stripe/stripe-go/v74"
)

type Kind string

const (
	KindDeclined       Kind = "declined"
	KindInvalidRequest Kind = "invalid_request"
	KindAPI            Kind = "api"
	KindNetwork        Kind = "network"
	KindTimeout        Kind = "timeout"
	KindUnknown        Kind = "unknown"
)

// Error is a failure reported by, or on the way to, the payment processor.
type Error struct {
	Op         string
	Kind       Kind
	Code       string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %s: %s (%s): %v", e.Op, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a gateway error from err's chain.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsRetryable reports whether err is a gateway failure worth retrying later.
func IsRetryable(err error) bool {
	ge, ok := AsError(err)
	return ok && ge.Retryable
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	e := &Error{Op: op, Kind: KindUnknown, Err: err}

	var (
		stripeErr *stripe.Error
		netErr    net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind, e.Retryable = KindTimeout, true
	case errors.Is(err, context.Canceled):
		e.Kind = KindNetwork
	case errors.As(err, &stripeErr):
		e.Code = string(stripeErr.Code)
		e.StatusCode = stripeErr.HTTPStatusCode
		switch {
		case stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
			e.Kind, e.Retryable = KindAPI, true
		case string(stripeErr.Type) == "card_error":
			e.Kind = KindDeclined
		case string(stripeErr.Type) == "invalid_request_error", string(stripeErr.Type) == "idempotency_error":
			e.Kind = KindInvalidRequest
		default:
			e.Kind = KindAPI
			e.Retryable = stripeErr.HTTPStatusCode >= http.StatusInternalServerError
		}
	case errors.As(err, &netErr):
		e.Kind, e.Retryable = KindNetwork, true
		if netErr.Timeout() {
			e.Kind = KindTimeout
		}
	}
	return e
}
