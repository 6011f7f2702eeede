package payment

import (
	"context"

	"bookingpay/internal/domain"
	"bookingpay/internal/gateway"
	"bookingpay/internal/repository"
)

// Gateway is the payment processor client. A nil Gateway puts the service in
// degraded mode: no external calls are made.
type Gateway interface {
	Name() string
	CreateIntent(ctx context.Context, req gateway.CreateIntentRequest) (*gateway.Intent, error)
	UpdateIntent(ctx context.Context, intentID string, amount int64) (*gateway.Intent, error)
	GetIntent(ctx context.Context, intentID string) (*gateway.Intent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethod string) (*gateway.Intent, error)
	CancelIntent(ctx context.Context, intentID string) (*gateway.Intent, error)
}

type bookingReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*domain.Booking, error)
}

type paymentReader interface {
	FindByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error)
}

type transactionReader interface {
	FindByPaymentIntentID(ctx context.Context, intentID string) (*domain.Transaction, error)
	ListByBookingID(ctx context.Context, bookingID int64) ([]domain.Transaction, error)
}

type ledgerWriter interface {
	AttachIntent(ctx context.Context, b *domain.Booking, expectedIntentID string, p *domain.Payment) (bool, error)
	Settle(ctx context.Context, s repository.Settlement) (bool, error)
}
