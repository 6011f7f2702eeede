package repository

import (
	"context"

	"gorm.io/gorm"

	"bookingpay/internal/domain"
)

type PaymentRepository struct {
	*Repository[domain.Payment]
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{Repository: NewRepository[domain.Payment](db)}
}

func (r *PaymentRepository) FindByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	return r.findOne(ctx, "booking_id = ?", bookingID)
}
