package repository

import (
	"context"

	"gorm.io/gorm"

	"bookingpay/internal/domain"
)

// TransactionRepository only reads; ledger rows are appended through
// LedgerRepository.Settle and never updated.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TransactionRepository) ListByBookingID(ctx context.Context, bookingID int64) ([]domain.Transaction, error) {
	var out []domain.Transaction
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("transaction_date asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
