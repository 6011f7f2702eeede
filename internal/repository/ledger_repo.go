package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookingpay/internal/domain"
)

// LedgerRepository performs the multi-row writes of payment reconciliation,
// each inside one database transaction.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// AttachIntent swaps the booking's intent id from expectedIntentID to
// b.PaymentIntentID and records the booking's payment. It returns false
// without writing anything when the booking no longer carries
// expectedIntentID, i.e. another writer attached an intent first.
//
// The payment row is inserted on first attach and reset to p's amount and
// status when the booking already has one (retry after a failed payment).
func (r *LedgerRepository) AttachIntent(ctx context.Context, b *domain.Booking, expectedIntentID string, p *domain.Payment) (bool, error) {
	var attached bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&bookingModel{}).Where("id = ?", b.ID)
		if expectedIntentID == "" {
			q = q.Where("(payment_intent_id IS NULL OR payment_intent_id = '')")
		} else {
			q = q.Where("payment_intent_id = ?", expectedIntentID)
		}
		res := q.Updates(map[string]interface{}{
			"payment_intent_id": b.PaymentIntentID,
			"client_secret":     nullable(b.ClientSecret),
			"payment_status":    string(b.PaymentStatus),
			"status":            string(b.Status),
			"updated_at":        time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		attached = true

		var existing domain.Payment
		err := tx.Where("booking_id = ?", b.ID).First(&existing).Error
		switch {
		case err == nil:
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			return tx.Model(&domain.Payment{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
				"status":         p.Status,
				"amount":         p.Amount,
				"payment_method": p.PaymentMethod,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(p).Error
		default:
			return err
		}
	})
	if err != nil {
		return false, translate(err)
	}
	return attached, nil
}

// Settlement is the local outcome of a terminal gateway status for one intent.
type Settlement struct {
	IntentID      string
	BookingID     int64
	BookingStatus domain.BookingStatus
	PaymentStatus domain.PaymentStatus
	// PaymentID is nil when the booking has no payment row.
	PaymentID *int64
	// Transaction is appended only when no row exists yet for IntentID.
	Transaction *domain.Transaction
}

// Settle applies s atomically and reports whether a new ledger row was
// written. A Failed outcome never overwrites rows that are already Paid, a
// booking already Paid or Confirmed keeps that status, and the booking is
// only touched while it still carries s.IntentID.
func (r *LedgerRepository) Settle(ctx context.Context, s Settlement) (bool, error) {
	var recorded bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		bq := tx.Model(&bookingModel{}).Where("id = ? AND payment_intent_id = ?", s.BookingID, s.IntentID)
		if s.PaymentStatus != domain.PaymentPaid {
			bq = bq.Where("payment_status <> ?", string(domain.PaymentPaid))
		}
		// The first terminal booking status (Paid or Confirmed) sticks.
		if err := bq.Updates(map[string]interface{}{
			"status": gorm.Expr("CASE WHEN status IN (?, ?) THEN status ELSE ? END",
				string(domain.BookingPaid), string(domain.BookingConfirmed), string(s.BookingStatus)),
			"payment_status": string(s.PaymentStatus),
			"updated_at":     now,
		}).Error; err != nil {
			return err
		}

		if s.PaymentID != nil {
			pq := tx.Model(&domain.Payment{}).Where("id = ?", *s.PaymentID)
			if s.PaymentStatus != domain.PaymentPaid {
				pq = pq.Where("status <> ?", domain.PaymentPaid)
			}
			if err := pq.Update("status", s.PaymentStatus).Error; err != nil {
				return err
			}
		}

		if s.Transaction == nil {
			return nil
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_intent_id"}},
			DoNothing: true,
		}).Create(s.Transaction)
		if res.Error != nil {
			return res.Error
		}
		recorded = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, translate(err)
	}
	return recorded, nil
}
