package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionStatus string

const TransactionCompleted TransactionStatus = "Completed"

// Transaction is an append-only ledger row for money that actually moved.
// PaymentIntentID is unique: one gateway success yields one row.
type Transaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentIntentID string            `gorm:"type:varchar(255);uniqueIndex;not null" json:"payment_intent_id"`
	BookingID       int64             `gorm:"index;not null" json:"booking_id"`
	PaymentID       *int64            `gorm:"index" json:"payment_id,omitempty"`
	Amount          decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod   string            `gorm:"type:varchar(32);not null" json:"payment_method"`
	Status          TransactionStatus `gorm:"type:varchar(20);not null" json:"status"`
	TransactionDate time.Time         `gorm:"not null" json:"transaction_date"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
