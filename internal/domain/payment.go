package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the single charge record of a booking. After creation only Status
// changes, except when a failed booking is retried with a fresh intent.
type Payment struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	BookingID     int64           `gorm:"uniqueIndex;not null" json:"booking_id"`
	UserID        int64           `gorm:"index" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	PaymentMethod string          `gorm:"type:varchar(32);not null" json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
