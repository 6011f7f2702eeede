package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingConfirmed BookingStatus = "Confirmed"
	BookingPaid      BookingStatus = "Paid"
	BookingFailed    BookingStatus = "Failed"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

// Booking is a reservation created by the booking flow. The payment core only
// owns PaymentIntentID, ClientSecret and the two status fields.
type Booking struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          BookingStatus   `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	ClientSecret    string          `json:"client_secret,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasIntent reports whether a gateway intent was ever attached.
func (b *Booking) HasIntent() bool {
	return b.PaymentIntentID != ""
}
