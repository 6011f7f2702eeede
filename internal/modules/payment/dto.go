package payment

import (
	"time"

	"bookingpay/internal/domain"
)

type BookingPaymentResponse struct {
	BookingID       int64  `json:"booking_id" example:"42"`
	PaymentIntentID string `json:"payment_intent_id,omitempty" example:"pi_3Nq..."`
	ClientSecret    string `json:"client_secret,omitempty" example:"pi_3Nq..._secret_..."`
	Status          string `json:"status" example:"Pending"`
	PaymentStatus   string `json:"payment_status" example:"Pending"`
	TotalPrice      string `json:"total_price" example:"120.50"`
	GatewayEnabled  bool   `json:"gateway_enabled" example:"true"`
}

type ConfirmIntentResponse struct {
	PaymentIntentID string `json:"payment_intent_id" example:"pi_3Nq..."`
	Paid            bool   `json:"paid" example:"true"`
}

type TransactionResponse struct {
	ID              string    `json:"id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	BookingID       int64     `json:"booking_id"`
	PaymentID       *int64    `json:"payment_id,omitempty"`
	Amount          string    `json:"amount" example:"120.50"`
	PaymentMethod   string    `json:"payment_method" example:"Stripe"`
	Status          string    `json:"status" example:"Completed"`
	TransactionDate time.Time `json:"transaction_date"`
}

type WebhookAck struct {
	Received bool `json:"received"`
}

func toBookingPaymentResponse(b *domain.Booking, gatewayEnabled bool) BookingPaymentResponse {
	return BookingPaymentResponse{
		BookingID:       b.ID,
		PaymentIntentID: b.PaymentIntentID,
		ClientSecret:    b.ClientSecret,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		TotalPrice:      b.TotalPrice.StringFixed(2),
		GatewayEnabled:  gatewayEnabled,
	}
}

func toTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, TransactionResponse{
			ID:              t.ID.String(),
			PaymentIntentID: t.PaymentIntentID,
			BookingID:       t.BookingID,
			PaymentID:       t.PaymentID,
			Amount:          t.Amount.StringFixed(2),
			PaymentMethod:   t.PaymentMethod,
			Status:          string(t.Status),
			TransactionDate: t.TransactionDate,
		})
	}
	return out
}
