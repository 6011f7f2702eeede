package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"bookingpay/internal/gateway"
	"bookingpay/internal/middleware"
	"bookingpay/internal/pkg/response"
)

const maxWebhookBodyBytes = 64 << 10

type Handler struct {
	service       *Service
	webhookSecret string
	log           logrus.FieldLogger
}

func NewHandler(service *Service, webhookSecret string, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{service: service, webhookSecret: webhookSecret, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/:id/payment-intent", h.EnsureIntent)
	rg.GET("/bookings/:id/transactions", h.ListTransactions)
	rg.POST("/payments/:intent_id/confirm", h.ConfirmIntent)
}

func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/stripe/webhook", h.StripeWebhook)
}

// EnsureIntent godoc
// @Summary      Create or refresh the booking's payment intent
// @Tags         Payments
// @Produce      json
// @Param        id path int true "Booking ID"
// @Success      200 {object} BookingPaymentResponse
// @Failure      404 {object} response.Envelope
// @Failure      409 {object} response.Envelope
// @Failure      502 {object} response.Envelope
// @Router       /bookings/{id}/payment-intent [post]
func (h *Handler) EnsureIntent(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	b, err := h.service.EnsureIntent(c.Request.Context(), bookingID)
	if err != nil {
		h.writeServiceError(c, err, "ensure intent failed", logrus.Fields{"booking_id": bookingID})
		return
	}
	response.Success(c, http.StatusOK, toBookingPaymentResponse(b, h.service.GatewayEnabled()))
}

// ConfirmIntent godoc
// @Summary      Confirm a payment intent
// @Tags         Payments
// @Produce      json
// @Param        intent_id path string true "Payment intent ID"
// @Success      200 {object} ConfirmIntentResponse
// @Router       /payments/{intent_id}/confirm [post]
func (h *Handler) ConfirmIntent(c *gin.Context) {
	intentID := strings.TrimSpace(c.Param("intent_id"))
	if intentID == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "intent_id is required")
		return
	}
	paid := h.service.ConfirmIntent(c.Request.Context(), intentID)
	response.Success(c, http.StatusOK, ConfirmIntentResponse{PaymentIntentID: intentID, Paid: paid})
}

// ListTransactions godoc
// @Summary      List ledger transactions of a booking
// @Tags         Payments
// @Produce      json
// @Param        id path int true "Booking ID"
// @Success      200 {array} TransactionResponse
// @Failure      404 {object} response.Envelope
// @Router       /bookings/{id}/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	txns, err := h.service.ListTransactions(c.Request.Context(), bookingID)
	if err != nil {
		h.writeServiceError(c, err, "list transactions failed", logrus.Fields{"booking_id": bookingID})
		return
	}
	response.Success(c, http.StatusOK, toTransactionResponses(txns))
}

// StripeWebhook godoc
// @Summary      Stripe event receiver
// @Description  Verifies the Stripe-Signature header. payment_intent.succeeded
// @Description  is applied idempotently, other event types are acknowledged.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Success      200 {object} WebhookAck
// @Failure      400 {object} response.Envelope
// @Failure      503 {object} response.Envelope
// @Router       /payments/stripe/webhook [post]
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.webhookSecret == "" {
		response.Error(c, http.StatusServiceUnavailable, "WEBHOOK_DISABLED", "webhook secret not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_PAYLOAD", "cannot read request body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                webhook.DefaultTolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		h.log.WithField("request_id", middleware.RequestID(c)).WithError(err).Warn("stripe webhook rejected")
		response.Error(c, http.StatusBadRequest, "INVALID_SIGNATURE", "webhook signature verification failed")
		return
	}

	log := h.log.WithFields(logrus.Fields{
		"request_id": middleware.RequestID(c),
		"event_id":   event.ID,
		"event_type": event.Type,
	})
	switch string(event.Type) {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil || pi.ID == "" {
			log.WithError(err).Warn("payment_intent event without a usable object")
			response.Error(c, http.StatusBadRequest, "INVALID_PAYLOAD", "event object is not a payment intent")
			return
		}
		if err := h.service.ApplySuccessNotification(c.Request.Context(), pi.ID); err != nil {
			log.WithError(err).Error("apply success notification failed")
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "notification not applied")
			return
		}
	default:
		log.Debug("stripe event ignored")
	}
	response.Success(c, http.StatusOK, WebhookAck{Received: true})
}

func (h *Handler) writeServiceError(c *gin.Context, err error, msg string, fields logrus.Fields) {
	log := h.log.WithFields(fields).WithField("request_id", middleware.RequestID(c))
	switch {
	case errors.Is(err, ErrBookingNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrPaymentInProgress):
		log.Info(msg)
		response.Error(c, http.StatusConflict, "PAYMENT_IN_PROGRESS", err.Error())
	case isGatewayError(err):
		log.WithField("retryable", gateway.IsRetryable(err)).WithError(err).Warn(msg)
		response.Error(c, http.StatusBadGateway, "GATEWAY_ERROR", "payment gateway request failed")
	default:
		log.WithError(err).Error(msg)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func isGatewayError(err error) bool {
	_, ok := gateway.AsError(err)
	return ok
}

func bookingIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid booking id")
		return 0, false
	}
	return id, true
}
