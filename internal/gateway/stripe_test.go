package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *StripeClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)
	c, err := NewStripeClient(StripeConfig{
		SecretKey: "sk_test_123",
		Timeout:   2 * time.Second,
		BaseURL:   srv.URL,
		Logger:    log,
	})
	require.NoError(t, err)
	return c
}

func intentJSON(id, status string, amount int64) string {
	return fmt.Sprintf(`{"id":%q,"object":"payment_intent","amount":%d,"currency":"usd","status":%q,"client_secret":"%s_secret_abc"}`,
		id, amount, status, id)
}

func TestNewStripeClient_MissingKey(t *testing.T) {
	_, err := NewStripeClient(StripeConfig{})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestStripeClient_CreateIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "booking-1-initial", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "12000", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "card", r.PostForm.Get("payment_method_types[0]"))
		assert.Equal(t, "1", r.PostForm.Get("metadata[booking_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, intentJSON("pi_123", "requires_payment_method", 12000))
	})

	in, err := c.CreateIntent(context.Background(), CreateIntentRequest{
		Amount:         12000,
		Currency:       "usd",
		MethodTypes:    []string{"card"},
		IdempotencyKey: "booking-1-initial",
		Metadata:       map[string]string{"booking_id": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", in.ID)
	assert.Equal(t, "pi_123_secret_abc", in.ClientSecret)
	assert.Equal(t, IntentRequiresPaymentMethod, in.Status)
	assert.False(t, in.Succeeded())
}

func TestStripeClient_GetAndConfirm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/payment_intents/pi_9":
			_, _ = io.WriteString(w, intentJSON("pi_9", "requires_confirmation", 500))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents/pi_9/confirm":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "pm_card_visa", r.PostForm.Get("payment_method"))
			_, _ = io.WriteString(w, intentJSON("pi_9", "succeeded", 500))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	got, err := c.GetIntent(context.Background(), "pi_9")
	require.NoError(t, err)
	assert.Equal(t, IntentRequiresConfirmation, got.Status)

	confirmed, err := c.ConfirmIntent(context.Background(), "pi_9", "pm_card_visa")
	require.NoError(t, err)
	assert.True(t, confirmed.Succeeded())
}

func TestStripeClient_CancelIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents/pi_9/cancel", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, intentJSON("pi_9", "canceled", 500))
	})

	got, err := c.CancelIntent(context.Background(), "pi_9")
	require.NoError(t, err)
	assert.Equal(t, IntentCanceled, got.Status)
	assert.False(t, got.InFlight())
}

func TestIntent_InFlight(t *testing.T) {
	for status, want := range map[IntentStatus]bool{
		IntentProcessing:            true,
		IntentRequiresAction:        true,
		IntentRequiresCapture:       true,
		IntentRequiresPaymentMethod: false,
		IntentCanceled:              false,
		IntentSucceeded:             false,
	} {
		assert.Equal(t, want, (&Intent{Status: status}).InFlight(), string(status))
	}
	var nilIntent *Intent
	assert.False(t, nilIntent.InFlight())
}

func TestStripeClient_DeclineIsClassified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = io.WriteString(w, `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)
	})

	_, err := c.ConfirmIntent(context.Background(), "pi_9", "pm_card_visa")
	require.Error(t, err)

	ge, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindDeclined, ge.Kind)
	assert.Equal(t, "card_declined", ge.Code)
	assert.Equal(t, "confirm", ge.Op)
	assert.False(t, IsRetryable(err))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), KindTimeout, true},
		{"invalid request", &stripe.Error{Type: "invalid_request_error", HTTPStatusCode: 400}, KindInvalidRequest, false},
		{"server error", &stripe.Error{Type: "api_error", HTTPStatusCode: 503}, KindAPI, true},
		{"rate limited", &stripe.Error{Type: "invalid_request_error", HTTPStatusCode: 429}, KindAPI, true},
		{"plain", errors.New("boom"), KindUnknown, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify("get", tc.err)
			ge, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, ge.Kind)
			assert.Equal(t, tc.retryable, ge.Retryable)
			assert.ErrorIs(t, err, tc.err)
		})
	}
	assert.Nil(t, classify("get", nil))
}
