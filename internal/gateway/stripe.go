package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

const stripeName = "Stripe"

type StripeConfig struct {
	SecretKey         string
	Timeout           time.Duration
	MaxNetworkRetries int64
	// BaseURL overrides the API endpoint; empty means production.
	BaseURL string
	Logger  *logrus.Logger
}

// StripeClient is a configured PaymentIntents client. Each instance carries
// its own key and backends, nothing is set on the stripe package globals.
type StripeClient struct {
	api *client.API
}

func NewStripeClient(cfg StripeConfig) (*StripeClient, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingCredential
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	backendConfig := func() *stripe.BackendConfig {
		bc := &stripe.BackendConfig{
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		}
		if cfg.BaseURL != "" {
			bc.URL = stripe.String(cfg.BaseURL)
		}
		if cfg.Logger != nil {
			bc.LeveledLogger = cfg.Logger
		}
		return bc
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig()),
	}
	return &StripeClient{api: client.New(cfg.SecretKey, backends)}, nil
}

func (c *StripeClient) Name() string { return stripeName }

func (c *StripeClient) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice(req.MethodTypes),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classify("create", err)
	}
	return fromStripe(pi), nil
}

func (c *StripeClient) UpdateIntent(ctx context.Context, intentID string, amount int64) (*Intent, error) {
	params := &stripe.PaymentIntentParams{Amount: stripe.Int64(amount)}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Update(intentID, params)
	if err != nil {
		return nil, classify("update", err)
	}
	return fromStripe(pi), nil
}

func (c *StripeClient) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, classify("get", err)
	}
	return fromStripe(pi), nil
}

func (c *StripeClient) ConfirmIntent(ctx context.Context, intentID, paymentMethod string) (*Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	if paymentMethod != "" {
		params.PaymentMethod = stripe.String(paymentMethod)
	}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return nil, classify("confirm", err)
	}
	return fromStripe(pi), nil
}

func (c *StripeClient) CancelIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Cancel(intentID, params)
	if err != nil {
		return nil, classify("cancel", err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       IntentStatus(pi.Status),
	}
}
