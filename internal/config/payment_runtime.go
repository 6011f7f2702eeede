package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"bookingpay/internal/pkg/validator"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultLogLevel          = "info"
	defaultCurrency          = "usd"
	defaultMethodTypes       = "card"
	defaultConfirmMethod     = "pm_card_visa"
	defaultGatewayTimeout    = "10s"
	defaultGatewayMaxRetries = "2"
)

type PaymentRuntimeConfig struct {
	AppEnv      string
	HTTPAddr    string `validate:"required"`
	DatabaseURL string `validate:"required"`
	LogLevel    string

	// StripeSecretKey empty means the gateway is disabled (degraded mode).
	StripeSecretKey     string
	StripeWebhookSecret string

	Currency          string        `validate:"len=3,alpha"`
	MethodTypes       []string      `validate:"min=1,dive,required"`
	ConfirmMethod     string
	GatewayTimeout    time.Duration `validate:"gt=0"`
	GatewayMaxRetries int64         `validate:"gte=0"`

	CORSAllowedOrigins []string
}

func (c *PaymentRuntimeConfig) GatewayEnabled() bool {
	return c.StripeSecretKey != ""
}

// LoadPaymentRuntimeConfig reads the environment, after loading an optional
// .env file from the working directory.
func LoadPaymentRuntimeConfig() (*PaymentRuntimeConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &PaymentRuntimeConfig{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))

	cfg.StripeSecretKey = strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY"))
	cfg.StripeWebhookSecret = strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET"))

	cfg.Currency = strings.ToLower(strings.TrimSpace(getEnv("PAYMENT_CURRENCY", defaultCurrency)))
	cfg.MethodTypes = splitList(getEnv("PAYMENT_METHOD_TYPES", defaultMethodTypes))
	cfg.ConfirmMethod = strings.TrimSpace(getEnv("PAYMENT_CONFIRM_METHOD", defaultConfirmMethod))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	var err error
	cfg.GatewayTimeout, err = parseDurationEnv("GATEWAY_TIMEOUT", defaultGatewayTimeout)
	if err != nil {
		return nil, err
	}
	cfg.GatewayMaxRetries, err = parseIntEnv("GATEWAY_MAX_RETRIES", defaultGatewayMaxRetries)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *PaymentRuntimeConfig) error {
	if err := validator.Check(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if isProdLike(cfg.AppEnv) && cfg.GatewayEnabled() {
		if cfg.StripeWebhookSecret == "" {
			return fmt.Errorf("in prod/release STRIPE_WEBHOOK_SECRET must be set when STRIPE_SECRET_KEY is set")
		}
		if strings.HasPrefix(cfg.StripeSecretKey, "sk_test_") {
			return fmt.Errorf("in prod/release STRIPE_SECRET_KEY must not be a test key")
		}
	}
	return nil
}

func IsProdLike(env string) bool { return isProdLike(env) }

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
