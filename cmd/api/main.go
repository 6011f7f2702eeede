package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookingpay/internal/config"
	"bookingpay/internal/database"
	"bookingpay/internal/gateway"
	"bookingpay/internal/modules/payment"
	"bookingpay/internal/pkg/logging"
	"bookingpay/internal/repository"
)

func main() {
	cfg, err := config.LoadPaymentRuntimeConfig()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.AppEnv, cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := repository.Migrate(db); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	// A nil Gateway keeps the service in degraded mode.
	var gw payment.Gateway
	stripeClient, err := gateway.NewStripeClient(gateway.StripeConfig{
		SecretKey:         cfg.StripeSecretKey,
		Timeout:           cfg.GatewayTimeout,
		MaxNetworkRetries: cfg.GatewayMaxRetries,
		Logger:            log,
	})
	switch {
	case errors.Is(err, gateway.ErrMissingCredential):
		log.Warn("STRIPE_SECRET_KEY not set, payments run in degraded mode")
	case err != nil:
		log.WithError(err).Fatal("payment gateway setup failed")
	default:
		gw = stripeClient
	}

	paymentService := payment.NewService(
		repository.NewBookingRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewLedgerRepository(db),
		gw,
		payment.Options{
			Currency:       cfg.Currency,
			MethodTypes:    cfg.MethodTypes,
			ConfirmMethod:  cfg.ConfirmMethod,
			GatewayTimeout: cfg.GatewayTimeout,
		},
		log,
	)
	paymentHandler := payment.NewHandler(paymentService, cfg.StripeWebhookSecret, log)

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(db, paymentService, paymentHandler, cfg.CORSAllowedOrigins, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithFields(logrus.Fields{
			"addr":            cfg.HTTPAddr,
			"env":             cfg.AppEnv,
			"gateway_enabled": paymentService.GatewayEnabled(),
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
