package main

import (
	"context"
	"flag"
	"math/rand"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookingpay/internal/config"
	"bookingpay/internal/database"
	"bookingpay/internal/domain"
	"bookingpay/internal/pkg/logging"
	"bookingpay/internal/repository"
)

// seed inserts pending bookings so the payment endpoints can be tried locally.
func main() {
	count := flag.Int("n", 5, "number of bookings to create")
	userID := flag.Int64("user", 1, "user id owning the bookings")
	flag.Parse()

	cfg, err := config.LoadPaymentRuntimeConfig()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.AppEnv, cfg.LogLevel)
	if config.IsProdLike(cfg.AppEnv) {
		log.Fatal("refusing to seed a production database")
	}

	db, err := database.Connect(cfg.DatabaseURL, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := repository.Migrate(db); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	bookings := repository.NewBookingRepository(db)
	ctx := context.Background()
	for i := 0; i < *count; i++ {
		// 10.00 .. 500.00 in whole cents
		price := decimal.New(int64(1000+rand.Intn(49001)), -2)
		b := &domain.Booking{
			UserID:        *userID,
			TotalPrice:    price,
			Status:        domain.BookingPending,
			PaymentStatus: domain.PaymentPending,
		}
		if err := bookings.Add(ctx, b); err != nil {
			log.WithError(err).Fatal("create booking failed")
		}
		log.WithFields(logrus.Fields{"booking_id": b.ID, "total_price": price.StringFixed(2)}).Info("booking created")
	}
}
