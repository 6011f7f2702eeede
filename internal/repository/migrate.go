package repository

import (
	"gorm.io/gorm"

	"bookingpay/internal/domain"
)

// Migrate creates or updates the tables the payment core reads and writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&bookingModel{},
		&domain.Payment{},
		&domain.Transaction{},
	)
}
