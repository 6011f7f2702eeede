package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bookingpay/internal/domain"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID              int64           `gorm:"column:id;primaryKey"`
	UserID          int64           `gorm:"column:user_id;index"`
	TotalPrice      decimal.Decimal `gorm:"column:total_price;type:decimal(12,2);not null"`
	Status          string          `gorm:"column:status;type:varchar(20);not null;default:'Pending'"`
	PaymentStatus   string          `gorm:"column:payment_status;type:varchar(20);not null;default:'Pending'"`
	PaymentIntentID *string         `gorm:"column:payment_intent_id;type:varchar(255);uniqueIndex"`
	ClientSecret    *string         `gorm:"column:client_secret;type:varchar(255)"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (bookingModel) TableName() string { return "bookings" }

func toDomainBooking(m bookingModel) *domain.Booking {
	return &domain.Booking{
		ID:              m.ID,
		UserID:          m.UserID,
		TotalPrice:      m.TotalPrice,
		Status:          domain.BookingStatus(m.Status),
		PaymentStatus:   domain.PaymentStatus(m.PaymentStatus),
		PaymentIntentID: deref(m.PaymentIntentID),
		ClientSecret:    deref(m.ClientSecret),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:              b.ID,
		UserID:          b.UserID,
		TotalPrice:      b.TotalPrice,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		PaymentIntentID: nullable(b.PaymentIntentID),
		ClientSecret:    nullable(b.ClientSecret),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// Add inserts a booking. Bookings are normally created by the booking flow;
// this exists for seeding and tests.
func (r *BookingRepository) Add(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	*b = *toDomainBooking(m)
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return translate(err)
	}
	*b = *toDomainBooking(m)
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var m bookingModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainBooking(m), nil
}

func (r *BookingRepository) GetAll(ctx context.Context) ([]domain.Booking, error) {
	var rows []bookingModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainBooking(m))
	}
	return out, nil
}

// FindByPaymentIntentID is a point lookup on the unique intent index.
func (r *BookingRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*domain.Booking, error) {
	if intentID == "" {
		return nil, ErrNotFound
	}
	var m bookingModel
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainBooking(m), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	v := s
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
