package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookingpay/internal/domain"
)

func TestRepository_KeyedStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	payments := NewPaymentRepository(db)
	b := seedBooking(t, db, "40.00")

	p := pendingPayment(b)
	require.NoError(t, payments.Add(ctx, p))
	require.NotZero(t, p.ID)

	got, err := payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.BookingID)
	assert.Equal(t, domain.PaymentPending, got.Status)

	got.Status = domain.PaymentPaid
	require.NoError(t, payments.Update(ctx, got))
	again, err := payments.FindByBookingID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, again.Status)

	all, err := payments.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = payments.GetByID(ctx, int64(9999))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_DuplicateBookingPayment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	payments := NewPaymentRepository(db)
	b := seedBooking(t, db, "40.00")

	require.NoError(t, payments.Add(ctx, pendingPayment(b)))
	err := payments.Add(ctx, pendingPayment(b))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestBookingRepository_UpdateAndGetAll(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewBookingRepository(db)

	b := seedBooking(t, db, "15.00")
	seedBooking(t, db, "25.00")

	b.TotalPrice = decimal.RequireFromString("17.50")
	b.Status = domain.BookingConfirmed
	require.NoError(t, repo.Update(ctx, b))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
	assert.True(t, all[0].TotalPrice.Equal(decimal.RequireFromString("17.50")))
	assert.Equal(t, domain.BookingConfirmed, all[0].Status)
	assert.Empty(t, all[0].PaymentIntentID)
}
