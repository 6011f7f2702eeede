package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"bookingpay/internal/domain"
	"bookingpay/internal/gateway"
	"bookingpay/internal/repository"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrPaymentInProgress means the booking's previous intent may still
	// collect money, so a new one is not created.
	ErrPaymentInProgress = errors.New("previous payment is still in progress")
)

const (
	defaultGatewayName    = "Stripe"
	defaultGatewayTimeout = 10 * time.Second
)

type Options struct {
	Currency      string
	MethodTypes   []string
	ConfirmMethod string
	// GatewayTimeout bounds every single gateway call.
	GatewayTimeout time.Duration
}

// Service reconciles bookings, payments and ledger transactions with the
// payment gateway.
type Service struct {
	bookings     bookingReader
	payments     paymentReader
	transactions transactionReader
	ledger       ledgerWriter
	gateway      Gateway
	opts         Options
	log          logrus.FieldLogger
	now          func() time.Time

	// inflight coalesces concurrent EnsureIntent calls per booking.
	inflight singleflight.Group
}

func NewService(
	bookings bookingReader,
	payments paymentReader,
	transactions transactionReader,
	ledger ledgerWriter,
	gw Gateway,
	opts Options,
	log logrus.FieldLogger,
) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	if len(opts.MethodTypes) == 0 {
		opts.MethodTypes = []string{"card"}
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = defaultGatewayTimeout
	}
	return &Service{
		bookings:     bookings,
		payments:     payments,
		transactions: transactions,
		ledger:       ledger,
		gateway:      gw,
		opts:         opts,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) GatewayEnabled() bool { return s.gateway != nil }

// EnsureIntent creates the booking's gateway intent on first call and
// refreshes its amount afterwards. With no gateway configured it returns the
// booking untouched.
func (s *Service) EnsureIntent(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	// Joiners share the result, so one caller going away must not fail the
	// others. Each gateway call is still bounded by GatewayTimeout.
	shared := context.WithoutCancel(ctx)
	v, err, joined := s.inflight.Do(strconv.FormatInt(bookingID, 10), func() (interface{}, error) {
		return s.ensureIntent(shared, bookingID)
	})
	if err != nil {
		return nil, err
	}
	if joined {
		s.log.WithField("booking_id", bookingID).Debug("ensure intent joined an in-flight call")
	}
	b := *v.(*domain.Booking)
	return &b, nil
}

func (s *Service) ensureIntent(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	log := s.log.WithField("booking_id", bookingID)

	if s.gateway == nil {
		log.Warn("payment gateway credential not configured, intent not created")
		return b, nil
	}
	if b.PaymentStatus == domain.PaymentPaid {
		log.WithField("intent_id", b.PaymentIntentID).Info("booking already paid, intent left untouched")
		return b, nil
	}

	amount := gateway.ToMinorUnits(b.TotalPrice, s.opts.Currency)
	if !b.HasIntent() {
		return s.createIntent(ctx, b, amount, log)
	}
	if b.PaymentStatus == domain.PaymentFailed {
		return s.retryIntent(ctx, b, amount, log)
	}

	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()
	if _, err := s.gateway.UpdateIntent(callCtx, b.PaymentIntentID, amount); err != nil {
		return nil, fmt.Errorf("update intent %s: %w", b.PaymentIntentID, err)
	}
	log.WithFields(logrus.Fields{"intent_id": b.PaymentIntentID, "amount": amount}).Info("payment intent amount refreshed")
	return b, nil
}

// retryIntent replaces the intent of a Failed booking. The old intent is
// checked first: money it already collected is recorded instead, and an
// intent that can still collect blocks the retry.
func (s *Service) retryIntent(ctx context.Context, b *domain.Booking, amount int64, log logrus.FieldLogger) (*domain.Booking, error) {
	previous := b.PaymentIntentID
	log = log.WithField("previous_intent_id", previous)

	getCtx, cancelGet := s.gatewayContext(ctx)
	old, err := s.gateway.GetIntent(getCtx, previous)
	cancelGet()
	if err != nil {
		return nil, fmt.Errorf("check previous intent %s: %w", previous, err)
	}

	switch {
	case old.Succeeded():
		p, err := s.findPayment(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		recorded, err := s.ledger.Settle(ctx, repository.Settlement{
			IntentID:      previous,
			BookingID:     b.ID,
			BookingStatus: domain.BookingPaid,
			PaymentStatus: domain.PaymentPaid,
			PaymentID:     paymentIDOf(p),
			Transaction:   s.newTransaction(previous, b, p),
		})
		if err != nil {
			return nil, fmt.Errorf("settle previous intent %s: %w", previous, err)
		}
		log.WithField("transaction_recorded", recorded).Warn("previous intent succeeded after failing, recorded instead of retrying")
		return s.reload(ctx, b.ID)
	case old.InFlight():
		log.WithField("gateway_status", old.Status).Info("previous intent still in flight, retry refused")
		return nil, ErrPaymentInProgress
	case old.Status != gateway.IntentCanceled:
		cancelCtx, cancel := s.gatewayContext(ctx)
		_, err := s.gateway.CancelIntent(cancelCtx, previous)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("cancel previous intent %s: %w", previous, err)
		}
		log.Info("previous intent canceled")
	}
	return s.createIntent(ctx, b, amount, log)
}

func (s *Service) createIntent(ctx context.Context, b *domain.Booking, amount int64, log logrus.FieldLogger) (*domain.Booking, error) {
	previous := b.PaymentIntentID

	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()
	intent, err := s.gateway.CreateIntent(callCtx, gateway.CreateIntentRequest{
		Amount:         amount,
		Currency:       s.opts.Currency,
		MethodTypes:    s.opts.MethodTypes,
		IdempotencyKey: intentIdempotencyKey(b.ID, previous, amount),
		Metadata:       map[string]string{"booking_id": strconv.FormatInt(b.ID, 10)},
	})
	if err != nil {
		return nil, fmt.Errorf("create intent for booking %d: %w", b.ID, err)
	}

	updated := *b
	updated.PaymentIntentID = intent.ID
	updated.ClientSecret = intent.ClientSecret
	updated.PaymentStatus = domain.PaymentPending
	if updated.Status == domain.BookingFailed {
		updated.Status = domain.BookingPending
	}

	p := &domain.Payment{
		BookingID:     b.ID,
		UserID:        b.UserID,
		Amount:        b.TotalPrice,
		Status:        domain.PaymentPending,
		PaymentMethod: s.gatewayName(),
		CreatedAt:     s.now(),
	}
	attached, err := s.ledger.AttachIntent(ctx, &updated, previous, p)
	if err != nil {
		return nil, fmt.Errorf("attach intent %s to booking %d: %w", intent.ID, b.ID, err)
	}
	if !attached {
		log.WithField("intent_id", intent.ID).Warn("booking intent changed concurrently, keeping the stored one")
		return s.reload(ctx, b.ID)
	}

	log.WithFields(logrus.Fields{
		"intent_id":  intent.ID,
		"amount":     amount,
		"payment_id": p.ID,
		"retry":      previous != "",
	}).Info("payment intent created")
	return &updated, nil
}

// ConfirmIntent confirms the intent at the gateway and records the outcome.
// It reports whether the intent is paid; failures of any kind are logged and
// reported as false.
func (s *Service) ConfirmIntent(ctx context.Context, intentID string) (paid bool) {
	log := s.log.WithField("intent_id", intentID)
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"error_class": "internal_error", "panic": r}).Error("payment confirmation panicked")
			paid = false
		}
	}()

	paid, err := s.confirmIntent(ctx, intentID, log)
	if err == nil {
		return paid
	}
	if ge, ok := gateway.AsError(err); ok {
		log.WithFields(logrus.Fields{
			"error_class": "gateway_error",
			"kind":        ge.Kind,
			"code":        ge.Code,
			"retryable":   ge.Retryable,
		}).WithError(err).Warn("payment confirmation failed at gateway")
	} else {
		log.WithField("error_class", "internal_error").WithError(err).Error("payment confirmation failed")
	}
	return false
}

func (s *Service) confirmIntent(ctx context.Context, intentID string, log logrus.FieldLogger) (bool, error) {
	if s.gateway == nil {
		log.Warn("payment gateway credential not configured, confirmation skipped")
		return false, nil
	}

	b, err := s.bookings.FindByPaymentIntentID(ctx, intentID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("no booking owns this payment intent, confirmation skipped")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find booking by intent: %w", err)
	}
	log = log.WithField("booking_id", b.ID)

	p, err := s.findPayment(ctx, b.ID)
	if err != nil {
		return false, err
	}

	getCtx, cancelGet := s.gatewayContext(ctx)
	current, err := s.gateway.GetIntent(getCtx, intentID)
	cancelGet()
	if err != nil {
		return false, err
	}
	if current.Succeeded() {
		if _, err := s.ledger.Settle(ctx, repository.Settlement{
			IntentID:      intentID,
			BookingID:     b.ID,
			BookingStatus: domain.BookingPaid,
			PaymentStatus: domain.PaymentPaid,
			PaymentID:     paymentIDOf(p),
		}); err != nil {
			return false, fmt.Errorf("mark booking paid: %w", err)
		}
		log.Info("payment intent already succeeded, confirm skipped")
		return true, nil
	}

	confirmCtx, cancelConfirm := s.gatewayContext(ctx)
	confirmed, err := s.gateway.ConfirmIntent(confirmCtx, intentID, s.opts.ConfirmMethod)
	cancelConfirm()
	if err != nil {
		return false, err
	}
	isPaid := confirmed.Succeeded()

	settlement := repository.Settlement{
		IntentID:      intentID,
		BookingID:     b.ID,
		BookingStatus: domain.BookingFailed,
		PaymentStatus: domain.PaymentFailed,
		PaymentID:     paymentIDOf(p),
	}
	if isPaid {
		settlement.BookingStatus = domain.BookingPaid
		settlement.PaymentStatus = domain.PaymentPaid
		settlement.Transaction = s.newTransaction(intentID, b, p)
	}
	recorded, err := s.ledger.Settle(ctx, settlement)
	if err != nil {
		return false, fmt.Errorf("settle confirmation: %w", err)
	}

	log.WithFields(logrus.Fields{
		"paid":                 isPaid,
		"gateway_status":       confirmed.Status,
		"transaction_recorded": recorded,
	}).Info("payment intent confirmed")
	return isPaid, nil
}

// ApplySuccessNotification records an asynchronous "payment succeeded"
// event. Unknown intents and bookings without a payment are ignored. Only
// storage failures are returned, so the sender can redeliver.
func (s *Service) ApplySuccessNotification(ctx context.Context, intentID string) error {
	log := s.log.WithField("intent_id", intentID)

	if t, err := s.transactions.FindByPaymentIntentID(ctx, intentID); err == nil {
		log.WithFields(logrus.Fields{"booking_id": t.BookingID, "transaction_id": t.ID}).Info("success notification already recorded")
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("find transaction for intent %s: %w", intentID, err)
	}

	b, err := s.bookings.FindByPaymentIntentID(ctx, intentID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Info("success notification for unknown intent ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find booking by intent %s: %w", intentID, err)
	}
	log = log.WithField("booking_id", b.ID)

	p, err := s.findPayment(ctx, b.ID)
	if err != nil {
		return err
	}
	if p == nil {
		log.Warn("success notification for booking without payment ignored")
		return nil
	}

	recorded, err := s.ledger.Settle(ctx, repository.Settlement{
		IntentID:      intentID,
		BookingID:     b.ID,
		BookingStatus: domain.BookingConfirmed,
		PaymentStatus: domain.PaymentPaid,
		PaymentID:     paymentIDOf(p),
		Transaction:   s.newTransaction(intentID, b, p),
	})
	if err != nil {
		return fmt.Errorf("settle notification for intent %s: %w", intentID, err)
	}
	log.WithField("transaction_recorded", recorded).Info("payment success notification applied")
	return nil
}

// ListTransactions returns the ledger rows of a booking, oldest first.
func (s *Service) ListTransactions(ctx context.Context, bookingID int64) ([]domain.Transaction, error) {
	if _, err := s.bookings.GetByID(ctx, bookingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	return s.transactions.ListByBookingID(ctx, bookingID)
}

func (s *Service) reload(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("reload booking %d: %w", bookingID, err)
	}
	return b, nil
}

func (s *Service) findPayment(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	p, err := s.payments.FindByBookingID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find payment for booking %d: %w", bookingID, err)
	}
	return p, nil
}

func (s *Service) newTransaction(intentID string, b *domain.Booking, p *domain.Payment) *domain.Transaction {
	t := &domain.Transaction{
		PaymentIntentID: intentID,
		BookingID:       b.ID,
		Amount:          b.TotalPrice,
		PaymentMethod:   s.gatewayName(),
		Status:          domain.TransactionCompleted,
		TransactionDate: s.now(),
	}
	if p != nil {
		t.PaymentID = paymentIDOf(p)
		t.Amount = p.Amount
		if p.PaymentMethod != "" {
			t.PaymentMethod = p.PaymentMethod
		}
	}
	return t
}

func (s *Service) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.GatewayTimeout)
}

func (s *Service) gatewayName() string {
	if s.gateway == nil {
		return defaultGatewayName
	}
	return s.gateway.Name()
}

func paymentIDOf(p *domain.Payment) *int64 {
	if p == nil {
		return nil
	}
	id := p.ID
	return &id
}

// intentIdempotencyKey makes retried creates for the same booking state
// return the intent the gateway already made.
func intentIdempotencyKey(bookingID int64, previousIntentID string, amount int64) string {
	if previousIntentID == "" {
		previousIntentID = "initial"
	}
	return fmt.Sprintf("booking-%d-%s-%d", bookingID, previousIntentID, amount)
}
