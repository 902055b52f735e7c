package service

import (
	"context"
	"fmt"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/processor"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// PaymentService governs the payment state machine and bridges it to the
// booking state machine on payment success.
type PaymentService struct {
	payments        PaymentStore
	bookings        BookingStore
	provider        CheckoutProvider
	eventPublisher  EventPublisher
	logger          *zap.Logger
	baseURL         string
	sessionLifetime time.Duration
	now             func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	payments PaymentStore,
	bookings BookingStore,
	provider CheckoutProvider,
	eventPublisher EventPublisher,
	baseURL string,
	sessionLifetime time.Duration,
) *PaymentService {
	return &PaymentService{
		payments:        payments,
		bookings:        bookings,
		provider:        provider,
		eventPublisher:  eventPublisher,
		logger:          util.GetLogger(),
		baseURL:         baseURL,
		sessionLifetime: sessionLifetime,
		now:             time.Now,
	}
}

// PaymentSuccessResult is returned after a confirmed payment.
type PaymentSuccessResult struct {
	PaymentID  int64     `json:"payment_id"`
	BookingID  int64     `json:"booking_id"`
	AmountPaid int64     `json:"amount_paid"`
	PaidAt     time.Time `json:"paid_at"`
}

// PaymentCancelResult carries the renewal handle returned when the user
// backs out of a checkout session.
type PaymentCancelResult struct {
	PaymentID int64  `json:"payment_id"`
	RenewURL  string `json:"renew_url"`
}

// CreateSession opens a checkout session for a pending booking and persists
// the PENDING payment snapshot. The processor call happens before any local
// write, so a processor failure leaves no local state behind.
func (ps *PaymentService) CreateSession(ctx context.Context, cap models.Capability, bookingID int64) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreateSession")
	defer span.End()

	booking, err := ps.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != cap.UserID {
		return nil, fmt.Errorf("payments can only be created for own bookings: %w", models.ErrAccessDenied)
	}
	if booking.Status != models.BookingStatusPending {
		return nil, fmt.Errorf("booking status %s: %w", booking.Status, models.ErrInvalidState)
	}

	existing, err := ps.payments.GetPaymentByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.PaymentStatusPaid {
			return nil, fmt.Errorf("booking %d already paid: %w", bookingID, models.ErrDuplicatePayment)
		}
		if existing.Status == models.PaymentStatusPending && !existing.IsExpired(ps.now()) {
			return nil, fmt.Errorf("booking %d has a live payment session: %w", bookingID, models.ErrDuplicatePayment)
		}
	}

	expiresAt := ps.now().Add(ps.sessionLifetime)
	session, err := ps.openSession(ctx, booking, expiresAt)
	if err != nil {
		return nil, err
	}

	var payment *models.Payment
	if existing == nil {
		payment = &models.Payment{
			BookingID:   bookingID,
			UserID:      booking.UserID,
			Status:      models.PaymentStatusPending,
			AmountToPay: booking.TotalPrice,
			SessionID:   session.ID,
			SessionURL:  session.URL,
			ExpiresAt:   expiresAt,
		}
		if err := ps.payments.CreatePayment(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to persist payment: %w", err)
		}
	} else {
		// Same payment identity, refreshed session fields. The guarded
		// update re-checks the duplicate rule at write time.
		if err := ps.payments.RefreshPaymentSession(ctx, existing.ID, session.ID, session.URL, expiresAt); err != nil {
			return nil, err
		}
		payment, err = ps.payments.GetPaymentByID(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
	}

	util.PaymentsCreatedTotal.Inc()
	ps.logger.Info("Payment session created",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", bookingID),
		zap.String("session_id", payment.SessionID))

	event := &models.PaymentCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypePaymentCreated),
		PaymentID:   payment.ID,
		BookingID:   bookingID,
		UserID:      payment.UserID,
		AmountToPay: payment.AmountToPay,
		ExpiresAt:   payment.ExpiresAt,
	}
	if err := ps.eventPublisher.PublishPaymentCreated(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentCreated event", zap.Error(err))
	}

	return payment, nil
}

// ConfirmSuccess verifies a session with the processor and, in one
// transaction, marks the payment PAID and the booking CONFIRMED. The
// booking must still be PENDING at that instant; a booking expired between
// session creation and confirmation fails with ErrInvalidState instead of
// being silently confirmed.
func (ps *PaymentService) ConfirmSuccess(ctx context.Context, sessionID string) (*PaymentSuccessResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ConfirmSuccess")
	defer span.End()

	payment, err := ps.payments.GetPaymentBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusPaid {
		return nil, fmt.Errorf("payment %d: %w", payment.ID, models.ErrAlreadyProcessed)
	}

	status, err := ps.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify session %s: %w", sessionID, err)
	}
	if !status.Complete || !status.Paid {
		return nil, fmt.Errorf("session %s not complete and paid: %w", sessionID, models.ErrVerification)
	}

	paidAt := ps.now()
	err = ps.payments.CompletePayment(ctx, payment.ID, payment.BookingID, status.PaymentRef, paidAt)
	if err != nil {
		return nil, err
	}

	util.PaymentsPaidTotal.Inc()
	ps.logger.Info("Payment confirmed",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", payment.BookingID))

	event := &models.PaymentSuccessEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentSuccess),
		PaymentID: payment.ID,
		BookingID: payment.BookingID,
		UserID:    payment.UserID,
		Amount:    payment.AmountToPay,
		PaidAt:    paidAt,
	}
	if err := ps.eventPublisher.PublishPaymentSuccess(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentSuccess event", zap.Error(err))
	}

	return &PaymentSuccessResult{
		PaymentID:  payment.ID,
		BookingID:  payment.BookingID,
		AmountPaid: payment.AmountToPay,
		PaidAt:     paidAt,
	}, nil
}

// HandleCancel is hit when the user backs out of the checkout page. It
// mutates nothing; it only hands back a URL the caller can use to renew.
func (ps *PaymentService) HandleCancel(ctx context.Context, sessionID string) (*PaymentCancelResult, error) {
	payment, err := ps.payments.GetPaymentBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	renewURL := fmt.Sprintf("%s/api/v1/payments/renew?payment_id=%d", ps.baseURL, payment.ID)

	return &PaymentCancelResult{
		PaymentID: payment.ID,
		RenewURL:  renewURL,
	}, nil
}

// Cancel withdraws a still-pending payment session.
func (ps *PaymentService) Cancel(ctx context.Context, cap models.Capability, paymentID int64) error {
	payment, err := ps.payments.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.UserID != cap.UserID {
		return fmt.Errorf("payment %d: %w", paymentID, models.ErrAccessDenied)
	}
	return ps.payments.CancelPayment(ctx, paymentID)
}

// Renew re-opens an expired or cancelled payment with a fresh processor
// session. The payment keeps its identity; only the session fields, status
// and deadline are reset. The booking must still be PENDING.
func (ps *PaymentService) Renew(ctx context.Context, cap models.Capability, paymentID int64) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Renew")
	defer span.End()

	payment, err := ps.payments.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != cap.UserID {
		return nil, fmt.Errorf("payments can only be renewed by their owner: %w", models.ErrAccessDenied)
	}
	if !payment.Renewable() {
		return nil, fmt.Errorf("payment status %s: %w", payment.Status, models.ErrInvalidState)
	}

	booking, err := ps.bookings.GetBookingByID(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, fmt.Errorf("booking status %s: %w", booking.Status, models.ErrInvalidState)
	}

	expiresAt := ps.now().Add(ps.sessionLifetime)
	session, err := ps.openSession(ctx, booking, expiresAt)
	if err != nil {
		return nil, err
	}

	if err := ps.payments.RenewPayment(ctx, paymentID, session.ID, session.URL, expiresAt); err != nil {
		return nil, err
	}

	util.PaymentsRenewedTotal.Inc()
	ps.logger.Info("Payment session renewed",
		zap.Int64("payment_id", paymentID),
		zap.String("session_id", session.ID))

	return ps.payments.GetPaymentByID(ctx, paymentID)
}

// Get returns a payment, restricted to the owner or an elevated caller.
func (ps *PaymentService) Get(ctx context.Context, cap models.Capability, paymentID int64) (*models.Payment, error) {
	payment, err := ps.payments.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != cap.UserID && !cap.Elevated {
		return nil, fmt.Errorf("payment %d: %w", paymentID, models.ErrAccessDenied)
	}
	return payment, nil
}

// List returns payments. Regular users always see their own; elevated
// callers may filter by user or see everything.
func (ps *PaymentService) List(ctx context.Context, cap models.Capability, userID *int64) ([]models.Payment, error) {
	if !cap.Elevated {
		return ps.payments.ListPayments(ctx, &cap.UserID)
	}
	return ps.payments.ListPayments(ctx, userID)
}

func (ps *PaymentService) openSession(ctx context.Context, booking *models.Booking, expiresAt time.Time) (*processor.Session, error) {
	nights := booking.Nights()
	session, err := ps.provider.OpenSession(ctx, processor.OpenSessionParams{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		Amount:      booking.TotalPrice,
		Description: fmt.Sprintf("Accommodation %d, %d night(s)", booking.AccommodationID, nights),
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkout session: %w", err)
	}
	return session, nil
}
