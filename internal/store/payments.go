package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-service/internal/models"
)

// CreatePayment inserts a PENDING payment snapshot for a booking.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (booking_id, user_id, status, amount_to_pay, session_id, session_url, provider_ref, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, payment, query,
		payment.BookingID, payment.UserID, payment.Status, payment.AmountToPay,
		payment.SessionID, payment.SessionURL, payment.ProviderRef, payment.ExpiresAt)
}

// GetPaymentByID retrieves a payment by ID
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentBySessionID retrieves a payment by its processor session handle
func (s *Store) GetPaymentBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE session_id = $1", sessionID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment for session %s: %w", sessionID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentByBookingID retrieves the payment attached to a booking, or nil
// when the booking has none yet.
func (s *Store) GetPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE booking_id = $1", bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPayments retrieves payments, optionally filtered by user.
func (s *Store) ListPayments(ctx context.Context, userID *int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE ($1::bigint IS NULL OR user_id = $1) ORDER BY created_at DESC",
		userID)
	return payments, err
}

// CompletePayment marks a payment PAID and confirms its booking in a single
// transaction. Both writes are guarded by the expected current status: if
// the payment was already processed the first UPDATE misses, and if the
// booking is no longer PENDING (expired by the sweep between session
// creation and payment confirmation) the second one misses and everything
// rolls back.
func (s *Store) CompletePayment(ctx context.Context, paymentID, bookingID int64, providerRef string, paidAt time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, provider_ref = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		models.PaymentStatusPaid, providerRef, paidAt, paymentID, models.PaymentStatusPending)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish a replayed confirmation from a session that was
		// expired or cancelled underneath the payer.
		var status models.PaymentStatus
		err = tx.GetContext(ctx, &status,
			"SELECT status FROM payments WHERE id = $1", paymentID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("payment %d: %w", paymentID, models.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if status == models.PaymentStatusPaid {
			return fmt.Errorf("payment %d: %w", paymentID, models.ErrAlreadyProcessed)
		}
		return fmt.Errorf("payment %d status %s: %w", paymentID, status, models.ErrInvalidState)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE bookings SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.BookingStatusConfirmed, bookingID, models.BookingStatusPending)
	if err != nil {
		return err
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("booking %d is no longer pending: %w", bookingID, models.ErrInvalidState)
	}

	return tx.Commit()
}

// RefreshPaymentSession re-points an existing payment at a fresh processor
// session. The guard enforces the duplicate rule at write time: it refuses
// while the payment is PAID, or PENDING with a live session.
func (s *Store) RefreshPaymentSession(ctx context.Context, paymentID int64, sessionID, sessionURL string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, session_id = $2, session_url = $3, provider_ref = '', paid_at = NULL, expires_at = $4, updated_at = NOW()
		WHERE id = $5
		  AND status <> $6
		  AND (status <> $1 OR expires_at < NOW())`,
		models.PaymentStatusPending, sessionID, sessionURL, expiresAt,
		paymentID, models.PaymentStatusPaid)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("payment %d: %w", paymentID, models.ErrDuplicatePayment)
	}
	return nil
}

// RenewPayment swaps in a fresh processor session and resets the payment to
// PENDING. Guarded on the payment being EXPIRED/CANCELED and the booking
// still PENDING, both checked inside the transaction.
func (s *Store) RenewPayment(ctx context.Context, paymentID int64, sessionID, sessionURL string, expiresAt time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var bookingStatus models.BookingStatus
	err = tx.GetContext(ctx, &bookingStatus, `
		SELECT b.status FROM bookings b
		JOIN payments p ON p.booking_id = b.id
		WHERE p.id = $1
		FOR UPDATE OF b`, paymentID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("payment %d: %w", paymentID, models.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if bookingStatus != models.BookingStatusPending {
		return fmt.Errorf("booking status %s: %w", bookingStatus, models.ErrInvalidState)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, session_id = $2, session_url = $3, provider_ref = '', paid_at = NULL, expires_at = $4, updated_at = NOW()
		WHERE id = $5 AND status IN ($6, $7)`,
		models.PaymentStatusPending, sessionID, sessionURL, expiresAt,
		paymentID, models.PaymentStatusExpired, models.PaymentStatusCanceled)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("payment %d cannot be renewed: %w", paymentID, models.ErrInvalidState)
	}

	return tx.Commit()
}

// CancelPayment withdraws a pending payment session.
func (s *Store) CancelPayment(ctx context.Context, paymentID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.PaymentStatusCanceled, paymentID, models.PaymentStatusPending)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("payment %d is not pending: %w", paymentID, models.ErrInvalidState)
	}
	return nil
}

// ListExpiredPendingPayments returns payments still PENDING whose session
// deadline is strictly before now. Used by the payment session expiry sweep.
func (s *Store) ListExpiredPendingPayments(ctx context.Context, now time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments, `
		SELECT * FROM payments
		WHERE status = $1 AND expires_at < $2
		ORDER BY id`,
		models.PaymentStatusPending, now)
	return payments, err
}

// ExpirePayment transitions a payment to EXPIRED if it is still PENDING and
// still past its deadline at write time. Re-checking expires_at matters: a
// session refreshed between the sweep's scan and this write carries a new
// deadline and must not be expired. Returns false without error when either
// precondition was lost to a concurrent transition.
func (s *Store) ExpirePayment(ctx context.Context, paymentID int64, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND expires_at < $4`,
		models.PaymentStatusExpired, paymentID, models.PaymentStatusPending, now)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
