package sweeper

import (
	"context"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	bookingSweepLock = "sweep:booking-expiry"
	paymentSweepLock = "sweep:payment-session"
)

// BookingSweepStore materializes the booking sweep's working set.
type BookingSweepStore interface {
	ListActiveBookingsEndedBefore(ctx context.Context, day time.Time) ([]models.Booking, error)
}

// BookingExpirer performs the per-booking expiry transition.
type BookingExpirer interface {
	Expire(ctx context.Context, bookingID int64) error
}

// PaymentSweepStore materializes and transitions overdue payment sessions.
type PaymentSweepStore interface {
	ListExpiredPendingPayments(ctx context.Context, now time.Time) ([]models.Payment, error)
	ExpirePayment(ctx context.Context, paymentID int64, now time.Time) (bool, error)
}

// LockManager provides cross-instance mutual exclusion for sweep runs.
type LockManager interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// SummaryPublisher emits the booking sweep's aggregate result.
type SummaryPublisher interface {
	PublishBookingSweepSummary(ctx context.Context, event *models.BookingSweepSummaryEvent) error
}

// Sweeper runs the two reconciliation loops: a slow one that expires
// bookings whose stay has ended without payment, and a fast one that marks
// overdue payment sessions. Each run takes a distributed lock so that
// overlapping runs across instances skip instead of double-scanning.
type Sweeper struct {
	bookings  BookingSweepStore
	expirer   BookingExpirer
	payments  PaymentSweepStore
	locks     LockManager
	publisher SummaryPublisher
	logger    *zap.Logger

	bookingInterval time.Duration
	paymentInterval time.Duration
	now             func() time.Time
}

// NewSweeper creates a new sweeper
func NewSweeper(
	bookings BookingSweepStore,
	expirer BookingExpirer,
	payments PaymentSweepStore,
	locks LockManager,
	publisher SummaryPublisher,
	bookingInterval, paymentInterval time.Duration,
) *Sweeper {
	return &Sweeper{
		bookings:        bookings,
		expirer:         expirer,
		payments:        payments,
		locks:           locks,
		publisher:       publisher,
		logger:          util.GetLogger(),
		bookingInterval: bookingInterval,
		paymentInterval: paymentInterval,
		now:             time.Now,
	}
}

// Start runs both sweep loops until the context is cancelled.
func (sw *Sweeper) Start(ctx context.Context) {
	go sw.runLoop(ctx, "booking_expiry", sw.bookingInterval, sw.SweepBookings)
	go sw.runLoop(ctx, "payment_session", sw.paymentInterval, sw.SweepPaymentSessions)
}

func (sw *Sweeper) runLoop(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sw.logger.Info("Sweep loop started",
		zap.String("sweep", name),
		zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("Sweep loop stopped", zap.String("sweep", name))
			return
		case <-ticker.C:
			start := time.Now()
			if err := run(ctx); err != nil {
				sw.logger.Error("Sweep run failed",
					zap.String("sweep", name),
					zap.Error(err))
			}
			util.SweepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
	}
}

// SweepBookings expires every PENDING/CONFIRMED booking whose check-out day
// has passed. Each booking is transitioned independently so one failure
// never stalls the rest, and a summary event is published even when the
// scan found nothing.
func (sw *Sweeper) SweepBookings(ctx context.Context) error {
	acquired, err := sw.locks.AcquireLock(ctx, bookingSweepLock, sw.bookingInterval)
	if err != nil {
		return err
	}
	if !acquired {
		sw.logger.Debug("Booking sweep already running elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := sw.locks.ReleaseLock(ctx, bookingSweepLock); err != nil {
			sw.logger.Warn("Failed to release booking sweep lock", zap.Error(err))
		}
	}()

	today := sw.now().UTC().Truncate(24 * time.Hour)
	stale, err := sw.bookings.ListActiveBookingsEndedBefore(ctx, today)
	if err != nil {
		return err
	}

	expired := 0
	for i := range stale {
		if err := sw.expirer.Expire(ctx, stale[i].ID); err != nil {
			// Concurrent cancellations lose the guarded transition; that
			// is the expected outcome, not a sweep defect.
			util.SweepFailuresTotal.WithLabelValues("booking_expiry").Inc()
			sw.logger.Warn("Failed to expire booking",
				zap.Int64("booking_id", stale[i].ID),
				zap.Error(err))
			continue
		}
		expired++
	}

	sw.logger.Info("Booking sweep finished",
		zap.Int("scanned", len(stale)),
		zap.Int("expired", expired))

	event := &models.BookingSweepSummaryEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingSweepSummary,
			Timestamp: sw.now(),
		},
		ExpiredCount: expired,
	}
	if err := sw.publisher.PublishBookingSweepSummary(ctx, event); err != nil {
		sw.logger.Error("Failed to publish sweep summary", zap.Error(err))
	}

	return nil
}

// SweepPaymentSessions marks overdue PENDING payment sessions EXPIRED. It
// touches only payment state; the booking stays PENDING and keeps its unit,
// available for a renewed session until the booking sweep reclaims it.
func (sw *Sweeper) SweepPaymentSessions(ctx context.Context) error {
	acquired, err := sw.locks.AcquireLock(ctx, paymentSweepLock, sw.paymentInterval)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}
	defer func() {
		if err := sw.locks.ReleaseLock(ctx, paymentSweepLock); err != nil {
			sw.logger.Warn("Failed to release payment sweep lock", zap.Error(err))
		}
	}()

	// The scan timestamp travels to every write so a session refreshed
	// after the scan (new deadline in the future) misses the guarded
	// update instead of being expired while live.
	now := sw.now()
	overdue, err := sw.payments.ListExpiredPendingPayments(ctx, now)
	if err != nil {
		return err
	}

	expired := 0
	for i := range overdue {
		done, err := sw.payments.ExpirePayment(ctx, overdue[i].ID, now)
		if err != nil {
			util.SweepFailuresTotal.WithLabelValues("payment_session").Inc()
			sw.logger.Warn("Failed to expire payment session",
				zap.Int64("payment_id", overdue[i].ID),
				zap.Error(err))
			continue
		}
		if done {
			util.PaymentSessionsExpiredTotal.Inc()
			expired++
		}
	}

	if len(overdue) > 0 {
		sw.logger.Info("Payment session sweep finished",
			zap.Int("scanned", len(overdue)),
			zap.Int("expired", expired))
	}

	return nil
}
