package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService governs the booking state machine: creation, update,
// owner cancellation and sweep-driven expiry.
type BookingService struct {
	bookings       BookingStore
	accommodations AccommodationStore
	ledger         *Ledger
	eventPublisher EventPublisher
	logger         *zap.Logger
	retryAttempts  int
	now            func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings BookingStore,
	accommodations AccommodationStore,
	ledger *Ledger,
	eventPublisher EventPublisher,
	retryAttempts int,
) *BookingService {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &BookingService{
		bookings:       bookings,
		accommodations: accommodations,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		retryAttempts:  retryAttempts,
		now:            time.Now,
	}
}

// CreateBookingRequest represents a request to create a booking
type CreateBookingRequest struct {
	AccommodationID int64     `json:"accommodation_id" binding:"required"`
	CheckInDate     time.Time `json:"check_in_date" binding:"required"`
	CheckOutDate    time.Time `json:"check_out_date" binding:"required"`
}

// UpdateBookingRequest is a partial patch: nil fields are left untouched.
// Date fields travel together with whichever of the pair was omitted filled
// from the current booking.
type UpdateBookingRequest struct {
	Status       *models.BookingStatus `json:"status,omitempty"`
	CheckInDate  *time.Time            `json:"check_in_date,omitempty"`
	CheckOutDate *time.Time            `json:"check_out_date,omitempty"`
}

// Create validates and commits a new PENDING booking. The availability
// decrement, pending-payment count, overlap check and insert all happen in
// one transaction; a lost ledger race is retried a bounded number of times
// before surfacing as unavailable.
func (s *BookingService) Create(ctx context.Context, cap models.Capability, req *CreateBookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Create")
	defer span.End()

	if err := validateDates(req.CheckInDate, req.CheckOutDate, s.now()); err != nil {
		util.BookingsFailedTotal.WithLabelValues("invalid_dates").Inc()
		return nil, err
	}

	acc, err := s.accommodations.GetAccommodationByID(ctx, req.AccommodationID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	cacheReserved, rejected := s.ledger.TryReserve(ctx, acc.ID)
	if rejected {
		util.BookingsFailedTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("accommodation %d: %w", acc.ID, models.ErrUnavailable)
	}

	nights := int64(req.CheckOutDate.Sub(req.CheckInDate).Hours() / 24)
	booking := &models.Booking{
		UserID:          cap.UserID,
		AccommodationID: acc.ID,
		CheckInDate:     req.CheckInDate,
		CheckOutDate:    req.CheckOutDate,
		Status:          models.BookingStatusPending,
		TotalPrice:      nights * acc.DailyRate,
	}

	err = s.createWithRetry(ctx, booking)
	if err != nil {
		if cacheReserved {
			s.ledger.Undo(ctx, acc.ID)
		}
		util.BookingsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	// The DB decrement succeeded behind the cache's back; invalidate the
	// cached counter rather than guess at it.
	if !cacheReserved {
		s.ledger.Drop(ctx, acc.ID)
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", booking.UserID),
		zap.Int64("accommodation_id", booking.AccommodationID))

	event := &models.BookingCreatedEvent{
		BaseEvent:       newBaseEvent(models.EventTypeBookingCreated),
		BookingID:       booking.ID,
		UserID:          booking.UserID,
		AccommodationID: booking.AccommodationID,
		CheckInDate:     booking.CheckInDate,
		CheckOutDate:    booking.CheckOutDate,
		TotalPrice:      booking.TotalPrice,
	}
	if err := s.eventPublisher.PublishBookingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
	}

	return booking, nil
}

// createWithRetry retries lost serialization races. After the attempts are
// exhausted the conflict surfaces as plain unavailability.
func (s *BookingService) createWithRetry(ctx context.Context, booking *models.Booking) error {
	var err error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		err = s.bookings.CreateBooking(ctx, booking)
		if !errors.Is(err, models.ErrConflict) {
			return err
		}
		util.LedgerRejectionsTotal.WithLabelValues("conflict").Inc()
	}
	return fmt.Errorf("booking retries exhausted: %w", models.ErrUnavailable)
}

// Get returns a booking, restricted to the owner or an elevated caller.
func (s *BookingService) Get(ctx context.Context, cap models.Capability, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != cap.UserID && !cap.Elevated {
		return nil, fmt.Errorf("booking %d: %w", bookingID, models.ErrAccessDenied)
	}
	return booking, nil
}

// ListMine returns the caller's bookings.
func (s *BookingService) ListMine(ctx context.Context, cap models.Capability) ([]models.Booking, error) {
	return s.bookings.ListBookings(ctx, &cap.UserID, nil)
}

// List returns bookings filtered by user and/or status; elevated only.
func (s *BookingService) List(ctx context.Context, cap models.Capability, userID *int64, status *models.BookingStatus) ([]models.Booking, error) {
	if !cap.Elevated {
		return nil, fmt.Errorf("booking listing: %w", models.ErrAccessDenied)
	}
	return s.bookings.ListBookings(ctx, userID, status)
}

// Update applies a partial patch to a booking. Status patches go through the
// legal-transition table; date patches re-validate ordering and re-run
// overlap detection with the booking's own row excluded.
func (s *BookingService) Update(ctx context.Context, cap models.Capability, bookingID int64, req *UpdateBookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Update")
	defer span.End()

	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != cap.UserID && !cap.Elevated {
		return nil, fmt.Errorf("booking %d: %w", bookingID, models.ErrAccessDenied)
	}

	if req.Status != nil {
		if err := s.patchStatus(ctx, booking, *req.Status); err != nil {
			return nil, err
		}
	}

	if req.CheckInDate != nil || req.CheckOutDate != nil {
		checkIn := booking.CheckInDate
		checkOut := booking.CheckOutDate
		if req.CheckInDate != nil {
			checkIn = *req.CheckInDate
		}
		if req.CheckOutDate != nil {
			checkOut = *req.CheckOutDate
		}

		if err := validateDates(checkIn, checkOut, s.now()); err != nil {
			return nil, err
		}
		if err := s.bookings.UpdateBookingDates(ctx, bookingID, checkIn, checkOut); err != nil {
			return nil, err
		}
	}

	return s.bookings.GetBookingByID(ctx, bookingID)
}

func (s *BookingService) patchStatus(ctx context.Context, booking *models.Booking, to models.BookingStatus) error {
	if booking.Status == to {
		return fmt.Errorf("booking already %s: %w", to, models.ErrInvalidTransition)
	}
	if !models.ValidBookingTransition(booking.Status, to) {
		return fmt.Errorf("booking %s to %s: %w", booking.Status, to, models.ErrInvalidTransition)
	}

	release := to == models.BookingStatusCanceled || to == models.BookingStatusExpired
	err := s.bookings.TransitionBooking(ctx, booking.ID,
		[]models.BookingStatus{booking.Status}, to, release)
	if err != nil {
		return err
	}

	if release {
		s.ledger.Release(ctx, booking.AccommodationID)
	}
	return nil
}

// Cancel is owner-only by design: elevated roles cannot cancel on a user's
// behalf. The booking must still be active with check-in in the future.
func (s *BookingService) Cancel(ctx context.Context, cap models.Capability, bookingID int64) error {
	ctx, span := util.StartSpan(ctx, "BookingService.Cancel")
	defer span.End()

	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != cap.UserID {
		return fmt.Errorf("only the booking owner can cancel: %w", models.ErrAccessDenied)
	}
	if !booking.CanBeCancelled(s.now()) {
		return fmt.Errorf("booking %d (status %s, check-in %s): %w",
			bookingID, booking.Status, booking.CheckInDate.Format("2006-01-02"),
			models.ErrInvalidTransition)
	}

	err = s.bookings.TransitionBooking(ctx, bookingID,
		models.ActiveBookingStatuses, models.BookingStatusCanceled, true)
	if err != nil {
		return err
	}

	s.ledger.Release(ctx, booking.AccommodationID)
	util.BookingsCancelledTotal.Inc()
	s.logger.Info("Booking cancelled", zap.Int64("booking_id", bookingID))

	event := &models.BookingCancelledEvent{
		BaseEvent:       newBaseEvent(models.EventTypeBookingCancelled),
		BookingID:       bookingID,
		UserID:          booking.UserID,
		AccommodationID: booking.AccommodationID,
	}
	if err := s.eventPublisher.PublishBookingCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCancelled event", zap.Error(err))
	}

	return nil
}

// Expire is the sweep-side exit: it moves an active booking to EXPIRED and
// returns its unit to the ledger. A booking that left the active statuses
// since the sweep scanned it no-ops with ErrInvalidTransition.
func (s *BookingService) Expire(ctx context.Context, bookingID int64) error {
	booking, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}

	err = s.bookings.TransitionBooking(ctx, bookingID,
		models.ActiveBookingStatuses, models.BookingStatusExpired, true)
	if err != nil {
		return err
	}

	s.ledger.Release(ctx, booking.AccommodationID)
	util.BookingsExpiredTotal.Inc()
	s.logger.Info("Booking expired",
		zap.Int64("booking_id", bookingID),
		zap.Int64("accommodation_id", booking.AccommodationID))

	event := &models.AccommodationReleasedEvent{
		BaseEvent:       newBaseEvent(models.EventTypeAccommodationReleased),
		BookingID:       bookingID,
		AccommodationID: booking.AccommodationID,
	}
	if err := s.eventPublisher.PublishAccommodationReleased(ctx, event); err != nil {
		s.logger.Error("Failed to publish AccommodationReleased event", zap.Error(err))
	}

	return nil
}

// validateDates enforces the creation/update rule: check-in strictly after
// today, check-out strictly after check-in. Dates are compared at day
// granularity in UTC.
func validateDates(checkIn, checkOut time.Time, now time.Time) error {
	today := now.UTC().Truncate(24 * time.Hour)
	if !checkIn.After(today) {
		return fmt.Errorf("check-in %s is not in the future: %w",
			checkIn.Format("2006-01-02"), models.ErrInvalidDate)
	}
	if !checkOut.After(checkIn) {
		return fmt.Errorf("check-out %s must be after check-in %s: %w",
			checkOut.Format("2006-01-02"), checkIn.Format("2006-01-02"),
			models.ErrInvalidDate)
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrPendingPayment):
		return "pending_payment"
	case errors.Is(err, models.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, models.ErrOverlap):
		return "overlap"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	default:
		return "db_error"
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
