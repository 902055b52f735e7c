package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// CreateBooking inserts a PENDING booking and decrements the accommodation
// ledger in a single transaction. The conditional decrement doubles as the
// availability check and takes the accommodation row lock, so the pending
// count and overlap check that follow see a consistent snapshot relative to
// the insert.
//
// Returns ErrPendingPayment, ErrNotFound, ErrUnavailable, ErrOverlap or
// ErrConflict (serialization failure, retryable by the caller).
func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Serialize creates per user. The accommodation row lock below does not
	// cover two concurrent creates by the same user against different
	// accommodations, so without this both could read a zero pending count
	// and both commit.
	if _, err := tx.ExecContext(ctx,
		"SELECT pg_advisory_xact_lock($1)", booking.UserID); err != nil {
		return fmt.Errorf("failed to lock user %d: %w", booking.UserID, err)
	}

	var pending int
	err = tx.GetContext(ctx, &pending,
		"SELECT count(*) FROM bookings WHERE user_id = $1 AND status = $2",
		booking.UserID, models.BookingStatusPending)
	if err != nil {
		return fmt.Errorf("failed to count pending bookings: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("user %d has %d pending booking(s): %w",
			booking.UserID, pending, models.ErrPendingPayment)
	}

	if err := acquireUnit(ctx, tx, booking.AccommodationID); err != nil {
		return asCreateConflict(err)
	}

	overlaps, err := findOverlapsTx(ctx, tx, booking.AccommodationID,
		booking.CheckInDate, booking.CheckOutDate, 0)
	if err != nil {
		return asCreateConflict(err)
	}
	if len(overlaps) > 0 {
		return fmt.Errorf("%d conflicting booking(s) for accommodation %d: %w",
			len(overlaps), booking.AccommodationID, models.ErrOverlap)
	}

	query := `
		INSERT INTO bookings (user_id, accommodation_id, check_in_date, check_out_date, status, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, booking, query,
		booking.UserID, booking.AccommodationID,
		booking.CheckInDate, booking.CheckOutDate,
		booking.Status, booking.TotalPrice)
	if err != nil {
		return asCreateConflict(fmt.Errorf("failed to insert booking: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return asCreateConflict(err)
	}
	return nil
}

// asCreateConflict maps serialization and deadlock failures, which under
// read committed surface on the statement that lost the race rather than at
// commit, to the retryable ErrConflict.
func asCreateConflict(err error) error {
	if isSerializationFailure(err) {
		return fmt.Errorf("booking create: %w", models.ErrConflict)
	}
	return err
}

// FindOverlaps returns the active bookings for an accommodation whose date
// range intersects [checkIn, checkOut) under the half-open interval rule.
// excludeBookingID (0 for none) lets an update ignore the booking being
// modified. An empty result is not an error.
func (s *Store) FindOverlaps(ctx context.Context, accommodationID int64, checkIn, checkOut time.Time, excludeBookingID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings
		WHERE accommodation_id = $1
		  AND status = ANY($2)
		  AND check_in_date < $3
		  AND check_out_date > $4
		  AND id <> $5
		ORDER BY check_in_date`,
		accommodationID,
		pq.Array(bookingStatusStrings(models.ActiveBookingStatuses)),
		checkOut, checkIn, excludeBookingID)
	return bookings, err
}

func findOverlapsTx(ctx context.Context, q sqlx.QueryerContext, accommodationID int64, checkIn, checkOut time.Time, excludeBookingID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := sqlx.SelectContext(ctx, q, &bookings, `
		SELECT * FROM bookings
		WHERE accommodation_id = $1
		  AND status = ANY($2)
		  AND check_in_date < $3
		  AND check_out_date > $4
		  AND id <> $5`,
		accommodationID,
		pq.Array(bookingStatusStrings(models.ActiveBookingStatuses)),
		checkOut, checkIn, excludeBookingID)
	return bookings, err
}

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("booking %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListBookings retrieves bookings, optionally filtered by user and/or status.
func (s *Store) ListBookings(ctx context.Context, userID *int64, status *models.BookingStatus) ([]models.Booking, error) {
	query := "SELECT * FROM bookings WHERE ($1::bigint IS NULL OR user_id = $1) AND ($2::text IS NULL OR status = $2) ORDER BY created_at DESC"
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, query, userID, status)
	return bookings, err
}

// UpdateBookingDates moves a booking to a new date range, re-running overlap
// detection against the accommodation inside the same transaction. The
// booking's own row is excluded from the conflict set.
func (s *Store) UpdateBookingDates(ctx context.Context, bookingID int64, checkIn, checkOut time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var booking models.Booking
	err = tx.GetContext(ctx, &booking,
		"SELECT * FROM bookings WHERE id = $1 FOR UPDATE", bookingID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("booking %d: %w", bookingID, models.ErrNotFound)
	}
	if err != nil {
		return err
	}

	// Lock the accommodation row so a concurrent create cannot commit an
	// overlapping range between our check and our write.
	_, err = tx.ExecContext(ctx,
		"SELECT id FROM accommodations WHERE id = $1 FOR UPDATE", booking.AccommodationID)
	if err != nil {
		return err
	}

	overlaps, err := findOverlapsTx(ctx, tx, booking.AccommodationID, checkIn, checkOut, bookingID)
	if err != nil {
		return err
	}
	if len(overlaps) > 0 {
		return fmt.Errorf("%d conflicting booking(s): %w", len(overlaps), models.ErrOverlap)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE bookings SET check_in_date = $1, check_out_date = $2, updated_at = NOW() WHERE id = $3",
		checkIn, checkOut, bookingID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// TransitionBooking applies a guarded status change. The UPDATE only fires
// while the booking still holds one of the expected statuses, so a sweep or
// user action racing a newer transition no-ops instead of overwriting it.
// When releaseUnitOnExit is set the accommodation ledger is re-incremented
// in the same transaction, exactly once per exit from an active status.
//
// Returns ErrInvalidTransition when the precondition no longer holds.
func (s *Store) TransitionBooking(ctx context.Context, bookingID int64, from []models.BookingStatus, to models.BookingStatus, releaseUnitOnExit bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var accommodationID int64
	err = tx.GetContext(ctx, &accommodationID, `
		UPDATE bookings SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
		RETURNING accommodation_id`,
		to, bookingID, pq.Array(bookingStatusStrings(from)))
	if err == sql.ErrNoRows {
		return fmt.Errorf("booking %d to %s: %w", bookingID, to, models.ErrInvalidTransition)
	}
	if err != nil {
		return err
	}

	if releaseUnitOnExit {
		if err := releaseUnit(ctx, tx, accommodationID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListActiveBookingsEndedBefore returns PENDING/CONFIRMED bookings whose
// check-out date is strictly before the given day. Used by the booking
// expiry sweep to materialize its working set.
func (s *Store) ListActiveBookingsEndedBefore(ctx context.Context, day time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings
		WHERE status = ANY($1) AND check_out_date < $2
		ORDER BY id`,
		pq.Array(bookingStatusStrings(models.ActiveBookingStatuses)), day)
	return bookings, err
}
