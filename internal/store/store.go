package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// isSerializationFailure reports whether the error is a postgres
// serialization or deadlock failure worth retrying. Matches through
// wrapping since statement errors are annotated before they reach it.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// CreateAccommodation inserts a new accommodation with its full unit capacity.
func (s *Store) CreateAccommodation(ctx context.Context, acc *models.Accommodation) error {
	query := `
		INSERT INTO accommodations (type, location, size, amenities, daily_rate, available_units)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, acc, query,
		acc.Type, acc.Location, acc.Size, acc.Amenities, acc.DailyRate, acc.AvailableUnits)
}

// GetAccommodationByID retrieves an accommodation. Soft-deleted rows are
// not visible here.
func (s *Store) GetAccommodationByID(ctx context.Context, id int64) (*models.Accommodation, error) {
	var acc models.Accommodation
	err := s.db.GetContext(ctx, &acc,
		"SELECT * FROM accommodations WHERE id = $1 AND is_deleted = FALSE", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("accommodation %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// ListAccommodations retrieves all non-deleted accommodations
func (s *Store) ListAccommodations(ctx context.Context) ([]models.Accommodation, error) {
	var accs []models.Accommodation
	err := s.db.SelectContext(ctx, &accs,
		"SELECT * FROM accommodations WHERE is_deleted = FALSE ORDER BY id")
	return accs, err
}

// UpdateAccommodation updates the descriptive fields and daily rate. The
// availability counter is only ever touched by the ledger operations.
func (s *Store) UpdateAccommodation(ctx context.Context, acc *models.Accommodation) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accommodations
		SET type = $1, location = $2, size = $3, amenities = $4, daily_rate = $5, updated_at = NOW()
		WHERE id = $6 AND is_deleted = FALSE`,
		acc.Type, acc.Location, acc.Size, acc.Amenities, acc.DailyRate, acc.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("accommodation %d: %w", acc.ID, models.ErrNotFound)
	}
	return nil
}

// SoftDeleteAccommodation marks an accommodation deleted. Fails while any
// active booking still holds one of its units.
func (s *Store) SoftDeleteAccommodation(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var active int
	err = tx.GetContext(ctx, &active, `
		SELECT count(*) FROM bookings
		WHERE accommodation_id = $1 AND status = ANY($2)`,
		id, pq.Array(bookingStatusStrings(models.ActiveBookingStatuses)))
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("accommodation %d has %d active booking(s): %w",
			id, active, models.ErrInvalidState)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE accommodations SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("accommodation %d: %w", id, models.ErrNotFound)
	}

	return tx.Commit()
}

// GetAvailability reads the current ledger counter for an accommodation.
func (s *Store) GetAvailability(ctx context.Context, id int64) (int, error) {
	var units int
	err := s.db.GetContext(ctx, &units,
		"SELECT available_units FROM accommodations WHERE id = $1 AND is_deleted = FALSE", id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("accommodation %d: %w", id, models.ErrNotFound)
	}
	return units, err
}

// acquireUnit performs the conditional ledger decrement inside the given
// transaction. The decrement itself is the conflict check: the WHERE clause
// rejects the update when no unit is free, and the row lock it takes
// serializes concurrent bookings for the same accommodation.
func acquireUnit(ctx context.Context, tx *sqlx.Tx, accommodationID int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE accommodations
		SET available_units = available_units - 1, updated_at = NOW()
		WHERE id = $1 AND available_units > 0 AND is_deleted = FALSE`,
		accommodationID)
	if err != nil {
		return fmt.Errorf("failed to decrement availability: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	err = tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM accommodations WHERE id = $1 AND is_deleted = FALSE)",
		accommodationID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("accommodation %d: %w", accommodationID, models.ErrNotFound)
	}
	return fmt.Errorf("accommodation %d: %w", accommodationID, models.ErrUnavailable)
}

// releaseUnit reverses a prior decrement inside the given transaction. No
// upper bound is enforced here; callers only ever release what they acquired.
func releaseUnit(ctx context.Context, tx *sqlx.Tx, accommodationID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accommodations
		SET available_units = available_units + 1, updated_at = NOW()
		WHERE id = $1`,
		accommodationID)
	if err != nil {
		return fmt.Errorf("failed to increment availability: %w", err)
	}
	return nil
}

func bookingStatusStrings(statuses []models.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
