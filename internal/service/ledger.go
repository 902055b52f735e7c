package service

import (
	"context"
	"fmt"

	"booking-service/internal/redisclient"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// Ledger fronts the per-accommodation availability counters. Postgres is the
// source of truth (the conditional decrement lives inside the booking
// transaction); redis carries a best-effort copy used to reject obviously
// hopeless requests before a transaction is opened.
type Ledger struct {
	accommodations AccommodationStore
	cache          AvailabilityCache
	logger         *zap.Logger
}

// NewLedger creates a new ledger
func NewLedger(accommodations AccommodationStore, cache AvailabilityCache) *Ledger {
	return &Ledger{
		accommodations: accommodations,
		cache:          cache,
		logger:         util.GetLogger(),
	}
}

// TryReserve consults the cached counter. It returns false only when the
// cache positively reports zero availability; a cache miss or error falls
// through to the database, which decides for real.
func (l *Ledger) TryReserve(ctx context.Context, accommodationID int64) (reserved, rejected bool) {
	outcome, err := l.cache.ReserveUnit(ctx, accommodationID)
	if err != nil {
		l.logger.Warn("Availability cache reserve failed, deferring to DB",
			zap.Int64("accommodation_id", accommodationID),
			zap.Error(err))
		return false, false
	}

	switch outcome {
	case redisclient.ReserveOK:
		return true, false
	case redisclient.ReserveRejected:
		util.LedgerRejectionsTotal.WithLabelValues("cache").Inc()
		return false, true
	default:
		return false, false
	}
}

// Release returns one unit to the cached counter after a booking leaves an
// active status (the DB increment has already happened in the same
// transaction as the status write).
func (l *Ledger) Release(ctx context.Context, accommodationID int64) {
	if err := l.cache.ReleaseUnit(ctx, accommodationID); err != nil {
		l.logger.Warn("Availability cache release failed",
			zap.Int64("accommodation_id", accommodationID),
			zap.Error(err))
	}
}

// Undo reverses a cache reservation after the database rejected the booking.
func (l *Ledger) Undo(ctx context.Context, accommodationID int64) {
	l.Release(ctx, accommodationID)
}

// Seed initializes the cached counter for an accommodation
func (l *Ledger) Seed(ctx context.Context, accommodationID int64, units int) {
	if err := l.cache.InitAvailability(ctx, accommodationID, units); err != nil {
		l.logger.Warn("Failed to seed availability cache",
			zap.Int64("accommodation_id", accommodationID),
			zap.Error(err))
	}
}

// Drop removes the cached counter so the next reserve falls back to the DB
func (l *Ledger) Drop(ctx context.Context, accommodationID int64) {
	if err := l.cache.DropAvailability(ctx, accommodationID); err != nil {
		l.logger.Warn("Failed to drop availability cache entry",
			zap.Int64("accommodation_id", accommodationID),
			zap.Error(err))
	}
}

// SyncAll re-derives every cached counter from the database. Called on
// startup so the fast path starts from a consistent snapshot.
func (l *Ledger) SyncAll(ctx context.Context) error {
	accs, err := l.accommodations.ListAccommodations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accommodations: %w", err)
	}

	for i := range accs {
		l.Seed(ctx, accs[i].ID, accs[i].AvailableUnits)
	}

	l.logger.Info("Availability cache synced", zap.Int("count", len(accs)))
	return nil
}
