package service

import (
	"context"
	"fmt"

	"booking-service/internal/models"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// AccommodationService manages the accommodation catalog and keeps the
// availability cache in step with catalog changes.
type AccommodationService struct {
	accommodations AccommodationStore
	ledger         *Ledger
	logger         *zap.Logger
}

// NewAccommodationService creates a new accommodation service
func NewAccommodationService(accommodations AccommodationStore, ledger *Ledger) *AccommodationService {
	return &AccommodationService{
		accommodations: accommodations,
		ledger:         ledger,
		logger:         util.GetLogger(),
	}
}

// CreateAccommodationRequest carries the fields for a new catalog entry.
type CreateAccommodationRequest struct {
	Type           string `json:"type" binding:"required"`
	Location       string `json:"location" binding:"required"`
	Size           string `json:"size"`
	Amenities      string `json:"amenities"`
	DailyRate      int64  `json:"daily_rate" binding:"required,gt=0"`
	AvailableUnits int    `json:"available_units" binding:"required,gt=0"`
}

// UpdateAccommodationRequest carries a partial update. Available units are
// not patchable here; units move only through bookings.
type UpdateAccommodationRequest struct {
	Type      *string `json:"type"`
	Location  *string `json:"location"`
	Size      *string `json:"size"`
	Amenities *string `json:"amenities"`
	DailyRate *int64  `json:"daily_rate"`
}

// Create adds a new accommodation and seeds its cached availability counter.
func (as *AccommodationService) Create(ctx context.Context, cap models.Capability, req *CreateAccommodationRequest) (*models.Accommodation, error) {
	if !cap.Elevated {
		return nil, fmt.Errorf("accommodation management: %w", models.ErrAccessDenied)
	}

	acc := &models.Accommodation{
		Type:           req.Type,
		Location:       req.Location,
		Size:           req.Size,
		Amenities:      req.Amenities,
		DailyRate:      req.DailyRate,
		AvailableUnits: req.AvailableUnits,
	}
	if err := as.accommodations.CreateAccommodation(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to create accommodation: %w", err)
	}

	as.ledger.Seed(ctx, acc.ID, acc.AvailableUnits)

	as.logger.Info("Accommodation created",
		zap.Int64("accommodation_id", acc.ID),
		zap.String("type", acc.Type),
		zap.String("location", acc.Location))
	return acc, nil
}

// Get returns a single accommodation.
func (as *AccommodationService) Get(ctx context.Context, id int64) (*models.Accommodation, error) {
	return as.accommodations.GetAccommodationByID(ctx, id)
}

// List returns the catalog.
func (as *AccommodationService) List(ctx context.Context) ([]models.Accommodation, error) {
	return as.accommodations.ListAccommodations(ctx)
}

// Update applies a partial patch to a catalog entry. The cached counter is
// untouched since units are not patchable.
func (as *AccommodationService) Update(ctx context.Context, cap models.Capability, id int64, req *UpdateAccommodationRequest) (*models.Accommodation, error) {
	if !cap.Elevated {
		return nil, fmt.Errorf("accommodation management: %w", models.ErrAccessDenied)
	}

	acc, err := as.accommodations.GetAccommodationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Type != nil {
		acc.Type = *req.Type
	}
	if req.Location != nil {
		acc.Location = *req.Location
	}
	if req.Size != nil {
		acc.Size = *req.Size
	}
	if req.Amenities != nil {
		acc.Amenities = *req.Amenities
	}
	if req.DailyRate != nil {
		if *req.DailyRate <= 0 {
			return nil, fmt.Errorf("daily rate must be positive: %w", models.ErrInvalidState)
		}
		acc.DailyRate = *req.DailyRate
	}

	if err := as.accommodations.UpdateAccommodation(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to update accommodation: %w", err)
	}

	as.logger.Info("Accommodation updated", zap.Int64("accommodation_id", id))
	return acc, nil
}

// Delete soft-deletes an accommodation and drops its cached counter. The
// store refuses while active bookings reference it.
func (as *AccommodationService) Delete(ctx context.Context, cap models.Capability, id int64) error {
	if !cap.Elevated {
		return fmt.Errorf("accommodation management: %w", models.ErrAccessDenied)
	}

	if err := as.accommodations.SoftDeleteAccommodation(ctx, id); err != nil {
		return err
	}

	as.ledger.Drop(ctx, id)

	as.logger.Info("Accommodation deleted", zap.Int64("accommodation_id", id))
	return nil
}
