package service

import (
	"context"
	"testing"

	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAccommodationService(
	accommodations *mockAccommodationStore,
	cache *mockAvailabilityCache,
) *AccommodationService {
	return NewAccommodationService(accommodations, NewLedger(accommodations, cache))
}

func TestCreateAccommodationSeedsCache(t *testing.T) {
	accommodations := new(mockAccommodationStore)
	cache := new(mockAvailabilityCache)
	svc := newTestAccommodationService(accommodations, cache)

	accommodations.On("CreateAccommodation", mock.Anything, mock.AnythingOfType("*models.Accommodation")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Accommodation).ID = 7
		}).Return(nil)
	cache.On("InitAvailability", mock.Anything, int64(7), 3).Return(nil)

	acc, err := svc.Create(context.Background(), models.Capability{UserID: 1, Elevated: true},
		&CreateAccommodationRequest{
			Type:           "HOUSE",
			Location:       "Main Street 1",
			DailyRate:      10000,
			AvailableUnits: 3,
		})

	require.NoError(t, err)
	assert.Equal(t, int64(7), acc.ID)
	cache.AssertExpectations(t)
}

func TestAccommodationMutationsRequireElevation(t *testing.T) {
	accommodations := new(mockAccommodationStore)
	svc := newTestAccommodationService(accommodations, new(mockAvailabilityCache))

	plain := models.Capability{UserID: 1}

	_, err := svc.Create(context.Background(), plain, &CreateAccommodationRequest{})
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	_, err = svc.Update(context.Background(), plain, 7, &UpdateAccommodationRequest{})
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	err = svc.Delete(context.Background(), plain, 7)
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	accommodations.AssertNotCalled(t, "CreateAccommodation", mock.Anything, mock.Anything)
}

func TestDeleteAccommodationDropsCache(t *testing.T) {
	accommodations := new(mockAccommodationStore)
	cache := new(mockAvailabilityCache)
	svc := newTestAccommodationService(accommodations, cache)

	accommodations.On("SoftDeleteAccommodation", mock.Anything, int64(7)).Return(nil)
	cache.On("DropAvailability", mock.Anything, int64(7)).Return(nil)

	err := svc.Delete(context.Background(), models.Capability{UserID: 1, Elevated: true}, 7)
	require.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestUpdateAccommodationPartialPatch(t *testing.T) {
	accommodations := new(mockAccommodationStore)
	svc := newTestAccommodationService(accommodations, new(mockAvailabilityCache))

	existing := &models.Accommodation{
		ID: 7, Type: "HOUSE", Location: "Main Street 1", DailyRate: 10000, AvailableUnits: 3,
	}
	accommodations.On("GetAccommodationByID", mock.Anything, int64(7)).Return(existing, nil)
	accommodations.On("UpdateAccommodation", mock.Anything, mock.AnythingOfType("*models.Accommodation")).Return(nil)

	newRate := int64(12000)
	acc, err := svc.Update(context.Background(), models.Capability{UserID: 1, Elevated: true}, 7,
		&UpdateAccommodationRequest{DailyRate: &newRate})

	require.NoError(t, err)
	assert.Equal(t, int64(12000), acc.DailyRate)
	assert.Equal(t, "HOUSE", acc.Type)

	badRate := int64(0)
	_, err = svc.Update(context.Background(), models.Capability{UserID: 1, Elevated: true}, 7,
		&UpdateAccommodationRequest{DailyRate: &badRate})
	assert.ErrorIs(t, err, models.ErrInvalidState)
}
