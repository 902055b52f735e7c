package service

import (
	"context"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/processor"

	"github.com/stretchr/testify/mock"
)

type mockAccommodationStore struct {
	mock.Mock
}

func (m *mockAccommodationStore) CreateAccommodation(ctx context.Context, acc *models.Accommodation) error {
	return m.Called(ctx, acc).Error(0)
}

func (m *mockAccommodationStore) GetAccommodationByID(ctx context.Context, id int64) (*models.Accommodation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Accommodation), args.Error(1)
}

func (m *mockAccommodationStore) ListAccommodations(ctx context.Context) ([]models.Accommodation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Accommodation), args.Error(1)
}

func (m *mockAccommodationStore) UpdateAccommodation(ctx context.Context, acc *models.Accommodation) error {
	return m.Called(ctx, acc).Error(0)
}

func (m *mockAccommodationStore) SoftDeleteAccommodation(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAccommodationStore) GetAvailability(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type mockBookingStore struct {
	mock.Mock
}

func (m *mockBookingStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *mockBookingStore) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingStore) ListBookings(ctx context.Context, userID *int64, status *models.BookingStatus) ([]models.Booking, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingStore) FindOverlaps(ctx context.Context, accommodationID int64, checkIn, checkOut time.Time, excludeBookingID int64) ([]models.Booking, error) {
	args := m.Called(ctx, accommodationID, checkIn, checkOut, excludeBookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingStore) UpdateBookingDates(ctx context.Context, bookingID int64, checkIn, checkOut time.Time) error {
	return m.Called(ctx, bookingID, checkIn, checkOut).Error(0)
}

func (m *mockBookingStore) TransitionBooking(ctx context.Context, bookingID int64, from []models.BookingStatus, to models.BookingStatus, releaseUnitOnExit bool) error {
	return m.Called(ctx, bookingID, from, to, releaseUnitOnExit).Error(0)
}

type mockPaymentStore struct {
	mock.Mock
}

func (m *mockPaymentStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *mockPaymentStore) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentStore) GetPaymentBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentStore) GetPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentStore) ListPayments(ctx context.Context, userID *int64) ([]models.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *mockPaymentStore) CompletePayment(ctx context.Context, paymentID, bookingID int64, providerRef string, paidAt time.Time) error {
	return m.Called(ctx, paymentID, bookingID, providerRef, paidAt).Error(0)
}

func (m *mockPaymentStore) RefreshPaymentSession(ctx context.Context, paymentID int64, sessionID, sessionURL string, expiresAt time.Time) error {
	return m.Called(ctx, paymentID, sessionID, sessionURL, expiresAt).Error(0)
}

func (m *mockPaymentStore) RenewPayment(ctx context.Context, paymentID int64, sessionID, sessionURL string, expiresAt time.Time) error {
	return m.Called(ctx, paymentID, sessionID, sessionURL, expiresAt).Error(0)
}

func (m *mockPaymentStore) CancelPayment(ctx context.Context, paymentID int64) error {
	return m.Called(ctx, paymentID).Error(0)
}

type mockAvailabilityCache struct {
	mock.Mock
}

func (m *mockAvailabilityCache) ReserveUnit(ctx context.Context, accommodationID int64) (int, error) {
	args := m.Called(ctx, accommodationID)
	return args.Int(0), args.Error(1)
}

func (m *mockAvailabilityCache) ReleaseUnit(ctx context.Context, accommodationID int64) error {
	return m.Called(ctx, accommodationID).Error(0)
}

func (m *mockAvailabilityCache) InitAvailability(ctx context.Context, accommodationID int64, units int) error {
	return m.Called(ctx, accommodationID, units).Error(0)
}

func (m *mockAvailabilityCache) DropAvailability(ctx context.Context, accommodationID int64) error {
	return m.Called(ctx, accommodationID).Error(0)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventPublisher) PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventPublisher) PublishAccommodationReleased(ctx context.Context, event *models.AccommodationReleasedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventPublisher) PublishPaymentCreated(ctx context.Context, event *models.PaymentCreatedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventPublisher) PublishPaymentSuccess(ctx context.Context, event *models.PaymentSuccessEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockCheckoutProvider struct {
	mock.Mock
}

func (m *mockCheckoutProvider) OpenSession(ctx context.Context, p processor.OpenSessionParams) (*processor.Session, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Session), args.Error(1)
}

func (m *mockCheckoutProvider) RetrieveSession(ctx context.Context, sessionID string) (*processor.SessionStatus, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.SessionStatus), args.Error(1)
}
