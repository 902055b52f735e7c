package service

import (
	"context"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/processor"
)

// Consumer-side interfaces for the services' collaborators. *store.Store,
// *redisclient.Client, *broker.EventPublisher and *processor.StripeClient
// satisfy these; tests substitute mocks.

// AccommodationStore is the persistence surface for accommodations.
type AccommodationStore interface {
	CreateAccommodation(ctx context.Context, acc *models.Accommodation) error
	GetAccommodationByID(ctx context.Context, id int64) (*models.Accommodation, error)
	ListAccommodations(ctx context.Context) ([]models.Accommodation, error)
	UpdateAccommodation(ctx context.Context, acc *models.Accommodation) error
	SoftDeleteAccommodation(ctx context.Context, id int64) error
	GetAvailability(ctx context.Context, id int64) (int, error)
}

// BookingStore is the persistence surface for bookings.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, userID *int64, status *models.BookingStatus) ([]models.Booking, error)
	FindOverlaps(ctx context.Context, accommodationID int64, checkIn, checkOut time.Time, excludeBookingID int64) ([]models.Booking, error)
	UpdateBookingDates(ctx context.Context, bookingID int64, checkIn, checkOut time.Time) error
	TransitionBooking(ctx context.Context, bookingID int64, from []models.BookingStatus, to models.BookingStatus, releaseUnitOnExit bool) error
}

// PaymentStore is the persistence surface for payments.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	GetPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error)
	ListPayments(ctx context.Context, userID *int64) ([]models.Payment, error)
	CompletePayment(ctx context.Context, paymentID, bookingID int64, providerRef string, paidAt time.Time) error
	RefreshPaymentSession(ctx context.Context, paymentID int64, sessionID, sessionURL string, expiresAt time.Time) error
	RenewPayment(ctx context.Context, paymentID int64, sessionID, sessionURL string, expiresAt time.Time) error
	CancelPayment(ctx context.Context, paymentID int64) error
}

// AvailabilityCache is the redis fast path over the ledger counters.
type AvailabilityCache interface {
	ReserveUnit(ctx context.Context, accommodationID int64) (int, error)
	ReleaseUnit(ctx context.Context, accommodationID int64) error
	InitAvailability(ctx context.Context, accommodationID int64, units int) error
	DropAvailability(ctx context.Context, accommodationID int64) error
}

// EventPublisher emits the engine's side effects as domain events.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
	PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error
	PublishAccommodationReleased(ctx context.Context, event *models.AccommodationReleasedEvent) error
	PublishPaymentCreated(ctx context.Context, event *models.PaymentCreatedEvent) error
	PublishPaymentSuccess(ctx context.Context, event *models.PaymentSuccessEvent) error
}

// CheckoutProvider opens and inspects external payment sessions.
type CheckoutProvider interface {
	OpenSession(ctx context.Context, p processor.OpenSessionParams) (*processor.Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*processor.SessionStatus, error)
}
