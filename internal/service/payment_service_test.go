package service

import (
	"context"
	"testing"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestPaymentService(
	payments *mockPaymentStore,
	bookings *mockBookingStore,
	provider *mockCheckoutProvider,
	publisher *mockEventPublisher,
) *PaymentService {
	svc := NewPaymentService(payments, bookings, provider, publisher,
		"http://localhost:8080", 23*time.Hour)
	svc.now = func() time.Time { return testNow }
	return svc
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID: 10, UserID: 5, AccommodationID: 7,
		Status:       models.BookingStatusPending,
		CheckInDate:  day(2026, 3, 10),
		CheckOutDate: day(2026, 3, 15),
		TotalPrice:   5000,
	}
}

func TestCreateSession(t *testing.T) {
	payments := new(mockPaymentStore)
	bookings := new(mockBookingStore)
	provider := new(mockCheckoutProvider)
	publisher := new(mockEventPublisher)
	svc := newTestPaymentService(payments, bookings, provider, publisher)

	bookings.On("GetBookingByID", mock.Anything, int64(10)).Return(pendingBooking(), nil)
	payments.On("GetPaymentByBookingID", mock.Anything, int64(10)).Return(nil, nil)
	provider.On("OpenSession", mock.Anything, mock.MatchedBy(func(p processor.OpenSessionParams) bool {
		return p.BookingID == 10 && p.UserID == 5 && p.Amount == 5000
	})).Return(&processor.Session{ID: "cs_test_1", URL: "https://checkout.test/cs_test_1"}, nil)
	payments.On("CreatePayment", mock.Anything, mock.AnythingOfType("*models.Payment")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Payment).ID = 99
		}).Return(nil)
	publisher.On("PublishPaymentCreated", mock.Anything, mock.Anything).Return(nil)

	payment, err := svc.CreateSession(context.Background(), models.Capability{UserID: 5}, 10)

	require.NoError(t, err)
	assert.Equal(t, int64(99), payment.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, "cs_test_1", payment.SessionID)
	assert.Equal(t, testNow.Add(23*time.Hour), payment.ExpiresAt)
	payments.AssertExpectations(t)
}

func TestCreateSessionOwnerOnly(t *testing.T) {
	payments := new(mockPaymentStore)
	bookings := new(mockBookingStore)
	svc := newTestPaymentService(payments, bookings, new(mockCheckoutProvider), new(mockEventPublisher))

	bookings.On("GetBookingByID", mock.Anything, int64(10)).Return(pendingBooking(), nil)

	_, err := svc.CreateSession(context.Background(), models.Capability{UserID: 6}, 10)
	assert.ErrorIs(t, err, models.ErrAccessDenied)
}

func TestCreateSessionRequiresPendingBooking(t *testing.T) {
	payments := new(mockPaymentStore)
	bookings := new(mockBookingStore)
	svc := newTestPaymentService(payments, bookings, new(mockCheckoutProvider), new(mockEventPublisher))

	booking := pendingBooking()
	booking.Status = models.BookingStatusConfirmed
	bookings.On("GetBookingByID", mock.Anything, int64(10)).Return(booking, nil)

	_, err := svc.CreateSession(context.Background(), models.Capability{UserID: 5}, 10)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestCreateSessionDuplicateRules(t *testing.T) {
	payments := new(mockPaymentStore)
	bookings := new(mockBookingStore)
	svc := newTestPaymentService(payments, bookings, new(mockCheckoutProvider), new(mockEventPublisher))

	bookings.On("GetBookingByID", mock.Anything, int64(10)).Return(pendingBooking(), nil)

	paid := &models.Payment{ID: 99, BookingID: 10, UserID: 5, Status: models.PaymentStatusPaid}
	payments.On("GetPaymentByBookingID", mock.Anything, int64(10)).Return(paid, nil).Once()
	_, err := svc.CreateSession(context.Background(), models.Capability{UserID: 5}, 10)
	assert.ErrorIs(t, err, models.ErrDuplicatePayment)

	live := &models.Payment{
		ID: 99, BookingID: 10, UserID: 5,
		Status:    models.PaymentStatusPending,
		ExpiresAt: testNow.Add(time.Hour),
	}
	payments.On("GetPaymentByBookingID", mock.Anything, int64(10)).Return(live, nil).Once()
	_, err = svc.CreateSession(context.Background(), models.Capability{UserID: 5}, 10)
	assert.ErrorIs(t, err, models.ErrDuplicatePayment)
}

func TestCreateSessionRefreshesDeadSession(t *testing.T) {
	payments := new(mockPaymentStore)
	bookings := new(mockBookingStore)
	provider := new(mockCheckoutProvider)
	publisher := new(mockEventPublisher)
	svc := newTestPaymentService(payments, bookings, provider, publisher)

	bookings.On("GetBookingByID", mock.Anything, int64(10)).Return(pendingBooking(), nil)

	// PENDING but past its deadline: gets a fresh session in place.
	stale := &models.Payment{
		ID: 99, BookingID: 10, UserID: 5,
		Status:    models.PaymentStatusPending,
		ExpiresAt: testNow.Add(-time.Hour),
	}
	payments.On("GetPaymentByBookingID", mock.Anything, int64(10)).Return(stale, nil)
	provider.On("OpenSession", mock.Anything, mock.Anything).
		Return(&processor.Session{ID: "cs_test_2", URL: "https://checkout.test/cs_test_2"}, nil)
	payments.On("RefreshPaymentSession", mock.Anything, int64(99), "cs_test_2",
		"https://checkout.test/cs_test_2", testNow.Add(23*time.Hour)).Return(nil)

	refreshed := &models.Payment{
		ID: 99, BookingID: 10, UserID: 5,
		Status:    models.PaymentStatusPending,
		SessionID: "cs_test_2",
		ExpiresAt: testNow.Add(23 * time.Hour),
	}
	payments.On("GetPaymentByID", mock.Anything, int64(99)).Return(refreshed, nil)
	publisher.On("PublishPaymentCreated", mock.Anything, mock.Anything).Return(nil)

	payment, err := svc.CreateSession(context.Background(), models.Capability{UserID: 5}, 10)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_2", payment.SessionID)
	payments.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestConfirmSuccess(t *testing.T) {
	payments := new(mockPaymentStore)
	provider := new(mockCheckoutProvider)
	publisher := new(mockEventPublisher)
	svc := newTestPaymentService(payments, new(mockBookingStore), provider, publisher)

	payment := &models.Payment{
		ID: 99, BookingID: 10, UserID: 5,
		Status:      models.PaymentStatusPending,
		AmountToPay: 5000,
		SessionID:   "cs_test_1",
	}
	payments.On("GetPaymentBySessionID", mock.Anything, "cs_test_1").Return(payment, nil)
	provider.On("RetrieveSession", mock.Anything, "cs_test_1").
		Return(&processor.SessionStatus{Complete: true, Paid: true, PaymentRef: "pi_1"}, nil)
	payments.On("CompletePayment", mock.Anything, int64(99), int64(10), "pi_1", testNow).Return(nil)
	publisher.On("PublishPaymentSuccess", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ConfirmSuccess(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Equal(t, int64(10), result.BookingID)
	assert.Equal(t, int64(5000), result.AmountPaid)
	payments.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestConfirmSuccessIdempotent(t *testing.T) {
	payments := new(mockPaymentStore)
	provider := new(mockCheckoutProvider)
	svc := newTestPaymentService(payments, new(mockBookingStore), provider, new(mockEventPublisher))

	paid := &models.Payment{ID: 99, Status: models.PaymentStatusPaid, SessionID: "cs_test_1"}
	payments.On("GetPaymentBySessionID", mock.Anything, "cs_test_1").Return(paid, nil)

	_, err := svc.ConfirmSuccess(context.Background(), "cs_test_1")
	assert.ErrorIs(t, err, models.ErrAlreadyProcessed)
	provider.AssertNotCalled(t, "RetrieveSession", mock.Anything, mock.Anything)
}

func TestConfirmSuccessRejectsUnpaidSession(t *testing.T) {
	payments := new(mockPaymentStore)
	provider := new(mockCheckoutProvider)
	svc := newTestPaymentService(payments, new(mockBookingStore), provider, new(mockEventPublisher))

	payment := &models.Payment{ID: 99, BookingID: 10, Status: models.PaymentStatusPending, SessionID: "cs_test_1"}
	payments.On("GetPaymentBySessionID", mock.Anything, "cs_test_1").Return(payment, nil)
	provider.On("RetrieveSession", mock.Anything, "cs_test_1").
		Return(&processor.SessionStatus{Complete: false, Paid: false}, nil)

	_, err := svc.ConfirmSuccess(context.Background(), "cs_test_1")
	assert.ErrorIs(t, err, models.ErrVerification)
	payments.AssertNotCalled(t, "CompletePayment",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleCancelReturnsRenewURL(t *testing.T) {
	payments := new(mockPaymentStore)
	svc := newTestPaymentService(payments, new(mockBookingStore),
		new(mockCheckoutProvider), new(mockEventPublisher))

	payment := &models.Payment{ID: 99, Status: models.PaymentStatusPending, SessionID: "cs_test_1"}
	payments.On("GetPaymentBySessionID", mock.Anything, "cs_test_1").Return(payment, nil)

	result, err := svc.HandleCancel(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Equal(t, int64(99), result.PaymentID)
	assert.Equal(t, "http://localhost:8080/api/v1/payments/renew?payment_id=99", result.RenewURL)
}

func TestRenewPayment(t *testing.T) {
	payments := new(mockPaymentStore)
	bookings := new(mockBookingStore)
	provider := new(mockCheckoutProvider)
	svc := newTestPaymentService(payments, bookings, provider, new(mockEventPublisher))

	expired := &models.Payment{
		ID: 99, BookingID: 10, UserID: 5,
		Status: models.PaymentStatusExpired,
	}
	payments.On("GetPaymentByID", mock.Anything, int64(99)).Return(expired, nil)
	bookings.On("GetBookingByID", mock.Anything, int64(10)).Return(pendingBooking(), nil)
	provider.On("OpenSession", mock.Anything, mock.Anything).
		Return(&processor.Session{ID: "cs_test_3", URL: "https://checkout.test/cs_test_3"}, nil)
	payments.On("RenewPayment", mock.Anything, int64(99), "cs_test_3",
		"https://checkout.test/cs_test_3", testNow.Add(23*time.Hour)).Return(nil)

	_, err := svc.Renew(context.Background(), models.Capability{UserID: 5}, 99)
	require.NoError(t, err)
	payments.AssertExpectations(t)
}

func TestRenewPaymentRequiresRenewableStatus(t *testing.T) {
	payments := new(mockPaymentStore)
	svc := newTestPaymentService(payments, new(mockBookingStore),
		new(mockCheckoutProvider), new(mockEventPublisher))

	pending := &models.Payment{ID: 99, UserID: 5, Status: models.PaymentStatusPending}
	payments.On("GetPaymentByID", mock.Anything, int64(99)).Return(pending, nil)

	_, err := svc.Renew(context.Background(), models.Capability{UserID: 5}, 99)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestRenewPaymentRequiresPendingBooking(t *testing.T) {
	payments := new(mockPaymentStore)
	bookings := new(mockBookingStore)
	svc := newTestPaymentService(payments, bookings, new(mockCheckoutProvider), new(mockEventPublisher))

	expired := &models.Payment{ID: 99, BookingID: 10, UserID: 5, Status: models.PaymentStatusExpired}
	payments.On("GetPaymentByID", mock.Anything, int64(99)).Return(expired, nil)

	booking := pendingBooking()
	booking.Status = models.BookingStatusExpired
	bookings.On("GetBookingByID", mock.Anything, int64(10)).Return(booking, nil)

	_, err := svc.Renew(context.Background(), models.Capability{UserID: 5}, 99)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestListPayments(t *testing.T) {
	payments := new(mockPaymentStore)
	svc := newTestPaymentService(payments, new(mockBookingStore),
		new(mockCheckoutProvider), new(mockEventPublisher))

	own := int64(5)
	payments.On("ListPayments", mock.Anything, &own).Return([]models.Payment{}, nil)

	// Regular callers see only their own regardless of the filter.
	other := int64(6)
	_, err := svc.List(context.Background(), models.Capability{UserID: 5}, &other)
	require.NoError(t, err)
	payments.AssertCalled(t, "ListPayments", mock.Anything, &own)

	payments.On("ListPayments", mock.Anything, &other).Return([]models.Payment{}, nil)
	_, err = svc.List(context.Background(), models.Capability{UserID: 5, Elevated: true}, &other)
	require.NoError(t, err)
}
