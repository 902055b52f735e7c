package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlapsRangeHalfOpen(t *testing.T) {
	booking := &Booking{
		Status:       BookingStatusConfirmed,
		CheckInDate:  day(2026, 3, 10),
		CheckOutDate: day(2026, 3, 15),
	}

	// Back-to-back stays share a boundary day without overlapping.
	assert.False(t, booking.OverlapsRange(day(2026, 3, 15), day(2026, 3, 20)))
	assert.False(t, booking.OverlapsRange(day(2026, 3, 5), day(2026, 3, 10)))

	assert.True(t, booking.OverlapsRange(day(2026, 3, 14), day(2026, 3, 16)))
	assert.True(t, booking.OverlapsRange(day(2026, 3, 9), day(2026, 3, 11)))
	assert.True(t, booking.OverlapsRange(day(2026, 3, 11), day(2026, 3, 14)))
	assert.True(t, booking.OverlapsRange(day(2026, 3, 1), day(2026, 3, 31)))
}

func TestOverlapsRangeIgnoresInactiveBookings(t *testing.T) {
	booking := &Booking{
		Status:       BookingStatusCanceled,
		CheckInDate:  day(2026, 3, 10),
		CheckOutDate: day(2026, 3, 15),
	}

	assert.False(t, booking.OverlapsRange(day(2026, 3, 11), day(2026, 3, 14)))

	booking.Status = BookingStatusExpired
	assert.False(t, booking.OverlapsRange(day(2026, 3, 11), day(2026, 3, 14)))

	booking.Status = BookingStatusPending
	assert.True(t, booking.OverlapsRange(day(2026, 3, 11), day(2026, 3, 14)))
}

func TestValidBookingTransition(t *testing.T) {
	assert.True(t, ValidBookingTransition(BookingStatusPending, BookingStatusConfirmed))
	assert.True(t, ValidBookingTransition(BookingStatusPending, BookingStatusCanceled))
	assert.True(t, ValidBookingTransition(BookingStatusPending, BookingStatusExpired))
	assert.True(t, ValidBookingTransition(BookingStatusConfirmed, BookingStatusExpired))

	assert.False(t, ValidBookingTransition(BookingStatusConfirmed, BookingStatusCanceled))
	assert.False(t, ValidBookingTransition(BookingStatusConfirmed, BookingStatusPending))
	assert.False(t, ValidBookingTransition(BookingStatusCanceled, BookingStatusPending))
	assert.False(t, ValidBookingTransition(BookingStatusExpired, BookingStatusConfirmed))
	assert.False(t, ValidBookingTransition(BookingStatusCanceled, BookingStatusExpired))
}

func TestCanBeCancelled(t *testing.T) {
	now := day(2026, 3, 10)

	booking := &Booking{
		Status:      BookingStatusPending,
		CheckInDate: day(2026, 3, 12),
	}
	assert.True(t, booking.CanBeCancelled(now))

	booking.Status = BookingStatusConfirmed
	assert.True(t, booking.CanBeCancelled(now))

	// Check-in day has arrived.
	booking.CheckInDate = day(2026, 3, 10)
	assert.False(t, booking.CanBeCancelled(now))

	booking.CheckInDate = day(2026, 3, 12)
	booking.Status = BookingStatusCanceled
	assert.False(t, booking.CanBeCancelled(now))

	booking.Status = BookingStatusExpired
	assert.False(t, booking.CanBeCancelled(now))
}

func TestNights(t *testing.T) {
	booking := &Booking{
		CheckInDate:  day(2026, 3, 10),
		CheckOutDate: day(2026, 3, 15),
	}
	assert.Equal(t, int64(5), booking.Nights())

	booking.CheckOutDate = day(2026, 3, 11)
	assert.Equal(t, int64(1), booking.Nights())
}

func TestAccommodationIsAvailable(t *testing.T) {
	acc := &Accommodation{AvailableUnits: 1}
	assert.True(t, acc.IsAvailable())

	acc.AvailableUnits = 0
	assert.False(t, acc.IsAvailable())

	acc.AvailableUnits = 3
	acc.Deleted = true
	assert.False(t, acc.IsAvailable())
}

func TestPaymentIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	p := &Payment{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, p.IsExpired(now))

	p.ExpiresAt = now.Add(-time.Minute)
	assert.True(t, p.IsExpired(now))
}

func TestPaymentRenewable(t *testing.T) {
	assert.True(t, (&Payment{Status: PaymentStatusExpired}).Renewable())
	assert.True(t, (&Payment{Status: PaymentStatusCanceled}).Renewable())
	assert.False(t, (&Payment{Status: PaymentStatusPending}).Renewable())
	assert.False(t, (&Payment{Status: PaymentStatusPaid}).Renewable())
}
