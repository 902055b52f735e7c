package models

import "time"

// Event types
const (
	EventTypeBookingCreated        = "BOOKING_CREATED"
	EventTypeBookingCancelled      = "BOOKING_CANCELLED"
	EventTypeAccommodationReleased = "ACCOMMODATION_RELEASED"
	EventTypePaymentCreated        = "PAYMENT_CREATED"
	EventTypePaymentSuccess        = "PAYMENT_SUCCESS"
	EventTypeBookingSweepSummary   = "BOOKING_SWEEP_SUMMARY"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when a booking is persisted as PENDING
type BookingCreatedEvent struct {
	BaseEvent
	BookingID       int64     `json:"booking_id"`
	UserID          int64     `json:"user_id"`
	AccommodationID int64     `json:"accommodation_id"`
	CheckInDate     time.Time `json:"check_in_date"`
	CheckOutDate    time.Time `json:"check_out_date"`
	TotalPrice      int64     `json:"total_price"`
}

// BookingCancelledEvent published when the owner cancels a booking
type BookingCancelledEvent struct {
	BaseEvent
	BookingID       int64 `json:"booking_id"`
	UserID          int64 `json:"user_id"`
	AccommodationID int64 `json:"accommodation_id"`
}

// AccommodationReleasedEvent published when a booking expiry returns a unit
// to the ledger
type AccommodationReleasedEvent struct {
	BaseEvent
	BookingID       int64 `json:"booking_id"`
	AccommodationID int64 `json:"accommodation_id"`
}

// PaymentCreatedEvent published when a checkout session is opened
type PaymentCreatedEvent struct {
	BaseEvent
	PaymentID   int64     `json:"payment_id"`
	BookingID   int64     `json:"booking_id"`
	UserID      int64     `json:"user_id"`
	AmountToPay int64     `json:"amount_to_pay"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PaymentSuccessEvent published when the processor confirms a session as paid
type PaymentSuccessEvent struct {
	BaseEvent
	PaymentID int64     `json:"payment_id"`
	BookingID int64     `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

// BookingSweepSummaryEvent published after every booking expiry sweep run;
// ExpiredCount is zero when the scan found nothing.
type BookingSweepSummaryEvent struct {
	BaseEvent
	ExpiredCount int `json:"expired_count"`
}
