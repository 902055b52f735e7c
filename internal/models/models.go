package models

import "time"

// BookingStatus values
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCanceled  BookingStatus = "CANCELED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

// PaymentStatus values
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusExpired  PaymentStatus = "EXPIRED"
	PaymentStatusCanceled PaymentStatus = "CANCELED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
)

// ActiveBookingStatuses are the statuses that count against availability
// and participate in overlap detection.
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// Accommodation represents a bookable unit type at a location.
// AvailableUnits is the per-accommodation ledger counter and never goes
// below zero. Soft-deleted rows accept no new bookings.
type Accommodation struct {
	ID             int64     `db:"id" json:"id"`
	Type           string    `db:"type" json:"type"`
	Location       string    `db:"location" json:"location"`
	Size           string    `db:"size" json:"size"`
	Amenities      string    `db:"amenities" json:"amenities"`
	DailyRate      int64     `db:"daily_rate" json:"daily_rate"`
	AvailableUnits int       `db:"available_units" json:"available_units"`
	Deleted        bool      `db:"is_deleted" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Booking represents a reservation of one unit for a half-open date range
// [CheckInDate, CheckOutDate). TotalPrice is frozen at creation time and is
// never recomputed, even if the accommodation's daily rate changes later.
type Booking struct {
	ID              int64         `db:"id" json:"id"`
	UserID          int64         `db:"user_id" json:"user_id"`
	AccommodationID int64         `db:"accommodation_id" json:"accommodation_id"`
	CheckInDate     time.Time     `db:"check_in_date" json:"check_in_date"`
	CheckOutDate    time.Time     `db:"check_out_date" json:"check_out_date"`
	Status          BookingStatus `db:"status" json:"status"`
	TotalPrice      int64         `db:"total_price" json:"total_price"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Payment represents the single checkout-session lifecycle attached to a
// booking (1:1). SessionID/SessionURL are opaque handles from the payment
// processor; renewal refreshes them in place rather than creating a new row.
type Payment struct {
	ID          int64         `db:"id" json:"id"`
	BookingID   int64         `db:"booking_id" json:"booking_id"`
	UserID      int64         `db:"user_id" json:"user_id"`
	Status      PaymentStatus `db:"status" json:"status"`
	AmountToPay int64         `db:"amount_to_pay" json:"amount_to_pay"`
	SessionID   string        `db:"session_id" json:"session_id"`
	SessionURL  string        `db:"session_url" json:"session_url"`
	ProviderRef string        `db:"provider_ref" json:"provider_ref,omitempty"`
	ExpiresAt   time.Time     `db:"expires_at" json:"expires_at"`
	PaidAt      *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// Capability is the identity-derived view passed into the services: who the
// caller is plus whether they hold a manager/admin role. Services never see
// raw role lists.
type Capability struct {
	UserID   int64
	Elevated bool
}

// IsAvailable reports whether the accommodation can accept a new booking.
func (a *Accommodation) IsAvailable() bool {
	return a.AvailableUnits > 0 && !a.Deleted
}

// IsActive reports whether the booking counts against availability.
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// Nights returns the number of nights in the booked range.
func (b *Booking) Nights() int64 {
	return int64(b.CheckOutDate.Sub(b.CheckInDate).Hours() / 24)
}

// OverlapsRange reports whether the booking intersects [checkIn, checkOut)
// under the half-open interval rule: back-to-back check-out/check-in on the
// same day is not an overlap. Only active bookings overlap anything.
func (b *Booking) OverlapsRange(checkIn, checkOut time.Time) bool {
	return b.IsActive() &&
		b.CheckInDate.Before(checkOut) &&
		b.CheckOutDate.After(checkIn)
}

// CanBeCancelled reports whether the owner may still cancel: the booking is
// active and check-in has not arrived yet.
func (b *Booking) CanBeCancelled(now time.Time) bool {
	return b.IsActive() && b.CheckInDate.After(now)
}

// ValidBookingTransition reports whether from→to is a legal booking status
// change. PENDING may move to any of the three exits; CONFIRMED may only
// expire; CANCELED and EXPIRED are terminal.
func ValidBookingTransition(from, to BookingStatus) bool {
	switch from {
	case BookingStatusPending:
		return to == BookingStatusConfirmed || to == BookingStatusCanceled || to == BookingStatusExpired
	case BookingStatusConfirmed:
		return to == BookingStatusExpired
	default:
		return false
	}
}

// IsExpired reports whether the payment session deadline has passed.
func (p *Payment) IsExpired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// Renewable reports whether the payment can be re-opened with a fresh
// processor session.
func (p *Payment) Renewable() bool {
	return p.Status == PaymentStatusExpired || p.Status == PaymentStatusCanceled
}
