// Package processor adapts the external payment processor's checkout-session
// API. The engine treats the processor as the authoritative answer to "was
// this actually paid" and never caches its verdicts.
package processor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"booking-service/internal/util"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"go.uber.org/zap"
)

// Session is an opened checkout session: the opaque id the engine stores and
// the URL the user is sent to.
type Session struct {
	ID  string
	URL string
}

// SessionStatus is the processor's view of a session at retrieval time.
type SessionStatus struct {
	Complete   bool
	Paid       bool
	PaymentRef string
}

// OpenSessionParams carries everything a new checkout session needs.
type OpenSessionParams struct {
	BookingID   int64
	UserID      int64
	Amount      int64 // minor units
	Description string
	ExpiresAt   time.Time
}

// StripeClient implements checkout sessions against Stripe.
type StripeClient struct {
	baseURL  string
	currency string
	logger   *zap.Logger
}

// NewStripeClient configures the global Stripe key and returns a client.
// baseURL is this service's public URL, used to build the success/cancel
// redirect targets.
func NewStripeClient(apiKey, baseURL, currency string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{
		baseURL:  baseURL,
		currency: currency,
		logger:   util.GetLogger(),
	}
}

// OpenSession creates a checkout session for a booking. The call happens
// before any local transaction commits, so a failure here leaves no local
// state behind.
func (c *StripeClient) OpenSession(ctx context.Context, p OpenSessionParams) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(c.baseURL + "/api/v1/payments/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(c.baseURL + "/api/v1/payments/cancel?session_id={CHECKOUT_SESSION_ID}"),
		ExpiresAt:  stripe.Int64(p.ExpiresAt.Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(c.currency),
					UnitAmount: stripe.Int64(p.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(fmt.Sprintf("Booking #%d", p.BookingID)),
						Description: stripe.String(p.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("booking_id", strconv.FormatInt(p.BookingID, 10))
	params.AddMetadata("user_id", strconv.FormatInt(p.UserID, 10))

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	c.logger.Info("Checkout session opened",
		zap.Int64("booking_id", p.BookingID),
		zap.String("session_id", s.ID))

	return &Session{ID: s.ID, URL: s.URL}, nil
}

// RetrieveSession asks Stripe for the current state of a session.
func (c *StripeClient) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session %s: %w", sessionID, err)
	}

	status := &SessionStatus{
		Complete: s.Status == stripe.CheckoutSessionStatusComplete,
		Paid:     s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if s.PaymentIntent != nil {
		status.PaymentRef = s.PaymentIntent.ID
	}
	return status, nil
}
