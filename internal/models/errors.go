package models

import "errors"

// Business-rule failures. Services wrap these with context via fmt.Errorf
// and the API layer matches them with errors.Is to pick a response status.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidDate       = errors.New("invalid date range")
	ErrUnavailable       = errors.New("accommodation not available")
	ErrOverlap           = errors.New("dates overlap an existing booking")
	ErrPendingPayment    = errors.New("user has a pending unpaid booking")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAccessDenied      = errors.New("access denied")
	ErrDuplicatePayment  = errors.New("booking already has an active or paid payment")
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrAlreadyProcessed  = errors.New("payment already processed")
	ErrVerification      = errors.New("payment not verified by processor")
	ErrConflict          = errors.New("concurrent update conflict")
)
