package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error with a stable machine-readable code and the HTTP
// status it maps to at the transport layer. Business code returns these;
// handlers translate them into the standard error envelope.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code so wrapped instances compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func newError(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

var (
	ErrRideNotFound    = newError("RIDE_NOT_FOUND", "ride not found", http.StatusNotFound)
	ErrBookingNotFound = newError("BOOKING_NOT_FOUND", "booking not found", http.StatusNotFound)
	ErrPaymentNotFound = newError("PAYMENT_NOT_FOUND", "payment not found", http.StatusNotFound)
	ErrPayoutNotFound  = newError("PAYOUT_NOT_FOUND", "payout not found", http.StatusNotFound)

	ErrRideNotBookable        = newError("RIDE_NOT_BOOKABLE", "ride is not open for booking", http.StatusConflict)
	ErrInsufficientSeats      = newError("INSUFFICIENT_SEATS", "not enough seats available", http.StatusConflict)
	ErrDuplicateActiveBooking = newError("DUPLICATE_ACTIVE_BOOKING", "passenger already has an active booking for this ride", http.StatusConflict)
	ErrInvalidTransition      = newError("INVALID_TRANSITION", "booking status transition not allowed", http.StatusConflict)
	ErrRideNotActive          = newError("RIDE_NOT_ACTIVE", "ride is not in a state that allows this operation", http.StatusConflict)

	ErrSelfBookingForbidden = newError("SELF_BOOKING_FORBIDDEN", "drivers cannot book their own rides", http.StatusForbidden)
	ErrUnauthorizedActor    = newError("UNAUTHORIZED_ACTOR", "actor is not allowed to perform this transition", http.StatusForbidden)

	// ErrConcurrencyConflict is surfaced after the bounded internal retry on
	// transaction abort is exhausted. Retryable by the client.
	ErrConcurrencyConflict = newError("CONCURRENCY_CONFLICT", "the operation conflicted with a concurrent request, please retry", http.StatusConflict)

	ErrInvalidAmount       = newError("INVALID_AMOUNT", "amount is invalid", http.StatusBadRequest)
	ErrInsufficientBalance = newError("INSUFFICIENT_BALANCE", "requested amount exceeds available balance", http.StatusConflict)
	ErrBelowMinimumPayout  = newError("BELOW_MINIMUM_PAYOUT", "requested amount is below the minimum payout", http.StatusBadRequest)

	ErrPaymentAlreadyCompleted = newError("PAYMENT_ALREADY_COMPLETED", "booking already has a completed payment", http.StatusConflict)
	ErrInvalidSignature        = newError("INVALID_SIGNATURE", "payment signature verification failed", http.StatusBadRequest)
	ErrUnsupportedGateway      = newError("UNSUPPORTED_GATEWAY", "payment gateway is not configured", http.StatusBadRequest)
)

// InvalidTransition returns ErrInvalidTransition annotated with the rejected
// source and target states.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Code:    ErrInvalidTransition.Code,
		Message: fmt.Sprintf("cannot transition booking from %s to %s", from, to),
		Status:  ErrInvalidTransition.Status,
	}
}

// Wrap attaches a cause to a sentinel while keeping its code and status.
func Wrap(sentinel *Error, err error) *Error {
	return &Error{Code: sentinel.Code, Message: sentinel.Message, Status: sentinel.Status, Err: err}
}

// FromError extracts the *Error from err, or nil when err carries none.
func FromError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
