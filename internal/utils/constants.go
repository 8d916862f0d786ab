package utils

import "time"

// Application Constants
const (
	AppName    = "RidePool"
	AppVersion = "1.0.0"

	// Default values
	DefaultCurrency = "USD"
	DefaultTimeZone = "UTC"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Booking Constants
	MinSeatsPerBooking = 1
	MaxSeatsPerBooking = 8
	MaxSeatsPerRide    = 8

	// Coordinator retry policy for transaction aborts
	TxnMaxRetries   = 3
	TxnRetryBackoff = 25 * time.Millisecond

	// Refund policy windows (hours before departure)
	FullRefundWindowHours    = 24.0
	PartialRefundWindowHours = 2.0

	// Cache TTLs
	RideCacheTTL    = 2 * time.Minute
	BookingCacheTTL = 1 * time.Minute
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidInput     = "invalid input"
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrNotFound         = "not found"
	ErrValidationFailed = "validation failed"
)

// Cache Keys
const (
	CacheRidePrefix        = "ride:"
	CacheBookingListPrefix = "bookings:"
	CacheBalancePrefix     = "balance:"
	CacheKeyContactPrefix  = "contact:"
)

// EventChannel is the Redis pub/sub channel downstream consumers subscribe to.
const EventChannel = "ridepool:events"

// Event Types
const (
	EventBookingRequested = "booking_requested"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCompleted = "booking_completed"
	EventBookingCancelled = "booking_cancelled"
	EventRidePublished    = "ride_published"
	EventRideCancelled    = "ride_cancelled"
	EventPaymentCompleted = "payment_completed"
	EventPaymentRefunded  = "payment_refunded"
	EventPayoutRequested  = "payout_requested"
	EventPayoutProcessed  = "payout_processed"
)
