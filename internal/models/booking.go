package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

const (
	BookingStatusRequested            BookingStatus = "requested"
	BookingStatusConfirmed            BookingStatus = "confirmed"
	BookingStatusCompleted            BookingStatus = "completed"
	BookingStatusCancelledByDriver    BookingStatus = "cancelled_by_driver"
	BookingStatusCancelledByPassenger BookingStatus = "cancelled_by_passenger"
)

// BookingPricing is computed once at creation and immutable afterwards,
// except for refund bookkeeping filled in when a cancellation is refunded.
type BookingPricing struct {
	PricePerSeat int64  `json:"price_per_seat" bson:"price_per_seat"`
	TotalAmount  int64  `json:"total_amount" bson:"total_amount"`
	ServiceFee   int64  `json:"service_fee" bson:"service_fee"`
	FinalAmount  int64  `json:"final_amount" bson:"final_amount"`
	RefundAmount int64  `json:"refund_amount" bson:"refund_amount"`
	RefundType   string `json:"refund_type" bson:"refund_type"`
}

// Booking is one passenger's reservation against a Ride. DriverID is
// denormalized from the ride at creation for query convenience; financial
// code must re-derive it from the ride rather than trust the copy.
// Bookings are never physically deleted; cancellation is a status.
type Booking struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RideID             primitive.ObjectID `json:"ride_id" bson:"ride_id" validate:"required"`
	PassengerID        primitive.ObjectID `json:"passenger_id" bson:"passenger_id" validate:"required"`
	DriverID           primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	SeatsBooked        int                `json:"seats_booked" bson:"seats_booked" validate:"required,min=1,max=8"`
	Pricing            BookingPricing     `json:"pricing" bson:"pricing"`
	Status             BookingStatus      `json:"status" bson:"status" default:"requested"`
	PickupPoint        string             `json:"pickup_point" bson:"pickup_point"`
	DropoffPoint       string             `json:"dropoff_point" bson:"dropoff_point"`
	RequestedAt        time.Time          `json:"requested_at" bson:"requested_at"`
	ConfirmedAt        *time.Time         `json:"confirmed_at" bson:"confirmed_at"`
	CompletedAt        *time.Time         `json:"completed_at" bson:"completed_at"`
	CancelledAt        *time.Time         `json:"cancelled_at" bson:"cancelled_at"`
	CancellationReason string             `json:"cancellation_reason" bson:"cancellation_reason"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}

// ActiveBookingStatuses are the statuses that count against invariant
// "at most one active booking per passenger per ride".
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusRequested,
	BookingStatusConfirmed,
}

func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusRequested || b.Status == BookingStatusConfirmed
}

func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case BookingStatusCompleted, BookingStatusCancelledByDriver, BookingStatusCancelledByPassenger:
		return true
	}
	return false
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelledByDriver || b.Status == BookingStatusCancelledByPassenger
}

// Clone returns a copy so lifecycle transitions can produce a new snapshot
// without mutating the input.
func (b *Booking) Clone() *Booking {
	out := *b
	return &out
}
