package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string
type PaymentGateway string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"

	PaymentGatewayRazorpay PaymentGateway = "razorpay"
	PaymentGatewayStripe   PaymentGateway = "stripe"
)

// Payment is one payment attempt tied to exactly one Booking. A booking may
// accumulate several failed attempts but at most one completed payment.
type Payment struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	BookingID      primitive.ObjectID `json:"booking_id" bson:"booking_id" validate:"required"`
	RideID         primitive.ObjectID `json:"ride_id" bson:"ride_id"`
	PassengerID    primitive.ObjectID `json:"passenger_id" bson:"passenger_id"`
	DriverID       primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	Gateway        PaymentGateway     `json:"gateway" bson:"gateway" validate:"required"`
	OrderID        string             `json:"order_id" bson:"order_id"`
	GatewayPaymentID string           `json:"gateway_payment_id" bson:"gateway_payment_id"`
	Amount         int64              `json:"amount" bson:"amount" validate:"required"`
	Currency       string             `json:"currency" bson:"currency" default:"USD"`
	PlatformFee    int64              `json:"platform_fee" bson:"platform_fee"`
	DriverEarnings int64              `json:"driver_earnings" bson:"driver_earnings"`
	Status         PaymentStatus      `json:"status" bson:"status" default:"pending"`
	FailureReason  string             `json:"failure_reason" bson:"failure_reason"`
	Refunds        []RefundRecord     `json:"refunds" bson:"refunds"`
	CompletedAt    *time.Time         `json:"completed_at" bson:"completed_at"`
	FailedAt       *time.Time         `json:"failed_at" bson:"failed_at"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// RefundRecord is one refund issued against a completed payment.
type RefundRecord struct {
	RefundID   string    `json:"refund_id" bson:"refund_id"`
	Amount     int64     `json:"amount" bson:"amount"`
	Percentage int       `json:"percentage" bson:"percentage"`
	Type       string    `json:"type" bson:"type"` // full, partial
	Reason     string    `json:"reason" bson:"reason"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

func (p *Payment) RefundedAmount() int64 {
	var total int64
	for _, r := range p.Refunds {
		total += r.Amount
	}
	return total
}
