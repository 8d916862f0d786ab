package pricing

import (
	"math"

	"ridepool/internal/apperrors"
)

// All amounts are whole currency units; calculations round to the nearest
// unit, never to sub-unit amounts.
const (
	// ServiceFeePercent is charged to the passenger on top of the fare.
	ServiceFeePercent = 5.0

	// PlatformFeePercent is deducted from the driver's side of a completed
	// payment during settlement.
	PlatformFeePercent = 10.0

	// PayoutFeePercent is charged per withdrawal, with a floor.
	PayoutFeePercent  = 2.0
	MinimumPayoutFee  = int64(5)
	MinimumPayout     = int64(100)

	RefundTypeFull    = "full"
	RefundTypePartial = "partial"
	RefundTypeNone    = "none"
)

type Fare struct {
	PricePerSeat int64 `json:"price_per_seat"`
	SeatsBooked  int   `json:"seats_booked"`
	TotalAmount  int64 `json:"total_amount"`
	ServiceFee   int64 `json:"service_fee"`
	FinalAmount  int64 `json:"final_amount"`
}

type Refund struct {
	RefundAmount     int64  `json:"refund_amount"`
	RefundPercentage int    `json:"refund_percentage"`
	RefundType       string `json:"refund_type"`
}

// ComputeFare prices a booking of seats at pricePerSeat with the given
// service fee percentage.
func ComputeFare(pricePerSeat int64, seats int, feePercent float64) (Fare, error) {
	if pricePerSeat < 0 || seats < 0 || feePercent < 0 || math.IsNaN(feePercent) {
		return Fare{}, apperrors.ErrInvalidAmount
	}

	total := pricePerSeat * int64(seats)
	fee := roundUnits(float64(total) * feePercent / 100)

	return Fare{
		PricePerSeat: pricePerSeat,
		SeatsBooked:  seats,
		TotalAmount:  total,
		ServiceFee:   fee,
		FinalAmount:  total + fee,
	}, nil
}

// ComputeRefund applies the tiered cancellation policy: at least 24 hours
// before departure refunds everything, between 2 and 24 hours refunds half,
// under 2 hours refunds nothing. Edge values belong to the upper tier.
func ComputeRefund(amount int64, hoursBeforeDeparture float64) (Refund, error) {
	if amount < 0 || math.IsNaN(hoursBeforeDeparture) {
		return Refund{}, apperrors.ErrInvalidAmount
	}

	switch {
	case hoursBeforeDeparture >= 24:
		return Refund{RefundAmount: amount, RefundPercentage: 100, RefundType: RefundTypeFull}, nil
	case hoursBeforeDeparture >= 2:
		return Refund{RefundAmount: roundUnits(float64(amount) * 0.5), RefundPercentage: 50, RefundType: RefundTypePartial}, nil
	default:
		return Refund{RefundAmount: 0, RefundPercentage: 0, RefundType: RefundTypeNone}, nil
	}
}

// PlatformFee is the marketplace's cut of one completed payment.
func PlatformFee(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return roundUnits(float64(amount) * PlatformFeePercent / 100)
}

// PayoutProcessingFee is charged when a driver withdraws earnings.
func PayoutProcessingFee(amount int64) int64 {
	if amount <= 0 {
		return MinimumPayoutFee
	}
	fee := roundUnits(float64(amount) * PayoutFeePercent / 100)
	if fee < MinimumPayoutFee {
		return MinimumPayoutFee
	}
	return fee
}

func roundUnits(v float64) int64 {
	return int64(math.Round(v))
}
