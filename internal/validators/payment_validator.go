package validators

import (
	"ridepool/internal/pricing"
)

type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,object_id"`
	Gateway   string `json:"gateway" validate:"required,oneof=razorpay stripe"`
}

type VerifyPaymentRequest struct {
	OrderID          string `json:"order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"omitempty,max=512"`
}

type PayoutRequest struct {
	Amount      int64               `json:"amount" validate:"required,min=1"`
	Method      string              `json:"method" validate:"required,oneof=bank_transfer upi"`
	BankDetails *BankDetailsRequest `json:"bank_details" validate:"omitempty"`
}

type ProcessPayoutRequest struct {
	Succeed       bool   `json:"succeed"`
	FailureReason string `json:"failure_reason" validate:"omitempty,max=500"`
}

type BankDetailsRequest struct {
	AccountHolder string `json:"account_holder" validate:"required,max=100"`
	AccountNumber string `json:"account_number" validate:"required,min=4,max=34"`
	BankName      string `json:"bank_name" validate:"required,max=100"`
	RoutingCode   string `json:"routing_code" validate:"required,max=20"`
}

func ValidateInitiatePayment(req *InitiatePaymentRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateVerifyPayment(req *VerifyPaymentRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateProcessPayout(req *ProcessPayoutRequest) ValidationErrors {
	errors := ValidateStruct(req)

	if !req.Succeed && req.FailureReason == "" {
		errors = append(errors, ValidationError{
			Field:   "failure_reason",
			Message: "Failing a payout requires a reason",
		})
	}

	return errors
}

func ValidatePayoutRequest(req *PayoutRequest) ValidationErrors {
	errors := ValidateStruct(req)

	if req.Amount > 0 && req.Amount < pricing.MinimumPayout {
		errors = append(errors, ValidationError{
			Field:   "amount",
			Message: "Amount is below the minimum payout",
		})
	}

	if req.Method == "bank_transfer" && req.BankDetails == nil {
		errors = append(errors, ValidationError{
			Field:   "bank_details",
			Message: "Bank transfers require bank details",
		})
	}

	return errors
}
