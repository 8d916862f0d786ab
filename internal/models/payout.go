package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PayoutStatus string
type PayoutMethod string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"

	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodUPI          PayoutMethod = "upi"
)

// Payout is one provider withdrawal request. Its lifecycle is independent of
// booking status; it references the underlying payment transactions it
// settles so the same earnings are never paid out twice.
type Payout struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	DriverID       primitive.ObjectID   `json:"driver_id" bson:"driver_id" validate:"required"`
	Amount         int64                `json:"amount" bson:"amount" validate:"required"`
	ProcessingFee  int64                `json:"processing_fee" bson:"processing_fee"`
	NetAmount      int64                `json:"net_amount" bson:"net_amount"`
	Currency       string               `json:"currency" bson:"currency" default:"USD"`
	Method         PayoutMethod         `json:"method" bson:"method" validate:"required"`
	BankDetails    *BankDetails         `json:"bank_details" bson:"bank_details"`
	TransactionIDs []primitive.ObjectID `json:"transaction_ids" bson:"transaction_ids"`
	Status         PayoutStatus         `json:"status" bson:"status" default:"pending"`
	FailureReason  string               `json:"failure_reason" bson:"failure_reason"`
	ProcessedAt    *time.Time           `json:"processed_at" bson:"processed_at"`
	CompletedAt    *time.Time           `json:"completed_at" bson:"completed_at"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" bson:"updated_at"`
}

type BankDetails struct {
	AccountHolder string `json:"account_holder" bson:"account_holder"`
	AccountNumber string `json:"account_number" bson:"account_number"`
	BankName      string `json:"bank_name" bson:"bank_name"`
	RoutingCode   string `json:"routing_code" bson:"routing_code"`
}

func (p *Payout) IsOutstanding() bool {
	return p.Status == PayoutStatusPending || p.Status == PayoutStatusProcessing
}
