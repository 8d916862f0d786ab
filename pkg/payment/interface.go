package payment

import (
	"context"
)

// Provider abstracts the payment gateway. The engine only creates orders,
// verifies gateway results, and requests refunds; authorization and capture
// happen on the gateway's side. Amounts are whole currency units and are
// converted to the gateway's minor units at the boundary.
type Provider interface {
	// CreateOrder registers a payment intent with the gateway and returns
	// the order id the client completes the payment against.
	CreateOrder(ctx context.Context, request *OrderRequest) (*OrderResponse, error)

	// VerifySignature checks the gateway's proof that paymentID settled
	// orderID. Returns an error when the signature does not match.
	VerifySignature(orderID, paymentID, signature string) error

	// Refund returns money against a settled gateway payment.
	Refund(ctx context.Context, request *RefundRequest) (*RefundResponse, error)

	// ValidateWebhook authenticates an asynchronous gateway notification
	// and decodes it.
	ValidateWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

type OrderRequest struct {
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Notes     map[string]string `json:"notes"`
}

type OrderResponse struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	CreatedAt int64  `json:"created_at"`
}

type RefundRequest struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

type RefundResponse struct {
	RefundID  string `json:"refund_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	CreatedAt int64  `json:"created_at"`
}

type WebhookEvent struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	PaymentID string                 `json:"payment_id"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt int64                  `json:"created_at"`
}
