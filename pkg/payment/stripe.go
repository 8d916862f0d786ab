package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeProvider struct {
	webhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{webhookSecret: webhookSecret}
}

func (p *StripeProvider) CreateOrder(ctx context.Context, request *OrderRequest) (*OrderResponse, error) {
	// Stripe expects the amount in the smallest currency unit.
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(request.Amount * 100),
		Currency: stripe.String(request.Currency),
	}
	params.AddMetadata("receipt", request.Receipt)
	for k, v := range request.Notes {
		params.AddMetadata(k, v)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe payment intent: %w", err)
	}

	return &OrderResponse{
		OrderID:   intent.ID,
		Status:    string(intent.Status),
		Amount:    request.Amount,
		Currency:  request.Currency,
		CreatedAt: intent.Created,
	}, nil
}

// VerifySignature for Stripe retrieves the intent and checks it settled.
// Stripe has no client-side signature scheme; the intent id is the proof
// and the gateway is the source of truth for its state.
func (p *StripeProvider) VerifySignature(orderID, paymentID, signature string) error {
	intent, err := paymentintent.Get(orderID, nil)
	if err != nil {
		return fmt.Errorf("failed to retrieve stripe payment intent: %w", err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("stripe payment intent %s not succeeded: %s", orderID, intent.Status)
	}
	return nil
}

func (p *StripeProvider) Refund(ctx context.Context, request *RefundRequest) (*RefundResponse, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(request.PaymentID),
		Amount:        stripe.Int64(request.Amount * 100),
	}
	if request.Reason != "" {
		params.AddMetadata("reason", request.Reason)
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe refund: %w", err)
	}

	return &RefundResponse{
		RefundID:  r.ID,
		Status:    string(r.Status),
		Amount:    request.Amount,
		CreatedAt: r.Created,
	}, nil
}

func (p *StripeProvider) ValidateWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid stripe webhook signature: %w", err)
	}

	out := &WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		Data:      map[string]interface{}{},
		CreatedAt: event.Created,
	}
	if event.Data != nil {
		out.Data = event.Data.Object
		if id, ok := event.Data.Object["id"].(string); ok {
			out.OrderID = id
			out.PaymentID = id
		}
	}
	return out, nil
}
