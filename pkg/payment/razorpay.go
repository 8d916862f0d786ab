package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

type RazorpayProvider struct {
	client        *razorpay.Client
	keySecret     string
	webhookSecret string
}

func NewRazorpayProvider(keyID, keySecret, webhookSecret string) *RazorpayProvider {
	return &RazorpayProvider{
		client:        razorpay.NewClient(keyID, keySecret),
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

func (p *RazorpayProvider) CreateOrder(ctx context.Context, request *OrderRequest) (*OrderResponse, error) {
	// Razorpay expects the amount in paise.
	data := map[string]interface{}{
		"amount":   request.Amount * 100,
		"currency": request.Currency,
		"receipt":  request.Receipt,
	}
	if len(request.Notes) > 0 {
		notes := make(map[string]interface{}, len(request.Notes))
		for k, v := range request.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	order, err := p.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	resp := &OrderResponse{
		Amount:    request.Amount,
		Currency:  request.Currency,
		CreatedAt: time.Now().Unix(),
	}
	if id, ok := order["id"].(string); ok {
		resp.OrderID = id
	}
	if status, ok := order["status"].(string); ok {
		resp.Status = status
	}
	if created, ok := order["created_at"].(float64); ok {
		resp.CreatedAt = int64(created)
	}
	return resp, nil
}

func (p *RazorpayProvider) VerifySignature(orderID, paymentID, signature string) error {
	expected := p.sign(orderID + "|" + paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("razorpay signature mismatch for order %s", orderID)
	}
	return nil
}

func (p *RazorpayProvider) Refund(ctx context.Context, request *RefundRequest) (*RefundResponse, error) {
	data := map[string]interface{}{}
	if request.Reason != "" {
		data["notes"] = map[string]interface{}{"reason": request.Reason}
	}

	refund, err := p.client.Payment.Refund(request.PaymentID, int(request.Amount*100), data, map[string]string{})
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay refund: %w", err)
	}

	resp := &RefundResponse{
		Amount:    request.Amount,
		CreatedAt: time.Now().Unix(),
	}
	if id, ok := refund["id"].(string); ok {
		resp.RefundID = id
	}
	if status, ok := refund["status"].(string); ok {
		resp.Status = status
	}
	return resp, nil
}

func (p *RazorpayProvider) ValidateWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("invalid razorpay webhook signature")
	}

	var body struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID        string                 `json:"id"`
					OrderID   string                 `json:"order_id"`
					Notes     map[string]interface{} `json:"notes"`
					CreatedAt int64                  `json:"created_at"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to decode razorpay webhook: %w", err)
	}

	return &WebhookEvent{
		EventType: body.Event,
		OrderID:   body.Payload.Payment.Entity.OrderID,
		PaymentID: body.Payload.Payment.Entity.ID,
		Data:      body.Payload.Payment.Entity.Notes,
		CreatedAt: body.Payload.Payment.Entity.CreatedAt,
	}, nil
}

func (p *RazorpayProvider) sign(message string) string {
	mac := hmac.New(sha256.New, []byte(p.keySecret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
