package sms

import "context"

type Provider interface {
	Send(ctx context.Context, message *Message) (*Result, error)
	SendBulk(ctx context.Context, messages []*Message) ([]*Result, error)
}

// Message is a transactional SMS. The engine only sends booking and payment
// updates, never promotional traffic.
type Message struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

type Result struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}
