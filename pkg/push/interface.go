package push

import "context"

type Provider interface {
	Send(ctx context.Context, notification *Notification) (*Result, error)
	SendBulk(ctx context.Context, notifications []*Notification) ([]*Result, error)
}

// Notification is a single device push. Data carries the booking or payment
// identifiers the client app needs to deep-link.
type Notification struct {
	Token       string            `json:"token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Sound       string            `json:"sound,omitempty"`
	Badge       int               `json:"badge,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	TTL         int               `json:"ttl,omitempty"`
	CollapseKey string            `json:"collapse_key,omitempty"`
}

type Result struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Token     string `json:"token,omitempty"`
}
