package push

import (
	"context"
	"fmt"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"
)

type APNSProvider struct {
	client *apns2.Client
	topic  string
}

func NewAPNSProvider(keyFile, keyID, teamID, topic string, production bool) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth key: %w", err)
	}

	tokenProvider := &token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	}

	client := apns2.NewTokenClient(tokenProvider)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{
		client: client,
		topic:  topic,
	}, nil
}

func (a *APNSProvider) Send(ctx context.Context, n *Notification) (*Result, error) {
	notification := a.buildNotification(n)

	response, err := a.client.PushWithContext(ctx, notification)
	if err != nil {
		return &Result{
			Success: false,
			Error:   err.Error(),
			Token:   n.Token,
		}, err
	}

	if response.Sent() {
		return &Result{
			MessageID: response.ApnsID,
			Success:   true,
			Token:     n.Token,
		}, nil
	}

	return &Result{
		Success: false,
		Error:   response.Reason,
		Token:   n.Token,
	}, fmt.Errorf("APNS error: %s", response.Reason)
}

func (a *APNSProvider) SendBulk(ctx context.Context, notifications []*Notification) ([]*Result, error) {
	results := make([]*Result, len(notifications))

	for i, n := range notifications {
		result, err := a.Send(ctx, n)
		if err != nil {
			result = &Result{
				Success: false,
				Error:   err.Error(),
				Token:   n.Token,
			}
		}
		results[i] = result
	}

	return results, nil
}

func (a *APNSProvider) buildNotification(n *Notification) *apns2.Notification {
	aps := map[string]interface{}{}

	if n.Title != "" || n.Body != "" {
		alert := map[string]interface{}{}
		if n.Title != "" {
			alert["title"] = n.Title
		}
		if n.Body != "" {
			alert["body"] = n.Body
		}
		aps["alert"] = alert
	}

	if n.Sound != "" {
		aps["sound"] = n.Sound
	}

	if n.Badge > 0 {
		aps["badge"] = n.Badge
	}

	payload := map[string]interface{}{"aps": aps}
	for key, value := range n.Data {
		payload[key] = value
	}

	notification := &apns2.Notification{
		DeviceToken: n.Token,
		Topic:       a.topic,
		Payload:     payload,
	}

	if n.Priority == "high" {
		notification.Priority = apns2.PriorityHigh
	} else {
		notification.Priority = apns2.PriorityLow
	}

	if n.TTL > 0 {
		notification.Expiration = time.Now().Add(time.Duration(n.TTL) * time.Second)
	}

	if n.CollapseKey != "" {
		notification.CollapseID = n.CollapseKey
	}

	return notification
}
