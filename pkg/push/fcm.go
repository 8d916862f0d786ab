package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMProvider struct {
	client *messaging.Client
}

func NewFCMProvider(credentialsFile string) (*FCMProvider, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMProvider{
		client: client,
	}, nil
}

func (f *FCMProvider) Send(ctx context.Context, notification *Notification) (*Result, error) {
	message := f.buildMessage(notification)

	messageID, err := f.client.Send(ctx, message)
	if err != nil {
		return &Result{
			Success: false,
			Error:   err.Error(),
			Token:   notification.Token,
		}, err
	}

	return &Result{
		MessageID: messageID,
		Success:   true,
		Token:     notification.Token,
	}, nil
}

func (f *FCMProvider) SendBulk(ctx context.Context, notifications []*Notification) ([]*Result, error) {
	messages := make([]*messaging.Message, len(notifications))
	for i, n := range notifications {
		messages[i] = f.buildMessage(n)
	}

	batchResponse, err := f.client.SendAll(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to send bulk notifications: %w", err)
	}

	results := make([]*Result, len(notifications))
	for i, response := range batchResponse.Responses {
		if response.Success {
			results[i] = &Result{
				MessageID: response.MessageID,
				Success:   true,
				Token:     notifications[i].Token,
			}
		} else {
			results[i] = &Result{
				Success: false,
				Error:   response.Error.Error(),
				Token:   notifications[i].Token,
			}
		}
	}

	return results, nil
}

func (f *FCMProvider) buildMessage(notification *Notification) *messaging.Message {
	message := &messaging.Message{
		Token: notification.Token,
		Data:  notification.Data,
	}

	if notification.Title != "" || notification.Body != "" {
		message.Notification = &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		}
	}

	if notification.Priority != "" || notification.Sound != "" || notification.CollapseKey != "" {
		message.Android = &messaging.AndroidConfig{
			Priority:    notification.Priority,
			CollapseKey: notification.CollapseKey,
			Notification: &messaging.AndroidNotification{
				Title: notification.Title,
				Body:  notification.Body,
				Sound: notification.Sound,
			},
		}
	}

	return message
}
