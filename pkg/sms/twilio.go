package sms

import (
	"context"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioProvider struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewTwilioProvider(accountSID, authToken, fromNumber string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioProvider{
		client:     client,
		fromNumber: fromNumber,
	}
}

func (t *TwilioProvider) Send(ctx context.Context, message *Message) (*Result, error) {
	from := message.From
	if from == "" {
		from = t.fromNumber
	}

	params := &api.CreateMessageParams{}
	params.SetTo(message.To)
	params.SetFrom(from)
	params.SetBody(message.Body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return &Result{
			Status: "failed",
			Error:  err.Error(),
		}, err
	}

	return &Result{
		MessageID: *resp.Sid,
		Status:    string(*resp.Status),
	}, nil
}

func (t *TwilioProvider) SendBulk(ctx context.Context, messages []*Message) ([]*Result, error) {
	results := make([]*Result, len(messages))

	for i, m := range messages {
		result, err := t.Send(ctx, m)
		if err != nil {
			result = &Result{
				Status: "failed",
				Error:  err.Error(),
			}
		}
		results[i] = result
	}

	return results, nil
}
