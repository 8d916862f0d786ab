package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type AWSSNSProvider struct {
	client *sns.Client
	region string
}

func NewAWSSNSProvider(region string) (*AWSSNSProvider, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSNSProvider{
		client: sns.NewFromConfig(cfg),
		region: region,
	}, nil
}

func (a *AWSSNSProvider) Send(ctx context.Context, message *Message) (*Result, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(message.To),
		Message:     aws.String(message.Body),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}

	resp, err := a.client.Publish(ctx, input)
	if err != nil {
		return &Result{
			Status: "failed",
			Error:  err.Error(),
		}, err
	}

	return &Result{
		MessageID: *resp.MessageId,
		Status:    "sent",
	}, nil
}

func (a *AWSSNSProvider) SendBulk(ctx context.Context, messages []*Message) ([]*Result, error) {
	results := make([]*Result, len(messages))

	for i, m := range messages {
		result, err := a.Send(ctx, m)
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
