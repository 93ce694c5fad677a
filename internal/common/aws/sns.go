// internal/common/aws/sns.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client the portal uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client   *sns.Client
	senderID string
}

func NewSNSClient(ctx context.Context, region, senderID string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg), senderID: senderID}, nil
}

// Publish sends the SMS as transactional and tags it with the configured sender id.
func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if input.PhoneNumber != nil {
		if input.MessageAttributes == nil {
			input.MessageAttributes = map[string]types.MessageAttributeValue{}
		}
		input.MessageAttributes["AWS.SNS.SMS.SMSType"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		}
		if s.senderID != "" {
			input.MessageAttributes["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			}
		}
	}
	return s.client.Publish(ctx, input, optFns...)
}
