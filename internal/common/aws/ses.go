// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"golang.org/x/time/rate"
)

// SESAPI is the subset of the SES client the portal uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESClient throttles SendEmail to the account's sending rate.
type SESClient struct {
	client  SESAPI
	limiter *rate.Limiter
}

func NewSESClient(ctx context.Context, region string, perSecond float64) (*SESClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewThrottledSES(ses.NewFromConfig(cfg), perSecond), nil
}

// NewThrottledSES wraps api with a token bucket of perSecond sends and a burst of one second's worth.
func NewThrottledSES(api SESAPI, perSecond float64) *SESClient {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &SESClient{client: api, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("ses rate limit wait: %w", err)
	}
	return s.client.SendEmail(ctx, input, optFns...)
}
