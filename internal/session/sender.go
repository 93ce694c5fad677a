// internal/session/sender.go
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	commonaws "agritour-certification/internal/common/aws"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/validation"
)

// AWSCodeSender mails codes to email identities and texts them to phone numbers.
// A nil client for a channel logs the code instead, which is how local
// development runs without AWS.
type AWSCodeSender struct {
	ses       commonaws.SESAPI
	sns       commonaws.SNSAPI
	fromEmail string
	logger    logger.Logger
}

func NewAWSCodeSender(sesClient commonaws.SESAPI, snsClient commonaws.SNSAPI, fromEmail string, log logger.Logger) *AWSCodeSender {
	return &AWSCodeSender{
		ses:       sesClient,
		sns:       snsClient,
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"component": "otp-sender"}),
	}
}

func (s *AWSCodeSender) SendCode(ctx context.Context, identity, code string) error {
	message := fmt.Sprintf("Your certification portal login code is %s. It expires in 5 minutes.", code)

	if strings.Contains(identity, "@") {
		if s.ses == nil {
			s.logger.Info("Email channel disabled, login code logged", map[string]interface{}{"identity": identity, "code": code})
			return nil
		}
		_, err := s.ses.SendEmail(ctx, &ses.SendEmailInput{
			Destination: &types.Destination{ToAddresses: []string{identity}},
			Message: &types.Message{
				Subject: &types.Content{Data: aws.String("Your login code")},
				Body:    &types.Body{Text: &types.Content{Data: aws.String(message)}},
			},
			Source: aws.String(s.fromEmail),
		})
		return err
	}

	if s.sns == nil {
		s.logger.Info("SMS channel disabled, login code logged", map[string]interface{}{"identity": identity, "code": code})
		return nil
	}
	_, err := s.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(validation.ToE164(identity)),
		Message:     aws.String(message),
	})
	return err
}
