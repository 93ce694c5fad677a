// internal/workers/application/send-notification/handler.go
package sendnotification

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	commonaws "agritour-certification/internal/common/aws"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/validation"
)

const (
	TaskType = "send-notification"
)

var (
	ErrNotificationSendFailed = stderrors.New("NOTIFICATION_SEND_FAILED")
	ErrUnknownNotification    = stderrors.New("UNKNOWN_NOTIFICATION_TYPE")
	ErrRecipientNotFound      = stderrors.New("RECIPIENT_NOT_FOUND")
)

type Handler struct {
	config    *Config
	db        *sql.DB
	sesClient commonaws.SESAPI
	snsClient commonaws.SNSAPI
	logger    logger.Logger
	now       func() time.Time
}

// NewHandler builds the handler. A nil SES or SNS client turns that channel off.
func NewHandler(config *Config, db *sql.DB, sesClient commonaws.SESAPI, snsClient commonaws.SNSAPI, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		db:        db,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:       time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "NOTIFICATION_SEND_FAILED"
		retries := int32(0)
		switch {
		case stderrors.Is(err, ErrNotificationSendFailed):
			retries = 3
		case stderrors.Is(err, ErrUnknownNotification):
			errorCode = "UNKNOWN_NOTIFICATION_TYPE"
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	tmpl, ok := templates[input.NotificationType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNotification, input.NotificationType)
	}

	data := h.templateData(input)
	recipients, err := h.recipients(ctx, input, data)
	if err != nil {
		h.logger.Warn("recipient not found", map[string]interface{}{
			"applicationId":    input.ApplicationID,
			"notificationType": input.NotificationType,
			"error":            err.Error(),
		})
		return h.output(StatusDisabled, nil), nil
	}

	subject := render(tmpl.Subject, data)
	body := render(tmpl.Body, data)
	htmlBody := ""
	if tmpl.HTMLBody != "" {
		htmlBody = render(tmpl.HTMLBody, data)
	}

	var (
		attempted int
		channels  []string
		lastErr   error
	)
	for _, r := range recipients {
		if r.Email != "" && h.config.EmailEnabled && h.sesClient != nil {
			attempted++
			if err := h.sendEmail(ctx, r.Email, subject, body, htmlBody); err != nil {
				lastErr = err
				h.logger.Error("email send failed", map[string]interface{}{"error": err, "email": r.Email})
			} else {
				channels = appendOnce(channels, ChannelEmail)
			}
		}
		if r.Phone != "" && h.config.SMSEnabled && h.snsClient != nil {
			attempted++
			if err := h.sendSMS(ctx, r.Phone, subject); err != nil {
				lastErr = err
				h.logger.Error("SMS send failed", map[string]interface{}{"error": err, "phone": r.Phone})
			} else {
				channels = appendOnce(channels, ChannelSMS)
			}
		}
	}

	switch {
	case attempted == 0:
		h.logger.Info("no channel enabled for notification", map[string]interface{}{
			"notificationType": input.NotificationType,
		})
		return h.output(StatusDisabled, nil), nil
	case len(channels) == 0:
		return nil, fmt.Errorf("%w: %v", ErrNotificationSendFailed, lastErr)
	}

	h.logger.Info("notification sent", map[string]interface{}{
		"applicationId":    input.ApplicationID,
		"notificationType": input.NotificationType,
		"channels":         channels,
		"recipients":       len(recipients),
	})
	return h.output(StatusSent, channels), nil
}

func (h *Handler) templateData(input *Input) map[string]interface{} {
	data := map[string]interface{}{
		"applicationId": input.ApplicationID,
		"priority":      input.Priority,
		"reviewerQueue": input.ReviewerQueue,
		"totalScore":    input.TotalScore,
		"decision":      input.Decision,
		"note":          input.DecisionNote,
		"portalUrl":     h.config.PortalURL,
	}
	if input.FormData != nil {
		info := input.FormData.BasicInfo
		data["farmName"] = info.FarmName
		data["ownerName"] = info.OwnerName
		data["category"] = string(info.Category)
	}
	for k, v := range input.Metadata {
		data[k] = v
	}
	return data
}

// recipients resolves who gets the message. Applicant contact details come from
// the submitted form or, failing that, the application row.
func (h *Handler) recipients(ctx context.Context, input *Input, data map[string]interface{}) ([]contact, error) {
	if input.NotificationType == TypeNewApplication {
		if len(input.Reviewers) == 0 {
			return nil, fmt.Errorf("%w: queue %q has no reviewers", ErrRecipientNotFound, input.ReviewerQueue)
		}
		out := make([]contact, 0, len(input.Reviewers))
		for _, email := range input.Reviewers {
			out = append(out, contact{Email: email})
		}
		return out, nil
	}

	var c contact
	if input.FormData != nil {
		c.Email = input.FormData.BasicInfo.Email
		c.Phone = input.FormData.BasicInfo.Phone
	} else {
		var farmName, ownerName string
		err := h.db.QueryRowContext(ctx, `
			SELECT email, phone, farm_name, owner_name
			FROM applications
			WHERE id = $1`, input.ApplicationID).Scan(&c.Email, &c.Phone, &farmName, &ownerName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRecipientNotFound, err)
		}
		data["farmName"] = farmName
		data["ownerName"] = ownerName
	}
	if c.Phone != "" {
		c.Phone = validation.ToE164(c.Phone)
	}
	return []contact{c}, nil
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body, htmlBody string) error {
	content := &types.Body{Text: &types.Content{Data: aws.String(body)}}
	if htmlBody != "" {
		content.Html = &types.Content{Data: aws.String(htmlBody)}
	}
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body:    content,
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

func (h *Handler) output(status string, channels []string) *Output {
	if channels == nil {
		channels = []string{}
	}
	return &Output{
		NotificationID: uuid.NewString(),
		Status:         status,
		Channels:       channels,
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}
}

func appendOnce(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}
