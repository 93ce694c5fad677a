// internal/models/notification.go
package models

// NotificationTemplate is one message in {{key}} placeholder form. SMS uses Body
// only; HTMLBody is optional.
type NotificationTemplate struct {
	Type     string `json:"type"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"htmlBody,omitempty"`
}
