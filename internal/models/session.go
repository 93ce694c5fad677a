// internal/models/session.go
package models

import "time"

type Role string

const (
	RoleApplicant Role = "applicant"
	RoleAdmin     Role = "admin"
)

// User is the authenticated portal user. Identity is the phone number or email
// the one-time code was sent to.
type User struct {
	ID       string `json:"id"`
	Identity string `json:"identity"`
	Role     Role   `json:"role"`
}

// Session is the server-side record behind a bearer token.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	User         User      `json:"user"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// IsExpired checks if session has expired
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
