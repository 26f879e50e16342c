package model

import "time"

type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	User         *User     `json:"user,omitempty"`
}

// PasswordReset is a single-use token issued by a password reset request.
type PasswordReset struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type AuthEventType string

const (
	AuthEventSignedIn         AuthEventType = "SIGNED_IN"
	AuthEventSignedOut        AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed   AuthEventType = "TOKEN_REFRESHED"
	AuthEventPasswordRecovery AuthEventType = "PASSWORD_RECOVERY"
	AuthEventUserUpdated      AuthEventType = "USER_UPDATED"
)

// AuthEvent is pushed to subscribers whenever a user's auth state changes.
// Session is nil for SIGNED_OUT. SessionID names the affected session; it is
// empty when the change applies to every session of the user.
type AuthEvent struct {
	Type      AuthEventType `json:"type"`
	UserID    string        `json:"user_id"`
	SessionID string        `json:"session_id,omitempty"`
	Session   *Session      `json:"session,omitempty"`
}
