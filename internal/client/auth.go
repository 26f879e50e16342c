package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

// SignUpResult is the outcome of SignUp. ProfileError is set when the
// account was created but its profile could not be saved.
type SignUpResult struct {
	User         *model.User    `json:"user"`
	Session      *model.Session `json:"session"`
	Profile      *model.Profile `json:"profile"`
	ProfileError string         `json:"profile_error,omitempty"`
	SessionError string         `json:"session_error,omitempty"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// SignUp creates an account and stores the new session.
func (c *Client) SignUp(ctx context.Context, email, password, username string) (*SignUpResult, error) {
	var res SignUpResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", credentials{email, password, username}, &res); err != nil {
		return nil, err
	}
	if res.Session == nil {
		return &res, nil
	}
	c.SetSession(res.Session)
	c.emit(model.AuthEvent{Type: model.AuthEventSignedIn, UserID: res.User.ID, SessionID: res.Session.ID, Session: res.Session})
	return &res, nil
}

// SignIn opens a session and stores it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", credentials{Email: email, Password: password}, &sess); err != nil {
		return nil, err
	}
	c.SetSession(&sess)
	c.emit(model.AuthEvent{Type: model.AuthEventSignedIn, UserID: sess.UserID, SessionID: sess.ID, Session: &sess})
	return &sess, nil
}

// Refresh exchanges the stored refresh token for a new session. A rejected
// token clears the stored session.
func (c *Client) Refresh(ctx context.Context) error {
	tok := c.refreshToken()
	if tok == "" {
		return ErrNoSession
	}
	var sess model.Session
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": tok}, &sess)
	if err != nil {
		if StatusCode(err) == http.StatusUnauthorized {
			c.clearSession()
		}
		return err
	}
	c.SetSession(&sess)
	c.logger.Debug("session refreshed", "session_id", sess.ID)
	c.emit(model.AuthEvent{Type: model.AuthEventTokenRefreshed, UserID: sess.UserID, SessionID: sess.ID, Session: &sess})
	return nil
}

// GetSession asks the server for the current session. It returns nil, nil
// when there is no valid session.
func (c *Client) GetSession(ctx context.Context) (*model.Session, error) {
	if c.accessToken() == "" {
		return nil, nil
	}
	var sess model.Session
	err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &sess)
	if StatusCode(err) == http.StatusUnauthorized || errors.Is(err, ErrNoSession) {
		c.clearSession()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// The server never echoes tokens back; keep the ones we hold.
	if cur := c.Session(); cur != nil {
		sess.AccessToken = cur.AccessToken
		sess.RefreshToken = cur.RefreshToken
		sess.ExpiresAt = cur.ExpiresAt
	}
	c.SetSession(&sess)
	return &sess, nil
}

// SignOut ends the session on the server. The local session is cleared
// even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	if c.accessToken() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
	c.clearSession()
	if StatusCode(err) == http.StatusUnauthorized {
		return nil
	}
	return err
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", map[string]string{"email": email}, nil)
}

// UpdatePassword consumes a reset token. All sessions of the user are
// revoked, including any stored here.
func (c *Client) UpdatePassword(ctx context.Context, token, password string) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/update-password", map[string]string{"token": token, "password": password}, nil)
	if err == nil {
		c.clearSession()
	}
	return err
}

func (c *Client) GetProfile(ctx context.Context) (*model.Profile, error) {
	var p model.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProfileUpdate is the body of UpdateProfile.
type ProfileUpdate struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, u ProfileUpdate) (*model.Profile, error) {
	var p model.Profile
	if err := c.do(ctx, http.MethodPut, "/api/profile", u, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
