package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different Postmark-compatible endpoint.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		cl.apiURL = u
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendPasswordReset emails a link to the reset-password page carrying token.
func (c *Client) SendPasswordReset(toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", c.baseURL, url.QueryEscape(token))
	return c.send(postmarkEmail{
		To:       toEmail,
		Subject:  "Reset your Choreo password",
		TextBody: fmt.Sprintf("Open the link below to choose a new password:\n\n%s\n\nThis link expires in 1 hour.", link),
		HtmlBody: fmt.Sprintf(
			`<p>Open the link below to choose a new password:</p><p><a href="%s">Reset password</a></p><p>This link expires in 1 hour.</p>`,
			link,
		),
	})
}

// SendFamilyInvitation tells an existing user they were invited to a family.
func (c *Client) SendFamilyInvitation(toEmail, familyName, inviterEmail string) error {
	link := c.baseURL + "/family"
	return c.send(postmarkEmail{
		To:       toEmail,
		Subject:  fmt.Sprintf("You've been invited to %s on Choreo", familyName),
		TextBody: fmt.Sprintf("%s invited you to join %s.\n\nAccept or decline the invitation here:\n\n%s", inviterEmail, familyName, link),
		HtmlBody: fmt.Sprintf(
			`<p>%s invited you to join <strong>%s</strong>.</p><p><a href="%s">View invitation</a></p>`,
			inviterEmail, familyName, link,
		),
	})
}

func (c *Client) send(msg postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}
	msg.From = c.fromEmail

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
