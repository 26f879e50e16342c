package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

// VAPIDKey is the server's application server key for web push.
type VAPIDKey struct {
	PublicKey string `json:"public_key"`
	Enabled   bool   `json:"enabled"`
}

// PushSubscription is the browser's PushSubscription in the shape the
// server stores.
type PushSubscription struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name,omitempty"`
}

// Preference toggles one notification type.
type Preference struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

func (c *Client) VAPIDKey(ctx context.Context) (*VAPIDKey, error) {
	var out VAPIDKey
	if err := c.do(ctx, http.MethodGet, "/api/push/vapid-key", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Subscribe(ctx context.Context, sub PushSubscription) (*model.PushSubscription, error) {
	var out model.PushSubscription
	if err := c.do(ctx, http.MethodPost, "/api/push/subscribe", sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var out []model.PushSubscription
	if err := c.do(ctx, http.MethodGet, "/api/push/subscriptions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Unsubscribe(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/push/subscriptions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Preferences(ctx context.Context) ([]model.NotificationPreference, error) {
	var out []model.NotificationPreference
	if err := c.do(ctx, http.MethodGet, "/api/push/preferences", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetPreferences(ctx context.Context, prefs ...Preference) ([]model.NotificationPreference, error) {
	body := map[string][]Preference{"preferences": prefs}
	var out []model.NotificationPreference
	if err := c.do(ctx, http.MethodPut, "/api/push/preferences", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TestPush sends a test notification to every subscribed device and
// returns how many deliveries succeeded.
func (c *Client) TestPush(ctx context.Context) (int, error) {
	var out struct {
		Sent int `json:"sent"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/push/test", nil, &out); err != nil {
		return 0, err
	}
	return out.Sent, nil
}
