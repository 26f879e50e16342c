// Package push delivers notifications over Web Push and keeps due
// notifications armed on the scheduler.
package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/notify"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

const (
	defaultSubscriber = "mailto:noreply@choreo.app"
	deliverTimeout    = 30 * time.Second
)

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

// Service handles sending web push notifications.
type Service struct {
	cfg    Config
	client webpush.HTTPClient
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the client used to reach push services.
func WithHTTPClient(c webpush.HTTPClient) Option {
	return func(s *Service) { s.client = c }
}

// NewService creates a push service. Without both VAPID keys it is disabled
// and Send refuses to deliver.
func NewService(cfg Config, opts ...Option) *Service {
	if cfg.Subscriber == "" {
		cfg.Subscriber = defaultSubscriber
	}
	s := &Service{cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	return s
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Enabled reports whether VAPID keys are configured.
func (s *Service) Enabled() bool {
	return s.cfg.VAPIDPublicKey != "" && s.cfg.VAPIDPrivateKey != ""
}

// Send sends a push notification to a subscription.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	if !s.Enabled() {
		return errors.New("push not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      s.cfg.Subscriber,
		TTL:             86400,
		Topic:           topic(payload.Tag),
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// topic maps a tag onto the Topic header, which allows at most 32 URL-safe
// base64 characters. Longer tags are left out.
func topic(tag string) string {
	if len(tag) > 32 {
		return ""
	}
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return ""
		}
	}
	return tag
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pub, err := key.PublicKey.ECDH()
	if err != nil {
		return "", "", fmt.Errorf("convert public key: %w", err)
	}
	publicKey = base64.RawURLEncoding.EncodeToString(pub.Bytes())
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}

// Notifier fans a notification out to every subscription of its user. It
// implements notify.Deliverer.
type Notifier struct {
	service *Service
	push    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(svc *Service, pushStore *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{service: svc, push: pushStore, logger: logger.With("component", "push")}
}

// Permitted reports whether web push is configured.
func (n *Notifier) Permitted() bool {
	return n.service.Enabled()
}

// Deliver sends n to the user's devices unless they turned the type off, and
// records the tag as sent. Expired subscriptions are removed.
func (n *Notifier) Deliver(ctx context.Context, note notify.Notification) error {
	enabled, err := n.push.IsPreferenceEnabled(note.UserID, note.Type)
	if err != nil {
		return fmt.Errorf("check preference: %w", err)
	}
	if !enabled {
		return nil
	}

	subs, err := n.push.ListByUser(note.UserID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	payload := Payload{Title: note.Title, Body: note.Body, URL: note.URL, Tag: note.Tag}
	var errs []error
	for i := range subs {
		sub := &subs[i]
		if err := n.service.Send(ctx, sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				n.logger.Info("removing expired subscription", "subscription_id", sub.ID, "user_id", sub.UserID)
				if err := n.push.DeleteByEndpoint(sub.Endpoint); err != nil {
					errs = append(errs, err)
				}
				continue
			}
			errs = append(errs, err)
		}
	}

	if note.Tag != "" {
		if err := n.push.RecordSent(note.Tag); err != nil {
			errs = append(errs, fmt.Errorf("record sent: %w", err))
		}
	}
	return errors.Join(errs...)
}

// GroceryAdded notifies every recipient that itemName was added to the
// family list. It runs in the background and only logs failures.
func (n *Notifier) GroceryAdded(recipients []string, itemName string) {
	if !n.Permitted() || len(recipients) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()
		for _, userID := range recipients {
			err := n.Deliver(ctx, notify.Notification{
				Type:   model.NotifTypeGroceryAdded,
				UserID: userID,
				Title:  "Grocery List Updated",
				Body:   fmt.Sprintf("%s was added to the grocery list", itemName),
				URL:    "/groceries",
			})
			if err != nil {
				n.logger.Error("send grocery notification", "user_id", userID, "error", err)
			}
		}
	}()
}
