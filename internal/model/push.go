package model

import "time"

// Notification type constants
const (
	NotifTypeChoreDue     = "chore_due"
	NotifTypeReminderDue  = "reminder_due"
	NotifTypeGroceryAdded = "grocery_added"
)

// NotificationTypes lists every type a user can toggle.
var NotificationTypes = []string{NotifTypeChoreDue, NotifTypeReminderDue, NotifTypeGroceryAdded}

type PushSubscription struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationPreference is one notification type's toggle. UpdatedAt is nil
// for a type the user never changed.
type NotificationPreference struct {
	UserID           string     `json:"user_id"`
	NotificationType string     `json:"notification_type"`
	Enabled          bool       `json:"enabled"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}
