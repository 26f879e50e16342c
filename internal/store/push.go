package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const subscriptionCols = `id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanSubscription(s scanner) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription registers a browser endpoint for the user. Re-registering
// an endpoint refreshes its keys and moves it to the new user.
func (s *PushStore) CreateSubscription(userID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET user_id = excluded.user_id, p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key, device_name = excluded.device_name`,
		uuid.NewString(), userID, endpoint, p256dh, auth, deviceName, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	return s.getByEndpoint(endpoint)
}

func (s *PushStore) getByEndpoint(endpoint string) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription by endpoint: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByUser(userID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by user: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// CountAll reports how many subscriptions exist across all users.
func (s *PushStore) CountAll() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM push_subscriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count push subscriptions: %w", err)
	}
	return n, nil
}

// DeleteSubscription removes a subscription owned by userID.
func (s *PushStore) DeleteSubscription(id, userID string) (bool, error) {
	return deleteOwned(s.db, "push_subscriptions", id, userID)
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

// GetPreferences returns one preference per notification type, filling in
// the enabled default for types the user never changed.
func (s *PushStore) GetPreferences(userID string) ([]model.NotificationPreference, error) {
	rows, err := s.db.Query(
		`SELECT user_id, notification_type, enabled, updated_at
		 FROM notification_preferences WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get notification preferences: %w", err)
	}
	defer rows.Close()

	stored := make(map[string]model.NotificationPreference)
	for rows.Next() {
		var (
			p         model.NotificationPreference
			updatedAt time.Time
		)
		if err := rows.Scan(&p.UserID, &p.NotificationType, &p.Enabled, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan notification preference: %w", err)
		}
		p.UpdatedAt = &updatedAt
		stored[p.NotificationType] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prefs := make([]model.NotificationPreference, 0, len(model.NotificationTypes))
	for _, typ := range model.NotificationTypes {
		p, ok := stored[typ]
		if !ok {
			p = model.NotificationPreference{UserID: userID, NotificationType: typ, Enabled: true}
		}
		prefs = append(prefs, p)
	}
	return prefs, nil
}

// SetPreference upserts a notification preference.
func (s *PushStore) SetPreference(userID, notifType string, enabled bool) error {
	_, err := s.db.Exec(
		`INSERT INTO notification_preferences (user_id, notification_type, enabled, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, notification_type) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at`,
		userID, notifType, enabled, now(),
	)
	if err != nil {
		return fmt.Errorf("set notification preference: %w", err)
	}
	return nil
}

// IsPreferenceEnabled returns true by default if no preference record exists.
func (s *PushStore) IsPreferenceEnabled(userID, notifType string) (bool, error) {
	var enabled bool
	err := s.db.QueryRow(
		`SELECT enabled FROM notification_preferences WHERE user_id = ? AND notification_type = ?`,
		userID, notifType,
	).Scan(&enabled)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check notification preference: %w", err)
	}
	return enabled, nil
}

// RecordSent marks a notification tag as delivered.
func (s *PushStore) RecordSent(tag string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO sent_notifications (tag, sent_at) VALUES (?, ?)`, tag, now())
	if err != nil {
		return fmt.Errorf("record sent notification: %w", err)
	}
	return nil
}

func (s *PushStore) WasSent(tag string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sent_notifications WHERE tag = ?`, tag).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sent notification: %w", err)
	}
	return count > 0, nil
}

// ForgetSent clears a tag so a rescheduled item can notify again.
func (s *PushStore) ForgetSent(tag string) error {
	_, err := s.db.Exec(`DELETE FROM sent_notifications WHERE tag = ?`, tag)
	if err != nil {
		return fmt.Errorf("forget sent notification: %w", err)
	}
	return nil
}

// CleanupSent deletes sent_notifications older than the given time.
func (s *PushStore) CleanupSent(before time.Time) error {
	_, err := s.db.Exec(`DELETE FROM sent_notifications WHERE sent_at < ?`, before.UTC())
	if err != nil {
		return fmt.Errorf("cleanup sent notifications: %w", err)
	}
	return nil
}
