package model

import (
	"fmt"
	"time"
)

// DefaultReminderTime is used when a reminder has a date but no time of day.
const DefaultReminderTime = "09:00"

type Reminder struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"due_date"`
	Time        string    `json:"time,omitempty"`
	Priority    Priority  `json:"priority"`
	Completed   bool      `json:"completed"`
	IsPersonal  bool      `json:"is_personal"`
	FamilyID    *string   `json:"family_id,omitempty"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DueAt combines the reminder's date with its time of day (HH:MM) in the
// date's location.
func (r Reminder) DueAt() (time.Time, error) {
	hm := r.Time
	if hm == "" {
		hm = DefaultReminderTime
	}
	var hour, minute int
	if _, err := fmt.Sscanf(hm, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("parse reminder time %q: %w", hm, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("reminder time %q out of range", hm)
	}
	d := r.DueDate
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location()), nil
}
