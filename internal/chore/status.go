package chore

import (
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

// Status classifies an item against the current day.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusDueToday  Status = "due_today"
	StatusUpcoming  Status = "upcoming"
)

// ParseStatus reports whether s names a Status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusCompleted, StatusOverdue, StatusDueToday, StatusUpcoming:
		return st, true
	}
	return "", false
}

// ComputeStatus compares the chore's due day with the day of now, both in
// now's location.
func ComputeStatus(c model.Chore, now time.Time) Status {
	if c.Completed() {
		return StatusCompleted
	}
	return byDay(c.DueDate.In(now.Location()), now)
}

// ReminderStatus uses the reminder's time of day: a reminder earlier today
// is already overdue.
func ReminderStatus(r model.Reminder, now time.Time) Status {
	if r.Completed {
		return StatusCompleted
	}
	at, err := r.DueAt()
	if err != nil {
		return byDay(r.DueDate.In(now.Location()), now)
	}
	if at.Before(now) {
		return StatusOverdue
	}
	return byDay(at.In(now.Location()), now)
}

func byDay(due, now time.Time) Status {
	today := startOfDay(now)
	day := startOfDay(due)
	switch {
	case day.Before(today):
		return StatusOverdue
	case day.Equal(today):
		return StatusDueToday
	default:
		return StatusUpcoming
	}
}

// FilterChores keeps the chores whose status is st.
func FilterChores(chores []model.Chore, st Status, now time.Time) []model.Chore {
	out := make([]model.Chore, 0, len(chores))
	for _, c := range chores {
		if ComputeStatus(c, now) == st {
			out = append(out, c)
		}
	}
	return out
}

// FilterReminders keeps the reminders whose status is st.
func FilterReminders(reminders []model.Reminder, st Status, now time.Time) []model.Reminder {
	out := make([]model.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if ReminderStatus(r, now) == st {
			out = append(out, r)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
