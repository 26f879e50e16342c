package chore

import (
	"testing"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

var now = time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		name   string
		due    time.Time
		status model.ChoreStatus
		want   Status
	}{
		{"yesterday", time.Date(2026, 2, 4, 18, 0, 0, 0, time.UTC), model.ChoreStatusPending, StatusOverdue},
		{"earlier today", time.Date(2026, 2, 5, 8, 0, 0, 0, time.UTC), model.ChoreStatusPending, StatusDueToday},
		{"later today", time.Date(2026, 2, 5, 23, 0, 0, 0, time.UTC), model.ChoreStatusPending, StatusDueToday},
		{"tomorrow", time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC), model.ChoreStatusPending, StatusUpcoming},
		{"completed overdue", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), model.ChoreStatusCompleted, StatusCompleted},
	}
	for _, tt := range tests {
		c := model.Chore{Title: tt.name, DueDate: tt.due, Status: tt.status}
		if got := ComputeStatus(c, now); got != tt.want {
			t.Errorf("%s: status = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestComputeStatusUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	local := time.Date(2026, 2, 5, 10, 0, 0, 0, loc)
	// 02:00 UTC on the 6th is still the 5th in UTC-8.
	c := model.Chore{DueDate: time.Date(2026, 2, 6, 2, 0, 0, 0, time.UTC), Status: model.ChoreStatusPending}

	if got := ComputeStatus(c, local); got != StatusDueToday {
		t.Errorf("status = %q, want %q", got, StatusDueToday)
	}
}

func TestReminderStatus(t *testing.T) {
	day := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		r    model.Reminder
		want Status
	}{
		{"passed this morning", model.Reminder{DueDate: day, Time: "09:00"}, StatusOverdue},
		{"this evening", model.Reminder{DueDate: day, Time: "18:30"}, StatusDueToday},
		{"default time passed", model.Reminder{DueDate: day}, StatusOverdue},
		{"next week", model.Reminder{DueDate: day.AddDate(0, 0, 7)}, StatusUpcoming},
		{"done", model.Reminder{DueDate: day, Completed: true}, StatusCompleted},
	}
	for _, tt := range tests {
		if got := ReminderStatus(tt.r, now); got != tt.want {
			t.Errorf("%s: status = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFilterChores(t *testing.T) {
	chores := []model.Chore{
		{ID: "a", DueDate: now.AddDate(0, 0, -2), Status: model.ChoreStatusPending},
		{ID: "b", DueDate: now, Status: model.ChoreStatusPending},
		{ID: "c", DueDate: now.AddDate(0, 0, -3), Status: model.ChoreStatusPending},
	}
	got := FilterChores(chores, StatusOverdue, now)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("overdue = %+v, want [a c]", got)
	}
}

func TestParseStatus(t *testing.T) {
	if st, ok := ParseStatus("due_today"); !ok || st != StatusDueToday {
		t.Errorf("ParseStatus(due_today) = %q, %v", st, ok)
	}
	if _, ok := ParseStatus("soon"); ok {
		t.Error("expected unknown status to be rejected")
	}
}
