package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/notify"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

// Watcher periodically arms due notifications for chores and reminders that
// fall inside the look-ahead window. Scheduler timers live in memory, so this
// is what brings them back after a restart.
type Watcher struct {
	mu        sync.RWMutex
	scheduler *notify.Scheduler
	push      *store.PushStore
	chores    *store.ChoreStore
	reminders *store.ReminderStore
	logger    *slog.Logger
	interval  time.Duration
	lookahead time.Duration
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWatcher creates a due watcher. Zero durations fall back to one minute
// and one hour.
func NewWatcher(sched *notify.Scheduler, pushStore *store.PushStore, choreStore *store.ChoreStore, reminderStore *store.ReminderStore, interval, lookahead time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	if lookahead <= 0 {
		lookahead = time.Hour
	}
	return &Watcher{
		scheduler: sched,
		push:      pushStore,
		chores:    choreStore,
		reminders: reminderStore,
		logger:    logger.With("component", "due_watcher"),
		interval:  interval,
		lookahead: lookahead,
		now:       time.Now,
	}
}

// Start runs one pass immediately and then one per interval until ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.mu.Unlock()

	go func() {
		defer close(w.done)
		w.Tick()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Tick()
			}
		}
	}()
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() {
	w.mu.RLock()
	cancel := w.cancel
	done := w.done
	w.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick arms everything due within the window and returns how many
// notifications were armed.
func (w *Watcher) Tick() int {
	if !w.scheduler.Permitted() {
		return 0
	}
	now := w.now()
	end := now.Add(w.lookahead)
	return w.armChores(now, end) + w.armReminders(now, end)
}

func (w *Watcher) armChores(from, to time.Time) int {
	chores, err := w.chores.ListPendingDueBetween(from, to)
	if err != nil {
		w.logger.Error("list due chores", "error", err)
		return 0
	}
	armed := 0
	for _, c := range chores {
		if w.arm(ChoreNotification(c), c.DueDate) {
			armed++
		}
	}
	return armed
}

func (w *Watcher) armReminders(from, to time.Time) int {
	// A reminder's date is stored at midnight; widen the query by a day and
	// filter on the combined date and time.
	reminders, err := w.reminders.ListOpenDueBetween(from.Add(-24*time.Hour), to)
	if err != nil {
		w.logger.Error("list due reminders", "error", err)
		return 0
	}
	armed := 0
	for _, r := range reminders {
		at, err := r.DueAt()
		if err != nil {
			w.logger.Warn("skip reminder", "reminder_id", r.ID, "error", err)
			continue
		}
		if at.Before(from) || !at.Before(to) {
			continue
		}
		if w.arm(ReminderNotification(r), at) {
			armed++
		}
	}
	return armed
}

func (w *Watcher) arm(n notify.Notification, at time.Time) bool {
	sent, err := w.push.WasSent(n.Tag)
	if err != nil {
		w.logger.Error("check sent", "tag", n.Tag, "error", err)
		return false
	}
	if sent {
		return false
	}
	return w.scheduler.Schedule(n, at)
}

// ChoreNotification builds the due notification for c. It goes to the
// assignee when there is one, else to the owner.
func ChoreNotification(c model.Chore) notify.Notification {
	to := c.UserID
	if c.AssignedTo != nil && *c.AssignedTo != "" {
		to = *c.AssignedTo
	}
	return notify.Notification{
		Tag:    notify.ChoreTag(c.ID),
		Type:   model.NotifTypeChoreDue,
		UserID: to,
		Title:  "Chore due",
		Body:   fmt.Sprintf("%s is due now", c.Title),
		URL:    "/chores",
	}
}

func ReminderNotification(r model.Reminder) notify.Notification {
	body := r.Title
	if r.Description != "" {
		body = fmt.Sprintf("%s: %s", r.Title, r.Description)
	}
	return notify.Notification{
		Tag:    notify.ReminderTag(r.ID),
		Type:   model.NotifTypeReminderDue,
		UserID: r.UserID,
		Title:  "Reminder",
		Body:   body,
		URL:    "/reminders",
	}
}
