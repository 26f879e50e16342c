package service

import (
	"log/slog"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/notify"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

// dueArmer keeps scheduled due notifications in step with writes. A nil
// scheduler disables it.
type dueArmer struct {
	scheduler *notify.Scheduler
	push      *store.PushStore
	logger    *slog.Logger
}

// rearm schedules n at at while the item is open and in the future, and
// cancels it otherwise. A moved due time clears the sent record so the
// notification can fire again.
func (a dueArmer) rearm(n notify.Notification, at time.Time, open bool) {
	if a.scheduler == nil {
		return
	}
	if !open || !at.After(time.Now()) {
		a.scheduler.Cancel(n.Tag)
		return
	}
	if a.push != nil {
		if err := a.push.ForgetSent(n.Tag); err != nil {
			a.logger.Warn("forget sent notification", "tag", n.Tag, "error", err)
		}
	}
	a.scheduler.Schedule(n, at)
}

func (a dueArmer) cancel(tag string) {
	if a.scheduler != nil {
		a.scheduler.Cancel(tag)
	}
}
