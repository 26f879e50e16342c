package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/chore"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/service"
)

type ReminderHandler struct {
	crud[model.Reminder, model.NewReminder, model.ReminderPatch]
}

func NewReminderHandler(svc *service.ReminderService, pub Publisher, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{crud[model.Reminder, model.NewReminder, model.ReminderPatch]{
		entity: "reminders",
		svc:    svc,
		meta: func(rem *model.Reminder) (string, string, *string) {
			return rem.ID, rem.UserID, rem.FamilyID
		},
		deprecated: []string{"reminder_minutes"},
		sortOpts: completedLast(
			func(rem model.Reminder) bool { return rem.Completed },
			func(rem model.Reminder) model.Priority { return rem.Priority },
		),
		filter: func(r *http.Request, items []model.Reminder) ([]model.Reminder, error) {
			st, ok, err := statusParam(r)
			if !ok || err != nil {
				return items, err
			}
			return chore.FilterReminders(items, st, time.Now()), nil
		},
		pub:    pub,
		logger: logger,
	}}
}
