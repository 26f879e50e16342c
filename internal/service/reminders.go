package service

import (
	"context"
	"log/slog"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/notify"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/push"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/sorting"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

type ReminderService struct {
	scope
	reminders *store.ReminderStore
	due       dueArmer
}

// NewReminderService wires reminder operations. sched may be nil.
func NewReminderService(reminders *store.ReminderStore, families *store.FamilyStore, pushStore *store.PushStore, sched *notify.Scheduler, logger *slog.Logger) *ReminderService {
	sc := newScope(families, logger, "reminders")
	return &ReminderService{
		scope:     sc,
		reminders: reminders,
		due:       dueArmer{scheduler: sched, push: pushStore, logger: sc.logger},
	}
}

func (s *ReminderService) List(ctx context.Context) []model.Reminder {
	userID, err := caller(ctx)
	if err != nil {
		return nil
	}
	reminders, err := s.reminders.ListVisible(userID, s.listFamily(ctx, userID, model.FeatureReminders))
	if err != nil {
		s.logger.Error("list reminders", "user_id", userID, "error", err)
		return nil
	}
	return sorting.Sort(reminders, sorting.State{}, sorting.CompletedLast(func(r model.Reminder) bool { return r.Completed }))
}

func (s *ReminderService) Get(ctx context.Context, id string) (*model.Reminder, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	r, err := s.reminders.GetVisible(id, userID, s.listFamily(ctx, userID, model.FeatureReminders))
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *ReminderService) Add(ctx context.Context, in model.NewReminder) (*model.Reminder, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	familyID, err := s.addFamily(ctx, userID, in.IsPersonal, in.FamilyID, model.FeatureReminders)
	if err != nil {
		return nil, err
	}

	r, err := s.reminders.Create(model.Reminder{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Time:        in.Time,
		Priority:    defaultPriority(in.Priority),
		FamilyID:    familyID,
		UserID:      userID,
	})
	if err != nil {
		return nil, err
	}
	s.arm(r)
	return r, nil
}

func (s *ReminderService) Update(ctx context.Context, id string, p model.ReminderPatch) (*model.Reminder, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(p); err != nil {
		return nil, err
	}
	if err := s.patchFamily(ctx, userID, p.IsPersonal, &p.FamilyID, model.FeatureReminders); err != nil {
		return nil, err
	}

	r, err := s.reminders.Update(id, userID, p)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	s.arm(r)
	return r, nil
}

func (s *ReminderService) Delete(ctx context.Context, id string) error {
	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	ok, err := s.reminders.Delete(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.due.cancel(notify.ReminderTag(id))
	return nil
}

func (s *ReminderService) arm(r *model.Reminder) {
	at, err := r.DueAt()
	if err != nil {
		s.logger.Warn("reminder due time", "reminder_id", r.ID, "error", err)
		return
	}
	s.due.rearm(push.ReminderNotification(*r), at, !r.Completed)
}
