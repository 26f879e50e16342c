package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/notify"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/push"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/sorting"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

type ChoreService struct {
	scope
	chores *store.ChoreStore
	due    dueArmer
}

// NewChoreService wires chore operations. sched may be nil.
func NewChoreService(chores *store.ChoreStore, families *store.FamilyStore, pushStore *store.PushStore, sched *notify.Scheduler, logger *slog.Logger) *ChoreService {
	sc := newScope(families, logger, "chores")
	return &ChoreService{
		scope:  sc,
		chores: chores,
		due:    dueArmer{scheduler: sched, push: pushStore, logger: sc.logger},
	}
}

// List returns the caller's chores and their family's shared chores, newest
// first with completed chores last. Failures are logged and yield nil.
func (s *ChoreService) List(ctx context.Context) []model.Chore {
	userID, err := caller(ctx)
	if err != nil {
		return nil
	}
	chores, err := s.chores.ListVisible(userID, s.listFamily(ctx, userID, model.FeatureChores))
	if err != nil {
		s.logger.Error("list chores", "user_id", userID, "error", err)
		return nil
	}
	return sorting.Sort(chores, sorting.State{}, sorting.CompletedLast(model.Chore.Completed))
}

func (s *ChoreService) Get(ctx context.Context, id string) (*model.Chore, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.chores.GetVisible(id, userID, s.listFamily(ctx, userID, model.FeatureChores))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *ChoreService) Add(ctx context.Context, in model.NewChore) (*model.Chore, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	familyID, err := s.addFamily(ctx, userID, in.IsPersonal, in.FamilyID, model.FeatureChores)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(in.AssignedTo, userID, familyID); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.ChoreStatusPending
	}
	c, err := s.chores.Create(model.Chore{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Priority:    defaultPriority(in.Priority),
		Status:      status,
		FamilyID:    familyID,
		AssignedTo:  in.AssignedTo,
		UserID:      userID,
	})
	if err != nil {
		return nil, err
	}
	s.arm(c)
	return c, nil
}

func (s *ChoreService) Update(ctx context.Context, id string, p model.ChorePatch) (*model.Chore, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(p); err != nil {
		return nil, err
	}
	if p.AssignedTo != nil && *p.AssignedTo != "" {
		if err := validate.Var(*p.AssignedTo, "uuid"); err != nil {
			return nil, invalid("assigned_to", "must be a valid id")
		}
	}
	if err := s.patchFamily(ctx, userID, p.IsPersonal, &p.FamilyID, model.FeatureChores); err != nil {
		return nil, err
	}
	if p.AssignedTo != nil && *p.AssignedTo != "" && *p.AssignedTo != userID {
		familyID := p.FamilyID
		if familyID == nil && (p.IsPersonal == nil || !*p.IsPersonal) {
			cur, err := s.chores.GetByID(id)
			if err != nil {
				return nil, err
			}
			if cur == nil || cur.UserID != userID {
				return nil, ErrNotFound
			}
			familyID = cur.FamilyID
		}
		if err := s.checkAssignee(p.AssignedTo, userID, familyID); err != nil {
			return nil, err
		}
	}

	c, err := s.chores.Update(id, userID, p)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	s.arm(c)
	return c, nil
}

func (s *ChoreService) Delete(ctx context.Context, id string) error {
	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	ok, err := s.chores.Delete(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.due.cancel(notify.ChoreTag(id))
	return nil
}

// checkAssignee allows assigning to oneself, or to a verified member of the
// chore's family.
func (s *ChoreService) checkAssignee(assignee *string, userID string, familyID *string) error {
	if assignee == nil || *assignee == "" || *assignee == userID {
		return nil
	}
	if familyID == nil {
		return invalid("assigned_to", "must be yourself on a personal chore")
	}
	m, err := s.families.GetMember(*familyID, *assignee)
	if err != nil {
		return fmt.Errorf("get assignee membership: %w", err)
	}
	if m == nil || !m.IsVerified {
		return invalid("assigned_to", "must be a verified member of the family")
	}
	return nil
}

func (s *ChoreService) arm(c *model.Chore) {
	s.due.rearm(push.ChoreNotification(*c), c.DueDate, !c.Completed())
}
