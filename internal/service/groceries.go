package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/grocery"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/sorting"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

// GroceryNotifier tells family members about new shared items.
type GroceryNotifier interface {
	GroceryAdded(recipients []string, itemName string)
}

type GroceryService struct {
	scope
	items    *store.GroceryStore
	notifier GroceryNotifier
}

// NewGroceryService wires grocery operations. notifier may be nil.
func NewGroceryService(items *store.GroceryStore, families *store.FamilyStore, notifier GroceryNotifier, logger *slog.Logger) *GroceryService {
	return &GroceryService{
		scope:    newScope(families, logger, "groceries"),
		items:    items,
		notifier: notifier,
	}
}

func (s *GroceryService) List(ctx context.Context) []model.GroceryItem {
	userID, err := caller(ctx)
	if err != nil {
		return nil
	}
	items, err := s.items.ListVisible(userID, s.listFamily(ctx, userID, model.FeatureGroceries))
	if err != nil {
		s.logger.Error("list grocery items", "user_id", userID, "error", err)
		return nil
	}
	return sorting.Sort(items, sorting.State{}, sorting.CompletedLast(func(i model.GroceryItem) bool { return i.Completed }))
}

func (s *GroceryService) Get(ctx context.Context, id string) (*model.GroceryItem, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetVisible(id, userID, s.listFamily(ctx, userID, model.FeatureGroceries))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// Add stores a new item. The quantity defaults to "1" and a blank category
// is derived from the name.
func (s *GroceryService) Add(ctx context.Context, in model.NewGroceryItem) (*model.GroceryItem, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	familyID, err := s.addFamily(ctx, userID, in.IsPersonal, in.FamilyID, model.FeatureGroceries)
	if err != nil {
		return nil, err
	}

	quantity := strings.TrimSpace(in.Quantity)
	if quantity == "" {
		quantity = "1"
	}
	item, err := s.items.CreateItem(model.GroceryItem{
		Name:      in.Name,
		Quantity:  quantity,
		Category:  grocery.Resolve(in.Name, in.Category),
		Completed: in.Completed,
		FamilyID:  familyID,
		UserID:    userID,
	})
	if err != nil {
		return nil, err
	}
	if familyID != nil {
		s.notifyFamily(*familyID, userID, item.Name)
	}
	return item, nil
}

func (s *GroceryService) notifyFamily(familyID, exclude, name string) {
	if s.notifier == nil {
		return
	}
	ids, err := s.families.VerifiedUserIDs(familyID)
	if err != nil {
		s.logger.Error("list family members for notification", "family_id", familyID, "error", err)
		return
	}
	recipients := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			recipients = append(recipients, id)
		}
	}
	s.notifier.GroceryAdded(recipients, name)
}

func (s *GroceryService) Update(ctx context.Context, id string, p model.GroceryItemPatch) (*model.GroceryItem, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(p); err != nil {
		return nil, err
	}
	if err := s.patchFamily(ctx, userID, p.IsPersonal, &p.FamilyID, model.FeatureGroceries); err != nil {
		return nil, err
	}
	if p.Category != nil {
		name := ""
		if p.Name != nil {
			name = *p.Name
		}
		cat := grocery.Resolve(name, *p.Category)
		p.Category = &cat
	} else if p.Name != nil {
		// A renamed item is re-categorised from its new name.
		cat := grocery.Categorize(*p.Name)
		p.Category = &cat
	}

	item, err := s.items.UpdateItem(id, userID, p)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s *GroceryService) Delete(ctx context.Context, id string) error {
	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	ok, err := s.items.DeleteItem(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ClearCompleted deletes the caller's completed items and returns how many
// were removed.
func (s *GroceryService) ClearCompleted(ctx context.Context) (int64, error) {
	userID, err := caller(ctx)
	if err != nil {
		return 0, err
	}
	return s.items.ClearCompleted(userID)
}
