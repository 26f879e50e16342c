package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

const defaultExpenseCategory = "other"

type ExpenseService struct {
	scope
	expenses *store.ExpenseStore
}

func NewExpenseService(expenses *store.ExpenseStore, families *store.FamilyStore, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{
		scope:    newScope(families, logger, "expenses"),
		expenses: expenses,
	}
}

func (s *ExpenseService) List(ctx context.Context) []model.Expense {
	userID, err := caller(ctx)
	if err != nil {
		return nil
	}
	expenses, err := s.expenses.ListVisible(userID, s.listFamily(ctx, userID, model.FeatureExpenses))
	if err != nil {
		s.logger.Error("list expenses", "user_id", userID, "error", err)
		return nil
	}
	return expenses
}

func (s *ExpenseService) Get(ctx context.Context, id string) (*model.Expense, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.expenses.GetVisible(id, userID, s.listFamily(ctx, userID, model.FeatureExpenses))
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

// Add stores a new expense. Category defaults to "other" and date to today.
func (s *ExpenseService) Add(ctx context.Context, in model.NewExpense) (*model.Expense, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	familyID, err := s.addFamily(ctx, userID, in.IsPersonal, in.FamilyID, model.FeatureExpenses)
	if err != nil {
		return nil, err
	}

	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		category = defaultExpenseCategory
	}
	date := s.today()
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}
	return s.expenses.Create(model.Expense{
		Title:    in.Title,
		Amount:   in.Amount,
		Category: category,
		Date:     date,
		FamilyID: familyID,
		UserID:   userID,
	})
}

func (s *ExpenseService) Update(ctx context.Context, id string, p model.ExpensePatch) (*model.Expense, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(p); err != nil {
		return nil, err
	}
	if err := s.patchFamily(ctx, userID, p.IsPersonal, &p.FamilyID, model.FeatureExpenses); err != nil {
		return nil, err
	}
	if p.Category != nil {
		cat := strings.ToLower(strings.TrimSpace(*p.Category))
		if cat == "" {
			cat = defaultExpenseCategory
		}
		p.Category = &cat
	}

	e, err := s.expenses.Update(id, userID, p)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	ok, err := s.expenses.Delete(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Summary totals visible expenses dated in [from, to) by category. Zero
// bounds default to the current month. Failures are logged and yield nil.
func (s *ExpenseService) Summary(ctx context.Context, from, to time.Time) []model.CategoryTotal {
	userID, err := caller(ctx)
	if err != nil {
		return nil
	}
	if from.IsZero() {
		t := s.today()
		from = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, 0)
	}
	totals, err := s.expenses.SummaryByCategory(userID, s.listFamily(ctx, userID, model.FeatureExpenses), from, to)
	if err != nil {
		s.logger.Error("summarize expenses", "user_id", userID, "error", err)
		return nil
	}
	return totals
}
