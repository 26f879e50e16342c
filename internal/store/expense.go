package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

type ExpenseStore struct {
	db *sql.DB
}

func NewExpenseStore(db *sql.DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

func scanExpense(s scanner) (*model.Expense, error) {
	var e model.Expense
	var familyID sql.NullString

	err := s.Scan(
		&e.ID, &e.Title, &e.Amount, &e.Category, &e.Date,
		&e.IsPersonal, &familyID, &e.UserID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.FamilyID = stringPtr(familyID)
	return &e, nil
}

const expenseCols = `id, title, amount_cents, category, date, is_personal, family_id, user_id, created_at, updated_at`

func (s *ExpenseStore) Create(e model.Expense) (*model.Expense, error) {
	e.ID = uuid.NewString()
	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO expenses (`+expenseCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Amount, e.Category, e.Date.UTC(),
		e.FamilyID == nil, nullString(e.FamilyID), e.UserID, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	return s.GetByID(e.ID)
}

func (s *ExpenseStore) GetByID(id string) (*model.Expense, error) {
	row := s.db.QueryRow(`SELECT `+expenseCols+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (s *ExpenseStore) GetVisible(id, userID, familyID string) (*model.Expense, error) {
	row := s.db.QueryRow(`SELECT `+expenseCols+` FROM expenses WHERE id = ? AND `+visibleWhere, id, userID, familyID)
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (s *ExpenseStore) ListVisible(userID, familyID string) ([]model.Expense, error) {
	rows, err := s.db.Query(
		`SELECT `+expenseCols+` FROM expenses WHERE `+visibleWhere+` ORDER BY created_at DESC, rowid DESC`,
		userID, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// SummaryByCategory totals visible expenses dated in [from, to).
func (s *ExpenseStore) SummaryByCategory(userID, familyID string, from, to time.Time) ([]model.CategoryTotal, error) {
	rows, err := s.db.Query(
		`SELECT category, SUM(amount_cents), COUNT(*) FROM expenses
		 WHERE `+visibleWhere+` AND date >= ? AND date < ?
		 GROUP BY category ORDER BY SUM(amount_cents) DESC, category ASC`,
		userID, familyID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("summarize expenses: %w", err)
	}
	defer rows.Close()

	var totals []model.CategoryTotal
	for rows.Next() {
		var t model.CategoryTotal
		if err := rows.Scan(&t.Category, &t.Total, &t.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (s *ExpenseStore) Update(id, userID string, p model.ExpensePatch) (*model.Expense, error) {
	var b updateBuilder
	setIf(&b, "title", p.Title)
	setIf(&b, "amount_cents", p.Amount)
	setIf(&b, "category", p.Category)
	if p.Date != nil {
		b.set("date", p.Date.UTC())
	}
	b.scope(p.IsPersonal, p.FamilyID)

	query, args := b.query("expenses", id, userID)
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

func (s *ExpenseStore) Delete(id, userID string) (bool, error) {
	return deleteOwned(s.db, "expenses", id, userID)
}
