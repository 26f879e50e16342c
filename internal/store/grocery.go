package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

type GroceryStore struct {
	db *sql.DB
}

func NewGroceryStore(db *sql.DB) *GroceryStore {
	return &GroceryStore{db: db}
}

func scanItem(s scanner) (*model.GroceryItem, error) {
	var item model.GroceryItem
	var familyID sql.NullString

	err := s.Scan(
		&item.ID, &item.Name, &item.Quantity, &item.Category, &item.Completed,
		&item.IsPersonal, &familyID, &item.UserID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.FamilyID = stringPtr(familyID)
	return &item, nil
}

const itemCols = `id, name, quantity, category, completed, is_personal, family_id, user_id, created_at, updated_at`

func (s *GroceryStore) CreateItem(item model.GroceryItem) (*model.GroceryItem, error) {
	item.ID = uuid.NewString()
	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO grocery_items (`+itemCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Quantity, item.Category, item.Completed,
		item.FamilyID == nil, nullString(item.FamilyID), item.UserID, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert grocery item: %w", err)
	}
	return s.GetItemByID(item.ID)
}

func (s *GroceryStore) GetItemByID(id string) (*model.GroceryItem, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM grocery_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grocery item: %w", err)
	}
	return item, nil
}

func (s *GroceryStore) GetVisible(id, userID, familyID string) (*model.GroceryItem, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM grocery_items WHERE id = ? AND `+visibleWhere, id, userID, familyID)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grocery item: %w", err)
	}
	return item, nil
}

func (s *GroceryStore) ListVisible(userID, familyID string) ([]model.GroceryItem, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM grocery_items WHERE `+visibleWhere+` ORDER BY created_at DESC, rowid DESC`,
		userID, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list grocery items: %w", err)
	}
	defer rows.Close()

	var items []model.GroceryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grocery item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *GroceryStore) UpdateItem(id, userID string, p model.GroceryItemPatch) (*model.GroceryItem, error) {
	var b updateBuilder
	setIf(&b, "name", p.Name)
	setIf(&b, "quantity", p.Quantity)
	setIf(&b, "category", p.Category)
	setIf(&b, "completed", p.Completed)
	b.scope(p.IsPersonal, p.FamilyID)

	query, args := b.query("grocery_items", id, userID)
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("update grocery item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetItemByID(id)
}

func (s *GroceryStore) DeleteItem(id, userID string) (bool, error) {
	return deleteOwned(s.db, "grocery_items", id, userID)
}

// ClearCompleted removes every completed item owned by userID.
func (s *GroceryStore) ClearCompleted(userID string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM grocery_items WHERE user_id = ? AND completed = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
