package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(s scanner) (*model.Chore, error) {
	var c model.Chore
	var familyID, assignedTo sql.NullString

	err := s.Scan(
		&c.ID, &c.Title, &c.Description, &c.DueDate, &c.Priority, &c.Status,
		&c.IsPersonal, &familyID, &assignedTo, &c.UserID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.FamilyID = stringPtr(familyID)
	c.AssignedTo = stringPtr(assignedTo)
	return &c, nil
}

const choreCols = `id, title, description, due_date, priority, status, is_personal, family_id, assigned_to, user_id, created_at, updated_at`

func (s *ChoreStore) queryChores(query string, args ...any) ([]model.Chore, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// Create inserts c. ID and timestamps are assigned here; FamilyID decides
// IsPersonal.
func (s *ChoreStore) Create(c model.Chore) (*model.Chore, error) {
	c.ID = uuid.NewString()
	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO chores (`+choreCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Description, c.DueDate.UTC(), c.Priority, c.Status,
		c.FamilyID == nil, nullString(c.FamilyID), nullString(c.AssignedTo), c.UserID, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	return s.GetByID(c.ID)
}

func (s *ChoreStore) GetByID(id string) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// GetVisible returns the chore if userID owns it or it is shared with
// familyID.
func (s *ChoreStore) GetVisible(id, userID, familyID string) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ? AND `+visibleWhere, id, userID, familyID)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// ListVisible returns the user's own chores plus non-personal chores of
// familyID, newest first. An empty familyID matches no family rows.
func (s *ChoreStore) ListVisible(userID, familyID string) ([]model.Chore, error) {
	return s.queryChores(
		`SELECT `+choreCols+` FROM chores WHERE `+visibleWhere+` ORDER BY created_at DESC, rowid DESC`,
		userID, familyID,
	)
}

// ListPendingDueBetween returns pending chores due in [from, to).
func (s *ChoreStore) ListPendingDueBetween(from, to time.Time) ([]model.Chore, error) {
	return s.queryChores(
		`SELECT `+choreCols+` FROM chores WHERE status = 'pending' AND due_date >= ? AND due_date < ? ORDER BY due_date ASC`,
		from.UTC(), to.UTC(),
	)
}

// Update applies p to a chore owned by userID. It returns nil when no such
// chore exists.
func (s *ChoreStore) Update(id, userID string, p model.ChorePatch) (*model.Chore, error) {
	var b updateBuilder
	setIf(&b, "title", p.Title)
	setIf(&b, "description", p.Description)
	if p.DueDate != nil {
		b.set("due_date", p.DueDate.UTC())
	}
	setIf(&b, "priority", p.Priority)
	setIf(&b, "status", p.Status)
	if p.AssignedTo != nil {
		b.set("assigned_to", nullString(p.AssignedTo))
	}
	b.scope(p.IsPersonal, p.FamilyID)

	query, args := b.query("chores", id, userID)
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

// Delete reports whether a chore owned by userID was removed.
func (s *ChoreStore) Delete(id, userID string) (bool, error) {
	return deleteOwned(s.db, "chores", id, userID)
}

func deleteOwned(db *sql.DB, table, id, userID string) (bool, error) {
	result, err := db.Exec(`DELETE FROM `+table+` WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
