package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

func scanReminder(s scanner) (*model.Reminder, error) {
	var r model.Reminder
	var familyID sql.NullString

	err := s.Scan(
		&r.ID, &r.Title, &r.Description, &r.DueDate, &r.Time, &r.Priority, &r.Completed,
		&r.IsPersonal, &familyID, &r.UserID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.FamilyID = stringPtr(familyID)
	return &r, nil
}

const reminderCols = `id, title, description, due_date, time, priority, completed, is_personal, family_id, user_id, created_at, updated_at`

func (s *ReminderStore) queryReminders(query string, args ...any) ([]model.Reminder, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

func (s *ReminderStore) Create(r model.Reminder) (*model.Reminder, error) {
	r.ID = uuid.NewString()
	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO reminders (`+reminderCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Description, r.DueDate.UTC(), r.Time, r.Priority, r.Completed,
		r.FamilyID == nil, nullString(r.FamilyID), r.UserID, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	return s.GetByID(r.ID)
}

func (s *ReminderStore) GetByID(id string) (*model.Reminder, error) {
	row := s.db.QueryRow(`SELECT `+reminderCols+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderStore) GetVisible(id, userID, familyID string) (*model.Reminder, error) {
	row := s.db.QueryRow(`SELECT `+reminderCols+` FROM reminders WHERE id = ? AND `+visibleWhere, id, userID, familyID)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderStore) ListVisible(userID, familyID string) ([]model.Reminder, error) {
	return s.queryReminders(
		`SELECT `+reminderCols+` FROM reminders WHERE `+visibleWhere+` ORDER BY created_at DESC, rowid DESC`,
		userID, familyID,
	)
}

// ListOpenDueBetween returns incomplete reminders whose date falls in
// [from, to). The time of day is applied by the caller.
func (s *ReminderStore) ListOpenDueBetween(from, to time.Time) ([]model.Reminder, error) {
	return s.queryReminders(
		`SELECT `+reminderCols+` FROM reminders WHERE completed = 0 AND due_date >= ? AND due_date < ? ORDER BY due_date ASC`,
		from.UTC(), to.UTC(),
	)
}

func (s *ReminderStore) Update(id, userID string, p model.ReminderPatch) (*model.Reminder, error) {
	var b updateBuilder
	setIf(&b, "title", p.Title)
	setIf(&b, "description", p.Description)
	if p.DueDate != nil {
		b.set("due_date", p.DueDate.UTC())
	}
	setIf(&b, "time", p.Time)
	setIf(&b, "priority", p.Priority)
	setIf(&b, "completed", p.Completed)
	b.scope(p.IsPersonal, p.FamilyID)

	query, args := b.query("reminders", id, userID)
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

func (s *ReminderStore) Delete(id, userID string) (bool, error) {
	return deleteOwned(s.db, "reminders", id, userID)
}
