package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, email, created_at, updated_at`

// Create inserts a user with an already hashed password.
func (s *UserStore) Create(email, passwordHash string) (*model.User, error) {
	id := uuid.NewString()
	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, normalizeEmail(email), passwordHash, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, normalizeEmail(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// PasswordHash returns the stored hash for the email, or "" with a nil user
// when no account exists.
func (s *UserStore) PasswordHash(email string) (*model.User, string, error) {
	var hash string
	row := s.db.QueryRow(`SELECT `+userCols+`, password_hash FROM users WHERE email = ?`, normalizeEmail(email))
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt, &hash)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("get password hash: %w", err)
	}
	return &u, hash, nil
}

func (s *UserStore) UpdatePassword(id, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, now(), id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileCols = `id, username, display_name, created_at, updated_at`

func scanProfile(s scanner) (*model.Profile, error) {
	var p model.Profile
	err := s.Scan(&p.ID, &p.Username, &p.DisplayName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileStore) Create(userID, username, displayName string) (*model.Profile, error) {
	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO profiles (id, username, display_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		userID, username, displayName, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.Get(userID)
}

func (s *ProfileStore) Get(userID string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Upsert creates the profile if sign-up failed to, otherwise updates it.
func (s *ProfileStore) Upsert(userID, username, displayName string) (*model.Profile, error) {
	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO profiles (id, username, display_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET username = excluded.username, display_name = excluded.display_name, updated_at = excluded.updated_at`,
		userID, username, displayName, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return s.Get(userID)
}
