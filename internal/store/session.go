package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

// SessionStore persists refresh sessions. Only the SHA-256 of a refresh
// token is stored.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionCols = `id, user_id, expires_at, created_at`

func scanSession(s scanner) (*model.Session, error) {
	var sess model.Session
	err := s.Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) Create(userID, refreshHash string, expiresAt time.Time) (*model.Session, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, user_id, refresh_token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, refreshHash, expiresAt.UTC(), now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetByID returns the session if it exists and has not expired.
func (s *SessionStore) GetByID(id string) (*model.Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE id = ? AND expires_at > ?`, id, now())
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) GetByRefreshHash(hash string) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionCols+` FROM sessions WHERE refresh_token_hash = ? AND expires_at > ?`,
		hash, now(),
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by refresh token: %w", err)
	}
	return sess, nil
}

// Rotate swaps the refresh token of a session. It reports false when oldHash
// no longer matches, so a refresh token can be used once.
func (s *SessionStore) Rotate(id, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE sessions SET refresh_token_hash = ?, expires_at = ?, refreshed_at = ? WHERE id = ? AND refresh_token_hash = ?`,
		newHash, expiresAt.UTC(), now(), id, oldHash,
	)
	if err != nil {
		return false, fmt.Errorf("rotate session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SessionStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteByUser(userID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

type PasswordResetStore struct {
	db *sql.DB
}

func NewPasswordResetStore(db *sql.DB) *PasswordResetStore {
	return &PasswordResetStore{db: db}
}

const passwordResetCols = `id, user_id, token_hash, expires_at, used_at, created_at`

func scanPasswordReset(s scanner) (*model.PasswordReset, error) {
	var pr model.PasswordReset
	var usedAt sql.NullTime
	err := s.Scan(&pr.ID, &pr.UserID, &pr.TokenHash, &pr.ExpiresAt, &usedAt, &pr.CreatedAt)
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		pr.UsedAt = &usedAt.Time
	}
	return &pr, nil
}

// Create issues a reset token and invalidates any earlier unused ones for the
// same user.
func (s *PasswordResetStore) Create(userID, tokenHash string, expiresAt time.Time) (*model.PasswordReset, error) {
	ts := now()
	_, err := s.db.Exec(
		`UPDATE password_resets SET used_at = ? WHERE user_id = ? AND used_at IS NULL`,
		ts, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous resets: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO password_resets (id, user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, tokenHash, expiresAt.UTC(), ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert password reset: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+passwordResetCols+` FROM password_resets WHERE id = ?`, id)
	return scanPasswordReset(row)
}

// GetValid returns an unexpired, unused reset for the token hash, or nil.
func (s *PasswordResetStore) GetValid(tokenHash string) (*model.PasswordReset, error) {
	row := s.db.QueryRow(
		`SELECT `+passwordResetCols+` FROM password_resets WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?`,
		tokenHash, now(),
	)
	pr, err := scanPasswordReset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get password reset: %w", err)
	}
	return pr, nil
}

// MarkUsed reports false if the reset was already consumed.
func (s *PasswordResetStore) MarkUsed(id string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		now(), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark password reset used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *PasswordResetStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM password_resets WHERE expires_at <= ?`, now())
	if err != nil {
		return 0, fmt.Errorf("delete expired password resets: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
