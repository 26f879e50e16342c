package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

var ErrMemberExists = errors.New("user is already a member or invited")

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

const familyCols = `f.id, f.name, f.created_by, f.created_at, f.updated_at`

func scanFamily(s scanner) (*model.Family, error) {
	var f model.Family
	err := s.Scan(&f.ID, &f.Name, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

const memberCols = `m.id, m.family_id, m.user_id, m.email, m.role, m.display_name, m.is_verified, m.features, m.joined_at, m.created_at`

func scanMember(s scanner, extra ...any) (*model.FamilyMember, error) {
	var m model.FamilyMember
	var features string
	var joinedAt sql.NullTime
	dest := []any{
		&m.ID, &m.FamilyID, &m.UserID, &m.Email, &m.Role, &m.DisplayName,
		&m.IsVerified, &features, &joinedAt, &m.CreatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	m.Features = decodeFeatures(features)
	if joinedAt.Valid {
		m.JoinedAt = &joinedAt.Time
	}
	return &m, nil
}

func encodeFeatures(fs []model.Feature) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

func decodeFeatures(s string) []model.Feature {
	fs := []model.Feature{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			fs = append(fs, model.Feature(p))
		}
	}
	return fs
}

// Create inserts a family and the creator's verified admin membership in one
// transaction.
func (s *FamilyStore) Create(name, creatorID, email, displayName string) (*model.Family, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	ts := now()
	if _, err := tx.Exec(
		`INSERT INTO families (id, name, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, creatorID, ts, ts,
	); err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO family_members (id, family_id, user_id, email, role, display_name, is_verified, features, joined_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		uuid.NewString(), id, creatorID, email, model.RoleAdmin, displayName,
		encodeFeatures(model.AllFeatures), ts, ts,
	); err != nil {
		return nil, fmt.Errorf("insert admin membership: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit family: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families f WHERE f.id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

// ListForUser returns the families the user is a verified member of, most
// recently joined first.
func (s *FamilyStore) ListForUser(userID string) ([]model.Family, error) {
	rows, err := s.db.Query(
		`SELECT `+familyCols+` FROM families f
		 JOIN family_members m ON m.family_id = f.id
		 WHERE m.user_id = ? AND m.is_verified = 1
		 ORDER BY m.joined_at DESC, m.rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

// Current returns the most recently joined verified family, or nil.
func (s *FamilyStore) Current(userID string) (*model.Family, error) {
	row := s.db.QueryRow(
		`SELECT `+familyCols+` FROM families f
		 JOIN family_members m ON m.family_id = f.id
		 WHERE m.user_id = ? AND m.is_verified = 1
		 ORDER BY m.joined_at DESC, m.rowid DESC LIMIT 1`,
		userID,
	)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) GetMember(familyID, userID string) (*model.FamilyMember, error) {
	return getMember(s.db, familyID, userID)
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getMember(q queryRower, familyID, userID string) (*model.FamilyMember, error) {
	row := q.QueryRow(`SELECT `+memberCols+` FROM family_members m WHERE m.family_id = ? AND m.user_id = ?`, familyID, userID)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return m, nil
}

// ListMembers returns verified and pending members, admins first.
func (s *FamilyStore) ListMembers(familyID string) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM family_members m WHERE m.family_id = ?
		 ORDER BY m.is_verified DESC, m.role = 'admin' DESC, m.created_at ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// VerifiedFamilyIDs returns the ids of every family the user has joined.
func (s *FamilyStore) VerifiedFamilyIDs(userID string) ([]string, error) {
	return s.ids(`SELECT family_id FROM family_members WHERE user_id = ? AND is_verified = 1`, userID)
}

// VerifiedUserIDs returns the user ids of every verified member of a family.
func (s *FamilyStore) VerifiedUserIDs(familyID string) ([]string, error) {
	return s.ids(`SELECT user_id FROM family_members WHERE family_id = ? AND is_verified = 1`, familyID)
}

func (s *FamilyStore) ids(query, arg string) ([]string, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func requireAdmin(tx *sql.Tx, familyID, callerID string) error {
	caller, err := getMember(tx, familyID, callerID)
	if err != nil {
		return err
	}
	if caller == nil || !caller.IsVerified || caller.Role != model.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

func countAdmins(tx *sql.Tx, familyID string) (int, error) {
	var n int
	err := tx.QueryRow(
		`SELECT COUNT(*) FROM family_members WHERE family_id = ? AND role = 'admin' AND is_verified = 1`,
		familyID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

// Invite inserts an unverified membership for userID after checking, in the
// same transaction, that callerID is a verified admin.
func (s *FamilyStore) Invite(callerID, familyID, userID, email string, role model.Role, displayName string) (*model.FamilyMember, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireAdmin(tx, familyID, callerID); err != nil {
		return nil, err
	}
	existing, err := getMember(tx, familyID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMemberExists
	}

	id := uuid.NewString()
	if _, err := tx.Exec(
		`INSERT INTO family_members (id, family_id, user_id, email, role, display_name, is_verified, features, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, familyID, userID, email, role, displayName, encodeFeatures(model.AllFeatures), now(),
	); err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	m, err := getMember(tx, familyID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invitation: %w", err)
	}
	return m, nil
}

// UpdateRole changes a member's role. Demoting the last verified admin fails
// with ErrLastAdmin.
func (s *FamilyStore) UpdateRole(callerID, familyID, userID string, role model.Role) (*model.FamilyMember, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireAdmin(tx, familyID, callerID); err != nil {
		return nil, err
	}
	target, err := getMember(tx, familyID, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrMemberNotFound
	}
	if target.Role == model.RoleAdmin && role != model.RoleAdmin && target.IsVerified {
		n, err := countAdmins(tx, familyID)
		if err != nil {
			return nil, err
		}
		if n <= 1 {
			return nil, ErrLastAdmin
		}
	}
	if _, err := tx.Exec(
		`UPDATE family_members SET role = ? WHERE family_id = ? AND user_id = ?`,
		role, familyID, userID,
	); err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	m, err := getMember(tx, familyID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit role: %w", err)
	}
	return m, nil
}

// UpdateFeatures replaces a member's feature access list.
func (s *FamilyStore) UpdateFeatures(callerID, familyID, userID string, features []model.Feature) (*model.FamilyMember, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireAdmin(tx, familyID, callerID); err != nil {
		return nil, err
	}
	result, err := tx.Exec(
		`UPDATE family_members SET features = ? WHERE family_id = ? AND user_id = ?`,
		encodeFeatures(features), familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update member features: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrMemberNotFound
	}
	m, err := getMember(tx, familyID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit features: %w", err)
	}
	return m, nil
}

// Remove deletes a membership or pending invitation. Removing the last
// verified admin fails with ErrLastAdmin.
func (s *FamilyStore) Remove(callerID, familyID, userID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireAdmin(tx, familyID, callerID); err != nil {
		return err
	}
	target, err := getMember(tx, familyID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if target.Role == model.RoleAdmin && target.IsVerified {
		n, err := countAdmins(tx, familyID)
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastAdmin
		}
	}
	if _, err := tx.Exec(
		`DELETE FROM family_members WHERE family_id = ? AND user_id = ?`,
		familyID, userID,
	); err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}
	return tx.Commit()
}

// ListInvitations returns the user's pending invitations with family names.
func (s *FamilyStore) ListInvitations(userID string) ([]model.Invitation, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+`, f.name FROM family_members m
		 JOIN families f ON f.id = m.family_id
		 WHERE m.user_id = ? AND m.is_verified = 0
		 ORDER BY m.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var invs []model.Invitation
	for rows.Next() {
		var name string
		m, err := scanMember(rows, &name)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invs = append(invs, model.Invitation{FamilyMember: *m, FamilyName: name})
	}
	return invs, rows.Err()
}

// Accept verifies a pending membership. It reports false when there is no
// pending invitation for the user in that family.
func (s *FamilyStore) Accept(familyID, userID string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE family_members SET is_verified = 1, joined_at = ? WHERE family_id = ? AND user_id = ? AND is_verified = 0`,
		now(), familyID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("accept invitation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// Decline deletes a pending membership.
func (s *FamilyStore) Decline(familyID, userID string) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM family_members WHERE family_id = ? AND user_id = ? AND is_verified = 0`,
		familyID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("decline invitation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
