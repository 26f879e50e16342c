package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Errors returned by multi-step writes that check the caller's membership
// inside the same transaction.
var (
	ErrNotAdmin       = errors.New("caller is not a verified admin of the family")
	ErrLastAdmin      = errors.New("family must keep at least one admin")
	ErrMemberNotFound = errors.New("family member not found")
)

type scanner interface{ Scan(...any) error }

func now() time.Time {
	return time.Now().UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// updateBuilder assembles the SET clause of a partial update.
type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) set(col string, v any) {
	b.sets = append(b.sets, col+" = ?")
	b.args = append(b.args, v)
}

func setIf[T any](b *updateBuilder, col string, v *T) {
	if v != nil {
		b.set(col, *v)
	}
}

// scope applies a personal/family move. A family id wins over IsPersonal.
func (b *updateBuilder) scope(isPersonal *bool, familyID *string) {
	switch {
	case familyID != nil && *familyID != "":
		b.set("family_id", *familyID)
		b.set("is_personal", false)
	case isPersonal != nil && *isPersonal:
		b.set("family_id", nil)
		b.set("is_personal", true)
	}
}

func (b *updateBuilder) empty() bool {
	return len(b.sets) == 0
}

// query returns an UPDATE statement scoped by id and owner. updated_at is
// always bumped.
func (b *updateBuilder) query(table, id, userID string) (string, []any) {
	sets := append(b.sets, "updated_at = ?")
	args := append(b.args, now(), id, userID)
	return `UPDATE ` + table + ` SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`, args
}

// visibleWhere matches rows owned by userID or shared with familyID.
const visibleWhere = `(user_id = ? OR (family_id = ? AND is_personal = 0))`
