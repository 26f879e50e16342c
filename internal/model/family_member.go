package model

import (
	"slices"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Feature names an entity type a family member may be allowed to use.
type Feature string

const (
	FeatureChores    Feature = "chores"
	FeatureGroceries Feature = "groceries"
	FeatureExpenses  Feature = "expenses"
	FeatureReminders Feature = "reminders"
)

// AllFeatures is the default feature access of a new member.
var AllFeatures = []Feature{FeatureChores, FeatureGroceries, FeatureExpenses, FeatureReminders}

type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FamilyMember is both an active membership and, while IsVerified is false,
// a pending invitation.
type FamilyMember struct {
	ID          string     `json:"id"`
	FamilyID    string     `json:"family_id"`
	UserID      string     `json:"user_id"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	DisplayName string     `json:"display_name"`
	IsVerified  bool       `json:"is_verified"`
	Features    []Feature  `json:"features"`
	JoinedAt    *time.Time `json:"joined_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CanUse reports whether the member may use the given feature within the
// family. Admins can use everything.
func (m FamilyMember) CanUse(f Feature) bool {
	if m.Role == RoleAdmin {
		return true
	}
	return slices.Contains(m.Features, f)
}

// Invitation is a pending membership together with the inviting family's name.
type Invitation struct {
	FamilyMember
	FamilyName string `json:"family_name"`
}
