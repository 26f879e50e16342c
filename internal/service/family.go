package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

// InvitationMailer sends family invitation emails.
type InvitationMailer interface {
	SendFamilyInvitation(toEmail, familyName, inviterEmail string) error
}

type FamilyService struct {
	scope
	users    *store.UserStore
	profiles *store.ProfileStore
	mailer   InvitationMailer
}

// NewFamilyService wires family operations. mailer may be nil.
func NewFamilyService(families *store.FamilyStore, users *store.UserStore, profiles *store.ProfileStore, mailer InvitationMailer, logger *slog.Logger) *FamilyService {
	return &FamilyService{
		scope:    newScope(families, logger, "family"),
		users:    users,
		profiles: profiles,
		mailer:   mailer,
	}
}

type newFamily struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateFamily creates the family and the caller's admin membership in one
// transaction.
func (s *FamilyService) CreateFamily(ctx context.Context, name string) (*model.Family, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateInput(newFamily{Name: name}); err != nil {
		return nil, err
	}
	ac, _ := auth.FromContext(ctx)
	return s.families.Create(name, userID, ac.Email, s.displayName(userID, ac.Email))
}

// GetFamilies returns the caller's verified families, most recently joined
// first. Failures are logged and yield nil.
func (s *FamilyService) GetFamilies(ctx context.Context) []model.Family {
	userID, err := caller(ctx)
	if err != nil {
		return nil
	}
	families, err := s.families.ListForUser(userID)
	if err != nil {
		s.logger.Error("list families", "user_id", userID, "error", err)
		return nil
	}
	return families
}

// GetCurrentFamily returns the selected or most recently joined family, or
// nil when the caller has none.
func (s *FamilyService) GetCurrentFamily(ctx context.Context) (*model.Family, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	familyID, err := s.currentFamily(ctx, userID)
	if err != nil {
		return nil, err
	}
	if familyID == "" {
		return nil, nil
	}
	return s.families.GetByID(familyID)
}

type invite struct {
	Email string     `json:"email" validate:"required,email,max=254"`
	Role  model.Role `json:"role" validate:"required,oneof=admin member"`
}

// AddFamilyMember invites the account registered under email. The caller
// must be a verified admin. The invitation email is best-effort.
func (s *FamilyService) AddFamilyMember(ctx context.Context, familyID, email string, role model.Role) (*model.FamilyMember, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = model.RoleMember
	}
	if err := validateInput(invite{Email: email, Role: role}); err != nil {
		return nil, err
	}

	invitee, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if invitee == nil {
		return nil, ErrNoAccount
	}

	m, err := s.families.Invite(userID, familyID, invitee.ID, invitee.Email, role, s.displayName(invitee.ID, invitee.Email))
	if err != nil {
		return nil, mapStoreErr(err)
	}
	s.sendInvitation(ctx, familyID, invitee.Email)
	return m, nil
}

func (s *FamilyService) sendInvitation(ctx context.Context, familyID, to string) {
	if s.mailer == nil {
		return
	}
	f, err := s.families.GetByID(familyID)
	if err != nil || f == nil {
		s.logger.Warn("load family for invitation email", "family_id", familyID, "error", err)
		return
	}
	ac, _ := auth.FromContext(ctx)
	if err := s.mailer.SendFamilyInvitation(to, f.Name, ac.Email); err != nil {
		s.logger.Warn("send invitation email", "family_id", familyID, "to", to, "error", err)
	}
}

// GetFamilyMembers lists verified and pending members. The caller must be a
// verified member.
func (s *FamilyService) GetFamilyMembers(ctx context.Context, familyID string) ([]model.FamilyMember, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.families.GetMember(familyID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.IsVerified {
		return nil, ErrNotMember
	}
	return s.families.ListMembers(familyID)
}

type roleChange struct {
	Role model.Role `json:"role" validate:"required,oneof=admin member"`
}

func (s *FamilyService) UpdateMemberRole(ctx context.Context, familyID, memberID string, role model.Role) (*model.FamilyMember, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(roleChange{Role: role}); err != nil {
		return nil, err
	}
	m, err := s.families.UpdateRole(userID, familyID, memberID, role)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return m, nil
}

type featureChange struct {
	Features []model.Feature `json:"features" validate:"dive,oneof=chores groceries expenses reminders"`
}

func (s *FamilyService) UpdateMemberFeatures(ctx context.Context, familyID, memberID string, features []model.Feature) (*model.FamilyMember, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(featureChange{Features: features}); err != nil {
		return nil, err
	}
	m, err := s.families.UpdateFeatures(userID, familyID, memberID, dedupe(features))
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return m, nil
}

func (s *FamilyService) RemoveFamilyMember(ctx context.Context, familyID, memberID string) error {
	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	return mapStoreErr(s.families.Remove(userID, familyID, memberID))
}

// GetPendingInvitations returns the caller's unaccepted invitations. Failures
// are logged and yield nil.
func (s *FamilyService) GetPendingInvitations(ctx context.Context) []model.Invitation {
	userID, err := caller(ctx)
	if err != nil {
		return nil
	}
	invs, err := s.families.ListInvitations(userID)
	if err != nil {
		s.logger.Error("list invitations", "user_id", userID, "error", err)
		return nil
	}
	return invs
}

func (s *FamilyService) AcceptInvitation(ctx context.Context, familyID string) error {
	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	ok, err := s.families.Accept(familyID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *FamilyService) DeclineInvitation(ctx context.Context, familyID string) error {
	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	ok, err := s.families.Decline(familyID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// IsMember reports whether userID is a verified member of familyID.
func (s *FamilyService) IsMember(familyID, userID string) (bool, error) {
	m, err := s.families.GetMember(familyID, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.IsVerified, nil
}

func (s *FamilyService) displayName(userID, email string) string {
	p, err := s.profiles.Get(userID)
	if err != nil {
		s.logger.Warn("load profile", "user_id", userID, "error", err)
	}
	if p != nil && p.DisplayName != "" {
		return p.DisplayName
	}
	name, _, _ := strings.Cut(email, "@")
	return name
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotAdmin):
		return ErrForbidden
	case errors.Is(err, store.ErrLastAdmin):
		return ErrLastAdmin
	case errors.Is(err, store.ErrMemberNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrMemberExists):
		return ErrAlreadyMember
	default:
		return fmt.Errorf("family write: %w", err)
	}
}

func dedupe(fs []model.Feature) []model.Feature {
	seen := make(map[model.Feature]bool, len(fs))
	out := make([]model.Feature, 0, len(fs))
	for _, f := range fs {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
