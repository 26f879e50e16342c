package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

func TestCreateFamily(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")

	f, err := env.family.CreateFamily(a.ctx, "Smiths")
	require.NoError(t, err)
	assert.Equal(t, "Smiths", f.Name)
	assert.Equal(t, a.ID, f.CreatedBy)

	members, err := env.family.GetFamilyMembers(a.ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, a.ID, members[0].UserID)
	assert.Equal(t, model.RoleAdmin, members[0].Role)
	assert.True(t, members[0].IsVerified)

	_, err = env.family.CreateFamily(a.ctx, "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestInvitationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")

	f, err := env.family.CreateFamily(a.ctx, "Smiths")
	require.NoError(t, err)

	m, err := env.family.AddFamilyMember(a.ctx, f.ID, "B@Example.com", model.RoleMember)
	require.NoError(t, err)
	assert.False(t, m.IsVerified)
	assert.Equal(t, b.ID, m.UserID)
	assert.Equal(t, []string{"b@example.com|Smiths|a@example.com"}, env.mailer.sent)

	invs := env.family.GetPendingInvitations(b.ctx)
	require.Len(t, invs, 1)
	assert.Equal(t, f.ID, invs[0].FamilyID)
	assert.Equal(t, "Smiths", invs[0].FamilyName)
	assert.Empty(t, env.family.GetFamilies(b.ctx))

	require.NoError(t, env.family.AcceptInvitation(b.ctx, f.ID))
	families := env.family.GetFamilies(b.ctx)
	require.Len(t, families, 1)
	assert.Equal(t, f.ID, families[0].ID)
	assert.Empty(t, env.family.GetPendingInvitations(b.ctx))

	assert.ErrorIs(t, env.family.AcceptInvitation(b.ctx, f.ID), ErrNotFound)
}

func TestDeclineInvitation(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	f, err := env.family.CreateFamily(a.ctx, "Smiths")
	require.NoError(t, err)

	_, err = env.family.AddFamilyMember(a.ctx, f.ID, b.Email, "")
	require.NoError(t, err)
	require.NoError(t, env.family.DeclineInvitation(b.ctx, f.ID))
	assert.Empty(t, env.family.GetPendingInvitations(b.ctx))

	members, err := env.family.GetFamilyMembers(a.ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestAddFamilyMemberErrors(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	c := env.user(t, "c@example.com")
	f := env.familyOf(t, "Smiths", a, b)

	_, err := env.family.AddFamilyMember(a.ctx, f.ID, "nobody@example.com", model.RoleMember)
	assert.ErrorIs(t, err, ErrNoAccount)

	_, err = env.family.AddFamilyMember(a.ctx, f.ID, b.Email, model.RoleMember)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = env.family.AddFamilyMember(b.ctx, f.ID, c.Email, model.RoleMember)
	assert.ErrorIs(t, err, ErrForbidden, "members cannot invite")

	_, err = env.family.AddFamilyMember(a.ctx, f.ID, c.Email, "owner")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestInvitationEmailIsBestEffort(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	f, err := env.family.CreateFamily(a.ctx, "Smiths")
	require.NoError(t, err)

	env.mailer.err = errors.New("postmark down")
	m, err := env.family.AddFamilyMember(a.ctx, f.ID, b.Email, model.RoleMember)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestRoleChangesAndLastAdmin(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	f := env.familyOf(t, "Smiths", a, b)

	_, err := env.family.UpdateMemberRole(a.ctx, f.ID, a.ID, model.RoleMember)
	assert.ErrorIs(t, err, ErrLastAdmin)

	_, err = env.family.UpdateMemberRole(b.ctx, f.ID, b.ID, model.RoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)

	m, err := env.family.UpdateMemberRole(a.ctx, f.ID, b.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, m.Role)

	// With two admins, a can step down.
	m, err = env.family.UpdateMemberRole(a.ctx, f.ID, a.ID, model.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, m.Role)

	assert.ErrorIs(t, env.family.RemoveFamilyMember(b.ctx, f.ID, b.ID), ErrLastAdmin)
	_, err = env.family.UpdateMemberRole(b.ctx, f.ID, "missing", model.RoleMember)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveFamilyMember(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	f := env.familyOf(t, "Smiths", a, b)

	assert.ErrorIs(t, env.family.RemoveFamilyMember(b.ctx, f.ID, a.ID), ErrForbidden)
	require.NoError(t, env.family.RemoveFamilyMember(a.ctx, f.ID, b.ID))

	_, err := env.family.GetFamilyMembers(b.ctx, f.ID)
	assert.ErrorIs(t, err, ErrNotMember)

	ok, err := env.family.IsMember(f.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateMemberFeatures(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	f := env.familyOf(t, "Smiths", a, b)

	m, err := env.family.UpdateMemberFeatures(a.ctx, f.ID, b.ID, []model.Feature{model.FeatureGroceries, model.FeatureGroceries, model.FeatureChores})
	require.NoError(t, err)
	assert.Equal(t, []model.Feature{model.FeatureGroceries, model.FeatureChores}, m.Features)

	_, err = env.family.UpdateMemberFeatures(a.ctx, f.ID, b.ID, []model.Feature{"calendar"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCurrentFamilyNone(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")

	f, err := env.family.GetCurrentFamily(a.ctx)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Empty(t, env.family.GetFamilies(a.ctx))
}
