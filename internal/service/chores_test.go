package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

func TestChoreAddDefaults(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")

	c, err := env.chores.Add(a.ctx, model.NewChore{Title: "Dishes", DueDate: day(1)})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, c.Priority)
	assert.Equal(t, model.ChoreStatusPending, c.Status)
	assert.True(t, c.IsPersonal)
	assert.Nil(t, c.FamilyID)
	assert.Equal(t, a.ID, c.UserID)

	list := env.chores.List(a.ctx)
	count := 0
	for _, x := range list {
		if x.ID == c.ID {
			count++
		}
	}
	assert.Equal(t, 1, count, "added chore listed exactly once")
}

func TestChoreVisibility(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	stranger := env.user(t, "c@example.com")
	f := env.familyOf(t, "Smiths", a, b)

	shared, err := env.chores.Add(a.ctx, model.NewChore{Title: "shared", DueDate: day(1), FamilyID: &f.ID})
	require.NoError(t, err)
	_, err = env.chores.Add(a.ctx, model.NewChore{Title: "a private", DueDate: day(1)})
	require.NoError(t, err)
	mine, err := env.chores.Add(b.ctx, model.NewChore{Title: "b private", DueDate: day(1)})
	require.NoError(t, err)
	_, err = env.chores.Add(stranger.ctx, model.NewChore{Title: "stranger", DueDate: day(1)})
	require.NoError(t, err)

	list := env.chores.List(b.ctx)
	require.Len(t, list, 2)
	for _, c := range list {
		if c.UserID != b.ID {
			require.NotNil(t, c.FamilyID)
			assert.Equal(t, f.ID, *c.FamilyID)
			assert.False(t, c.IsPersonal)
		}
	}
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{shared.ID, mine.ID}, ids)

	_, err = env.chores.Get(stranger.ctx, shared.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChoreUpdateOnlyTouchesPatchedFields(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")

	c, err := env.chores.Add(a.ctx, model.NewChore{Title: "Dishes", Description: "after dinner", DueDate: day(1), Priority: model.PriorityHigh})
	require.NoError(t, err)

	updated, err := env.chores.Update(a.ctx, c.ID, model.ChorePatch{Title: strPtr("Wash dishes")})
	require.NoError(t, err)
	assert.Equal(t, "Wash dishes", updated.Title)
	assert.Equal(t, "after dinner", updated.Description)
	assert.Equal(t, model.PriorityHigh, updated.Priority)
	assert.Equal(t, model.ChoreStatusPending, updated.Status)
	assert.True(t, updated.DueDate.Equal(c.DueDate))

	list := env.chores.List(a.ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "Wash dishes", list[0].Title)
}

func TestChoreCompletedSortsLast(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")

	_, err := env.chores.Add(a.ctx, model.NewChore{Title: "first", DueDate: day(1)})
	require.NoError(t, err)
	_, err = env.chores.Add(a.ctx, model.NewChore{Title: "second", DueDate: day(2)})
	require.NoError(t, err)
	newest, err := env.chores.Add(a.ctx, model.NewChore{Title: "third", DueDate: day(3)})
	require.NoError(t, err)

	list := env.chores.List(a.ctx)
	require.Len(t, list, 3)
	assert.Equal(t, newest.ID, list[0].ID, "newest first")

	done := model.ChoreStatusCompleted
	_, err = env.chores.Update(a.ctx, newest.ID, model.ChorePatch{Status: &done})
	require.NoError(t, err)

	list = env.chores.List(a.ctx)
	require.Len(t, list, 3)
	assert.Equal(t, newest.ID, list[2].ID)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)
}

func TestChoreUpdateOthersChore(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	f := env.familyOf(t, "Smiths", a, b)

	c, err := env.chores.Add(a.ctx, model.NewChore{Title: "shared", DueDate: day(1), FamilyID: &f.ID})
	require.NoError(t, err)

	_, err = env.chores.Update(b.ctx, c.ID, model.ChorePatch{Title: strPtr("hijacked")})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.chores.Delete(b.ctx, c.ID), ErrNotFound)

	got, err := env.chores.Get(a.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "shared", got.Title)
}

func TestChoreDelete(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")

	c, err := env.chores.Add(a.ctx, model.NewChore{Title: "Dishes", DueDate: day(1)})
	require.NoError(t, err)
	require.NoError(t, env.chores.Delete(a.ctx, c.ID))

	for _, x := range env.chores.List(a.ctx) {
		assert.NotEqual(t, c.ID, x.ID)
	}
	assert.ErrorIs(t, env.chores.Delete(a.ctx, c.ID), ErrNotFound)
}

func TestChoreAssignee(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	stranger := env.user(t, "c@example.com")
	f := env.familyOf(t, "Smiths", a, b)

	c, err := env.chores.Add(a.ctx, model.NewChore{Title: "Trash", DueDate: day(1), FamilyID: &f.ID, AssignedTo: &b.ID})
	require.NoError(t, err)
	require.NotNil(t, c.AssignedTo)
	assert.Equal(t, b.ID, *c.AssignedTo)

	_, err = env.chores.Add(a.ctx, model.NewChore{Title: "Trash", DueDate: day(1), FamilyID: &f.ID, AssignedTo: &stranger.ID})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = env.chores.Add(a.ctx, model.NewChore{Title: "Mine", DueDate: day(1), AssignedTo: &b.ID})
	assert.ErrorAs(t, err, &verr)

	cleared, err := env.chores.Update(a.ctx, c.ID, model.ChorePatch{AssignedTo: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedTo)
}

func TestChoreFeatureAccess(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	f := env.familyOf(t, "Smiths", a, b)

	_, err := env.chores.Add(a.ctx, model.NewChore{Title: "shared", DueDate: day(1), FamilyID: &f.ID})
	require.NoError(t, err)

	_, err = env.family.UpdateMemberFeatures(a.ctx, f.ID, b.ID, []model.Feature{model.FeatureGroceries})
	require.NoError(t, err)

	assert.Empty(t, env.chores.List(b.ctx), "family chores hidden without feature access")
	_, err = env.chores.Add(b.ctx, model.NewChore{Title: "blocked", DueDate: day(1), FamilyID: &f.ID})
	assert.ErrorIs(t, err, ErrFeatureDisabled)

	// Personal chores are unaffected.
	_, err = env.chores.Add(b.ctx, model.NewChore{Title: "mine", DueDate: day(1)})
	require.NoError(t, err)
	assert.Len(t, env.chores.List(b.ctx), 1)
}

func TestChoreMoveBetweenScopes(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	f := env.familyOf(t, "Smiths", a)

	c, err := env.chores.Add(a.ctx, model.NewChore{Title: "Dishes", DueDate: day(1)})
	require.NoError(t, err)

	shared, err := env.chores.Update(a.ctx, c.ID, model.ChorePatch{IsPersonal: boolPtr(false)})
	require.NoError(t, err)
	require.NotNil(t, shared.FamilyID)
	assert.Equal(t, f.ID, *shared.FamilyID)
	assert.False(t, shared.IsPersonal)

	personal, err := env.chores.Update(a.ctx, c.ID, model.ChorePatch{IsPersonal: boolPtr(true)})
	require.NoError(t, err)
	assert.Nil(t, personal.FamilyID)
	assert.True(t, personal.IsPersonal)
}
