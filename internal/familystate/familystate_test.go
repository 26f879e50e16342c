package familystate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/client"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/database"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/email"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/server"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/websocket"
)

var _ Backend = (*client.Client)(nil)

type fakeBackend struct {
	mu          sync.Mutex
	families    []model.Family
	familiesErr error
	members     map[string][]model.FamilyMember
	gates       map[string]chan struct{}
	selected    string
	calls       int
	userID      string
}

func (f *fakeBackend) ListFamilies(ctx context.Context) ([]model.Family, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.families, f.familiesErr
}

func (f *fakeBackend) ListMembers(ctx context.Context, familyID string) ([]model.FamilyMember, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[familyID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[familyID], nil
}

func (f *fakeBackend) SetFamily(id string) {
	f.mu.Lock()
	f.selected = id
	f.mu.Unlock()
}

func (f *fakeBackend) Session() *model.Session {
	return &model.Session{ID: "s1", UserID: f.userID}
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func twoFamilies() *fakeBackend {
	return &fakeBackend{
		userID:   "u1",
		families: []model.Family{{ID: "f1", Name: "Home"}, {ID: "f2", Name: "Cabin"}},
		members: map[string][]model.FamilyMember{
			"f1": {{FamilyID: "f1", UserID: "u1", Role: model.RoleAdmin, IsVerified: true}},
			"f2": {
				{FamilyID: "f2", UserID: "u2", Role: model.RoleAdmin, IsVerified: true},
				{FamilyID: "f2", UserID: "u1", Role: model.RoleMember, IsVerified: true},
			},
		},
		gates: map[string]chan struct{}{},
	}
}

func newProvider(b Backend) *Provider {
	return New(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLoadDefaultsToFirstFamily(t *testing.T) {
	b := twoFamilies()
	p := newProvider(b)
	require.NoError(t, p.Load(context.Background()))

	require.NotNil(t, p.Current())
	assert.Equal(t, "f1", p.Current().ID)
	assert.Len(t, p.Families(), 2)
	assert.Len(t, p.Members(), 1)
	assert.Equal(t, "f1", b.selected)
}

func TestLoadKeepsSelection(t *testing.T) {
	b := twoFamilies()
	p := newProvider(b)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))
	require.NoError(t, p.Select(ctx, "f2"))

	require.NoError(t, p.Load(ctx))
	assert.Equal(t, "f2", p.Current().ID)

	b.families = b.families[:1]
	require.NoError(t, p.Load(ctx))
	assert.Equal(t, "f1", p.Current().ID, "selection falls back when the family is gone")
}

func TestLoadFailureIsEmpty(t *testing.T) {
	b := twoFamilies()
	b.familiesErr = errors.New("offline")
	p := newProvider(b)

	assert.Error(t, p.Load(context.Background()))
	assert.Empty(t, p.Families())
	assert.Nil(t, p.Current())
	assert.Equal(t, "", b.selected)
}

func TestSelectUnknownFamily(t *testing.T) {
	p := newProvider(twoFamilies())
	require.NoError(t, p.Load(context.Background()))
	assert.ErrorIs(t, p.Select(context.Background(), "nope"), ErrUnknownFamily)
	assert.Equal(t, "f1", p.Current().ID)
}

func TestIsAdminUsesCacheOnly(t *testing.T) {
	b := twoFamilies()
	p := newProvider(b)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	calls := b.callCount()
	assert.True(t, p.IsAdmin("f1"))
	assert.False(t, p.IsAdmin("f2"), "members of other families are not cached")
	assert.Equal(t, calls, b.callCount())

	require.NoError(t, p.Select(ctx, "f2"))
	assert.False(t, p.IsAdmin("f2"))
}

func TestStaleMemberFetchIsDropped(t *testing.T) {
	b := twoFamilies()
	p := newProvider(b)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	gate := make(chan struct{})
	b.mu.Lock()
	b.gates["f2"] = gate
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- p.Select(ctx, "f2") }()
	require.Eventually(t, func() bool { return p.Current().ID == "f2" }, time.Second, time.Millisecond)

	require.NoError(t, p.Select(ctx, "f1"))
	close(gate)
	require.NoError(t, <-done)

	assert.Equal(t, "f1", p.Current().ID)
	members := p.Members()
	require.Len(t, members, 1)
	assert.Equal(t, "f1", members[0].FamilyID)
}

func TestApplyReloadsOnMembershipChange(t *testing.T) {
	b := twoFamilies()
	p := newProvider(b)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))
	calls := b.callCount()

	require.NoError(t, p.Apply(ctx, websocket.Message{Type: websocket.TypeRowChange, Entity: "chores"}))
	assert.Equal(t, calls, b.callCount())

	require.NoError(t, p.Apply(ctx, websocket.Message{Type: websocket.TypeRowChange, Entity: "family_members", FamilyID: "f1"}))
	assert.Equal(t, calls+2, b.callCount())
}

func TestClear(t *testing.T) {
	b := twoFamilies()
	p := newProvider(b)
	require.NoError(t, p.Load(context.Background()))
	p.Clear()
	assert.Nil(t, p.Current())
	assert.Empty(t, p.Families())
	assert.Empty(t, p.Members())
	assert.Equal(t, "", b.selected)
}

func TestAgainstServer(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.New(db, server.Config{
		Auth: auth.Config{Secret: []byte("test-secret"), BcryptCost: bcrypt.MinCost},
	}, email.NewClient("", "", "http://localhost"), logger)
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	ctx := context.Background()
	c := client.New(ts.URL)
	_, err = c.SignUp(ctx, "alice@example.com", "correct horse", "alice")
	require.NoError(t, err)

	p := newProvider(c)
	require.NoError(t, p.Load(ctx))
	assert.Nil(t, p.Current())

	fam, err := c.CreateFamily(ctx, "Smiths")
	require.NoError(t, err)
	require.NoError(t, p.Load(ctx))
	require.NotNil(t, p.Current())
	assert.Equal(t, fam.ID, p.Current().ID)
	assert.True(t, p.IsAdmin(fam.ID))

	chore, err := c.Chores().Add(ctx, model.NewChore{Title: "Trash", DueDate: time.Now().Add(time.Hour), FamilyID: &fam.ID})
	require.NoError(t, err)
	require.NotNil(t, chore.FamilyID)
	assert.Equal(t, fam.ID, *chore.FamilyID)
}
