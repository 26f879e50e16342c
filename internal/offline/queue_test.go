package offline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
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
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(context.Background(), ":memory:", discard())
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

type call struct {
	op     Op
	entity string
	id     string
}

// fakeRemote keeps updated_at stamps per "entity/id". errs maps
// "op entity/id" to the error that call returns.
type fakeRemote struct {
	stamps map[string]time.Time
	calls  []call
	errs   map[string]error
	tick   time.Time
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		stamps: make(map[string]time.Time),
		errs:   make(map[string]error),
		tick:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRemote) UpdatedAt(ctx context.Context, entity, id string) (time.Time, bool, error) {
	if err := f.errs["get "+entity+"/"+id]; err != nil {
		return time.Time{}, false, err
	}
	t, ok := f.stamps[entity+"/"+id]
	return t, ok, nil
}

func (f *fakeRemote) Insert(ctx context.Context, entity string, payload json.RawMessage) error {
	f.calls = append(f.calls, call{OpInsert, entity, ""})
	return f.errs["insert "+entity+"/"]
}

func (f *fakeRemote) Update(ctx context.Context, entity, id string, payload json.RawMessage) (time.Time, error) {
	f.calls = append(f.calls, call{OpUpdate, entity, id})
	if err := f.errs["update "+entity+"/"+id]; err != nil {
		return time.Time{}, err
	}
	f.tick = f.tick.Add(time.Second)
	f.stamps[entity+"/"+id] = f.tick
	return f.tick, nil
}

func (f *fakeRemote) Delete(ctx context.Context, entity, id string) error {
	f.calls = append(f.calls, call{OpDelete, entity, id})
	if err := f.errs["delete "+entity+"/"+id]; err != nil {
		return err
	}
	delete(f.stamps, entity+"/"+id)
	return nil
}

func TestEnqueueRejectsInvalidMutations(t *testing.T) {
	q := openQueue(t)
	ctx := context.Background()
	now := time.Now()

	for _, m := range []Mutation{
		{Entity: "notes", Op: OpInsert, Payload: json.RawMessage(`{}`)},
		{Entity: "chores", Op: OpInsert},
		{Entity: "chores", Op: OpUpdate, RowID: "c1", Payload: json.RawMessage(`{}`)},
		{Entity: "chores", Op: OpUpdate, RowID: "c1", BaseUpdatedAt: &now},
		{Entity: "chores", Op: OpDelete, BaseUpdatedAt: &now},
		{Entity: "chores", Op: "upsert", Payload: json.RawMessage(`{}`)},
		{Entity: "chores", Op: OpInsert, Payload: json.RawMessage(`{`)},
	} {
		_, err := q.Enqueue(ctx, m)
		assert.ErrorIs(t, err, ErrInvalidMutation, "%+v", m)
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")
	base := time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC)

	q, err := Open(ctx, path, discard())
	require.NoError(t, err)
	_, err = q.EnqueueInsert(ctx, "groceries", model.NewGroceryItem{Name: "Milk"})
	require.NoError(t, err)
	_, err = q.EnqueueDelete(ctx, "chores", "c1", base)
	require.NoError(t, err)
	require.NoError(t, q.Close())

	q, err = Open(ctx, path, discard())
	require.NoError(t, err)
	defer q.Close()

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, OpInsert, pending[0].Op)
	assert.JSONEq(t, `{"name":"Milk","quantity":"","category":"","completed":false,"is_personal":null,"family_id":null}`, string(pending[0].Payload))
	assert.Equal(t, OpDelete, pending[1].Op)
	require.NotNil(t, pending[1].BaseUpdatedAt)
	assert.True(t, base.Equal(*pending[1].BaseUpdatedAt))
}

func TestReplayInOrder(t *testing.T) {
	q := openQueue(t)
	ctx := context.Background()
	r := newFakeRemote()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.stamps["chores/c1"] = base
	r.stamps["reminders/r1"] = base

	_, err := q.EnqueueInsert(ctx, "groceries", map[string]string{"name": "Eggs"})
	require.NoError(t, err)
	_, err = q.EnqueueUpdate(ctx, "chores", "c1", base, map[string]string{"title": "Mop"})
	require.NoError(t, err)
	_, err = q.EnqueueDelete(ctx, "reminders", "r1", base)
	require.NoError(t, err)

	res, err := q.Replay(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, []call{
		{OpInsert, "groceries", ""},
		{OpUpdate, "chores", "c1"},
		{OpDelete, "reminders", "r1"},
	}, r.calls)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplayServerWins(t *testing.T) {
	q := openQueue(t)
	ctx := context.Background()
	r := newFakeRemote()
	seen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.stamps["chores/changed"] = seen.Add(time.Minute)

	_, err := q.EnqueueUpdate(ctx, "chores", "changed", seen, map[string]string{"title": "x"})
	require.NoError(t, err)
	_, err = q.EnqueueDelete(ctx, "chores", "gone", seen)
	require.NoError(t, err)

	res, err := q.Replay(ctx, r)
	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	require.Len(t, res.Conflicts, 2)
	assert.Equal(t, ReasonChanged, res.Conflicts[0].Reason)
	assert.Equal(t, ReasonDeleted, res.Conflicts[1].Reason)
	assert.Empty(t, r.calls, "conflicting mutations are never sent")
	assert.Equal(t, seen.Add(time.Minute), r.stamps["chores/changed"])

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplayFollowsOwnUpdates(t *testing.T) {
	q := openQueue(t)
	ctx := context.Background()
	r := newFakeRemote()
	seen := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	r.stamps["chores/c1"] = seen

	_, err := q.EnqueueUpdate(ctx, "chores", "c1", seen, map[string]string{"title": "a"})
	require.NoError(t, err)
	_, err = q.EnqueueUpdate(ctx, "chores", "c1", seen, map[string]string{"title": "b"})
	require.NoError(t, err)
	_, err = q.EnqueueDelete(ctx, "chores", "c1", seen)
	require.NoError(t, err)

	res, err := q.Replay(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Empty(t, res.Conflicts)
	assert.Len(t, r.calls, 3)
}

func TestReplayStopsOnTransportError(t *testing.T) {
	q := openQueue(t)
	ctx := context.Background()
	r := newFakeRemote()
	seen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.stamps["chores/c1"] = seen
	r.errs["update chores/c1"] = errors.New("dial tcp: connection refused")

	_, err := q.EnqueueInsert(ctx, "groceries", map[string]string{"name": "Eggs"})
	require.NoError(t, err)
	_, err = q.EnqueueUpdate(ctx, "chores", "c1", seen, map[string]string{"title": "Mop"})
	require.NoError(t, err)
	_, err = q.EnqueueInsert(ctx, "groceries", map[string]string{"name": "Ham"})
	require.NoError(t, err)

	res, err := q.Replay(ctx, r)
	require.Error(t, err)
	assert.Equal(t, 1, res.Applied)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, OpUpdate, pending[0].Op)
	assert.Equal(t, OpInsert, pending[1].Op)

	delete(r.errs, "update chores/c1")
	res, err = q.Replay(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
}

func TestReplayDropsRejectedMutation(t *testing.T) {
	q := openQueue(t)
	ctx := context.Background()
	r := newFakeRemote()
	r.errs["insert expenses/"] = &client.APIError{Status: http.StatusBadRequest, Message: "validation failed"}

	_, err := q.EnqueueInsert(ctx, "expenses", map[string]any{"title": "", "amount": 0})
	require.NoError(t, err)
	_, err = q.EnqueueInsert(ctx, "groceries", map[string]string{"name": "Eggs"})
	require.NoError(t, err)

	res, err := q.Replay(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "expenses", res.Rejected[0].Mutation.Entity)
}

func TestReplayAgainstServer(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	srv := server.New(db, server.Config{
		Auth: auth.Config{Secret: []byte("test-secret"), BcryptCost: bcrypt.MinCost},
	}, email.NewClient("", "", "http://localhost"), discard())
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	ctx := context.Background()
	c := client.New(ts.URL)
	_, err = c.SignUp(ctx, "alice@example.com", "correct horse", "alice")
	require.NoError(t, err)

	due := time.Now().Add(24 * time.Hour)
	keep, err := c.Chores().Add(ctx, model.NewChore{Title: "Laundry", DueDate: due})
	require.NoError(t, err)
	stale, err := c.Chores().Add(ctx, model.NewChore{Title: "Dishes", DueDate: due})
	require.NoError(t, err)

	q := openQueue(t)
	title := "Laundry and towels"
	_, err = q.EnqueueUpdate(ctx, "chores", keep.ID, keep.UpdatedAt, model.ChorePatch{Title: &title})
	require.NoError(t, err)
	_, err = q.EnqueueDelete(ctx, "chores", stale.ID, stale.UpdatedAt)
	require.NoError(t, err)
	_, err = q.EnqueueInsert(ctx, "groceries", model.NewGroceryItem{Name: "Soap"})
	require.NoError(t, err)

	// Someone else edits the second chore first.
	high := model.PriorityHigh
	_, err = c.Chores().Update(ctx, stale.ID, model.ChorePatch{Priority: &high})
	require.NoError(t, err)

	res, err := q.Replay(ctx, NewClientRemote(c))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, stale.ID, res.Conflicts[0].Mutation.RowID)

	got, err := c.Chores().Get(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	_, err = c.Chores().Get(ctx, stale.ID)
	assert.NoError(t, err, "server version wins")

	items, err := c.Groceries().List(ctx, client.ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Soap", items[0].Name)
}
