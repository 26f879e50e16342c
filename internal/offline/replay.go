package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/client"
)

// Remote applies mutations to the server. UpdatedAt reports ok=false when
// the row no longer exists. Update returns the row's new updated_at.
type Remote interface {
	UpdatedAt(ctx context.Context, entity, id string) (t time.Time, ok bool, err error)
	Insert(ctx context.Context, entity string, payload json.RawMessage) error
	Update(ctx context.Context, entity, id string, payload json.RawMessage) (time.Time, error)
	Delete(ctx context.Context, entity, id string) error
}

// Conflict reasons.
const (
	ReasonChanged = "changed"
	ReasonDeleted = "deleted"
)

// Conflict is a queued mutation dropped because the server row moved on.
type Conflict struct {
	Mutation Mutation
	Reason   string
}

// Rejection is a queued mutation the server refused, e.g. failed validation.
type Rejection struct {
	Mutation Mutation
	Err      error
}

type Result struct {
	Applied   int
	Conflicts []Conflict
	Rejected  []Rejection
}

// Replay sends queued mutations to r in order. A mutation whose row changed
// or was deleted since it was queued is dropped as a conflict; the server
// version wins. One the server rejects with a client error is dropped as a
// rejection. A transport or server error stops the replay, keeps that
// mutation and everything after it, and is returned.
func (q *Queue) Replay(ctx context.Context, r Remote) (Result, error) {
	var res Result
	pending, err := q.Pending(ctx)
	if err != nil {
		return res, err
	}

	// An update replayed here moves its row's updated_at from one value to
	// another; later mutations made against the old value follow it.
	type rebase struct{ from, to time.Time }
	rebased := make(map[string]rebase)

	for _, m := range pending {
		key := m.Entity + "/" + m.RowID
		base := m.BaseUpdatedAt
		if rb, ok := rebased[key]; ok && base != nil && base.Equal(rb.from) {
			m.BaseUpdatedAt = &rb.to
		}

		next, conflict, err := apply(ctx, r, m)
		switch {
		case err != nil && retryable(err):
			q.logger.Warn("replay stopped", "id", m.ID, "entity", m.Entity, "op", m.Op, "error", err)
			return res, fmt.Errorf("replay mutation %d: %w", m.ID, err)
		case err != nil:
			q.logger.Warn("mutation rejected", "id", m.ID, "entity", m.Entity, "op", m.Op, "error", err)
			res.Rejected = append(res.Rejected, Rejection{Mutation: m, Err: err})
		case conflict != "":
			q.logger.Info("mutation conflicts with server", "id", m.ID, "entity", m.Entity, "row_id", m.RowID, "reason", conflict)
			res.Conflicts = append(res.Conflicts, Conflict{Mutation: m, Reason: conflict})
		default:
			res.Applied++
			if m.Op == OpUpdate {
				rebased[key] = rebase{from: *base, to: next}
			}
		}
		if err := q.remove(ctx, m.ID); err != nil {
			return res, err
		}
	}
	return res, nil
}

// apply sends one mutation. For updates it returns the row's new
// updated_at.
func apply(ctx context.Context, r Remote, m Mutation) (time.Time, string, error) {
	if m.Op == OpInsert {
		return time.Time{}, "", r.Insert(ctx, m.Entity, m.Payload)
	}

	current, ok, err := r.UpdatedAt(ctx, m.Entity, m.RowID)
	if err != nil {
		return time.Time{}, "", err
	}
	if !ok {
		return time.Time{}, ReasonDeleted, nil
	}
	if !current.Equal(*m.BaseUpdatedAt) {
		return time.Time{}, ReasonChanged, nil
	}

	var next time.Time
	if m.Op == OpDelete {
		err = r.Delete(ctx, m.Entity, m.RowID)
	} else {
		next, err = r.Update(ctx, m.Entity, m.RowID, m.Payload)
	}
	if client.StatusCode(err) == http.StatusNotFound {
		return time.Time{}, ReasonDeleted, nil
	}
	return next, "", err
}

// retryable reports whether err leaves the mutation worth sending again:
// anything that is not a 4xx answer from the server.
func retryable(err error) bool {
	status := client.StatusCode(err)
	return status == 0 || status >= 500 || status == http.StatusTooManyRequests || status == http.StatusUnauthorized
}

// ClientRemote replays mutations through the API client.
type ClientRemote struct {
	c *client.Client
}

func NewClientRemote(c *client.Client) *ClientRemote {
	return &ClientRemote{c: c}
}

type rowStamp struct {
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *ClientRemote) UpdatedAt(ctx context.Context, entity, id string) (time.Time, bool, error) {
	raw, err := r.c.Raw(entity).Get(ctx, id)
	if client.StatusCode(err) == http.StatusNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	var row rowStamp
	if err := json.Unmarshal(*raw, &row); err != nil {
		return time.Time{}, false, fmt.Errorf("decode %s %s: %w", entity, id, err)
	}
	return row.UpdatedAt, true, nil
}

func (r *ClientRemote) Insert(ctx context.Context, entity string, payload json.RawMessage) error {
	_, err := r.c.Raw(entity).Add(ctx, payload)
	return err
}

func (r *ClientRemote) Update(ctx context.Context, entity, id string, payload json.RawMessage) (time.Time, error) {
	raw, err := r.c.Raw(entity).Update(ctx, id, payload)
	if err != nil {
		return time.Time{}, err
	}
	var row rowStamp
	if err := json.Unmarshal(*raw, &row); err != nil {
		return time.Time{}, fmt.Errorf("decode %s %s: %w", entity, id, err)
	}
	return row.UpdatedAt, nil
}

func (r *ClientRemote) Delete(ctx context.Context, entity, id string) error {
	return r.c.Raw(entity).Delete(ctx, id)
}
