package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

// ListOptions narrow and order a list call. Zero values are omitted.
type ListOptions struct {
	Sort   string
	Desc   bool
	Status string
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
		if o.Desc {
			q.Set("dir", "desc")
		} else {
			q.Set("dir", "asc")
		}
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Resource is the CRUD surface of one entity collection. T is the row type,
// N the add input and P the partial update.
type Resource[T, N, P any] struct {
	c    *Client
	path string
}

func newResource[T, N, P any](c *Client, entity string) *Resource[T, N, P] {
	return &Resource[T, N, P]{c: c, path: "/api/" + entity}
}

func (r *Resource[T, N, P]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	var out []T
	if err := r.c.do(ctx, http.MethodGet, r.path+opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T, N, P]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := r.c.do(ctx, http.MethodGet, r.itemPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T, N, P]) Add(ctx context.Context, in N) (*T, error) {
	var out T
	if err := r.c.do(ctx, http.MethodPost, r.path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T, N, P]) Update(ctx context.Context, id string, patch P) (*T, error) {
	var out T
	if err := r.c.do(ctx, http.MethodPatch, r.itemPath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T, N, P]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r *Resource[T, N, P]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

type (
	ChoreResource    = Resource[model.Chore, model.NewChore, model.ChorePatch]
	GroceryResource  = Resource[model.GroceryItem, model.NewGroceryItem, model.GroceryItemPatch]
	ExpenseResource  = Resource[model.Expense, model.NewExpense, model.ExpensePatch]
	ReminderResource = Resource[model.Reminder, model.NewReminder, model.ReminderPatch]
)

func (c *Client) Chores() *ChoreResource {
	return newResource[model.Chore, model.NewChore, model.ChorePatch](c, "chores")
}

func (c *Client) Groceries() *GroceryResource {
	return newResource[model.GroceryItem, model.NewGroceryItem, model.GroceryItemPatch](c, "groceries")
}

func (c *Client) Expenses() *ExpenseResource {
	return newResource[model.Expense, model.NewExpense, model.ExpensePatch](c, "expenses")
}

func (c *Client) Reminders() *ReminderResource {
	return newResource[model.Reminder, model.NewReminder, model.ReminderPatch](c, "reminders")
}

// Raw returns an untyped view of an entity collection, for callers that
// hold rows and inputs as JSON.
func (c *Client) Raw(entity string) *Resource[json.RawMessage, json.RawMessage, json.RawMessage] {
	return newResource[json.RawMessage, json.RawMessage, json.RawMessage](c, entity)
}

// ClearCompletedGroceries deletes the caller's completed grocery items and
// returns how many were removed.
func (c *Client) ClearCompletedGroceries(ctx context.Context) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/groceries/completed", nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// ExpenseSummary totals visible expenses by category over [from, to). Zero
// times fall back to the server's default of the current month.
func (c *Client) ExpenseSummary(ctx context.Context, from, to time.Time) ([]model.CategoryTotal, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.Format(time.DateOnly))
	}
	if !to.IsZero() {
		q.Set("to", to.Format(time.DateOnly))
	}
	path := "/api/expenses/summary"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []model.CategoryTotal
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("expense summary: %w", err)
	}
	return out, nil
}
