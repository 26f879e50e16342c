package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/chore"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/service"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/sorting"
)

// Fields older clients still send for chores.
var deprecatedChoreFields = []string{"points", "recurrence_rule", "area_id"}

type ChoreHandler struct {
	crud[model.Chore, model.NewChore, model.ChorePatch]
}

func NewChoreHandler(svc *service.ChoreService, pub Publisher, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{crud[model.Chore, model.NewChore, model.ChorePatch]{
		entity: "chores",
		svc:    svc,
		meta: func(c *model.Chore) (string, string, *string) {
			return c.ID, c.UserID, c.FamilyID
		},
		deprecated: deprecatedChoreFields,
		sortOpts:   completedLast(model.Chore.Completed, func(c model.Chore) model.Priority { return c.Priority }),
		filter: func(r *http.Request, items []model.Chore) ([]model.Chore, error) {
			st, ok, err := statusParam(r)
			if !ok || err != nil {
				return items, err
			}
			return chore.FilterChores(items, st, time.Now()), nil
		},
		pub:    pub,
		logger: logger,
	}}
}

// statusParam reads ?status=. ok is false when the parameter is absent.
func statusParam(r *http.Request) (chore.Status, bool, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", false, nil
	}
	st, ok := chore.ParseStatus(raw)
	if !ok {
		return "", false, fmt.Errorf("unknown status %q", raw)
	}
	return st, true, nil
}

// completedLast keeps completed rows after open ones and ranks priority
// high to low.
func completedLast[T any](completed func(T) bool, priority func(T) model.Priority) func(sorting.State) []sorting.Option[T] {
	rank := byPriority(priority)
	return func(st sorting.State) []sorting.Option[T] {
		return append(rank(st), sorting.CompletedLast(completed))
	}
}
