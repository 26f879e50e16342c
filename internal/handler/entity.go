package handler

import (
	"cmp"
	"context"
	"log/slog"
	"net/http"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/sorting"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/websocket"
)

// entityService is the CRUD surface shared by the domain services.
type entityService[T, N, P any] interface {
	List(ctx context.Context) []T
	Get(ctx context.Context, id string) (*T, error)
	Add(ctx context.Context, in N) (*T, error)
	Update(ctx context.Context, id string, p P) (*T, error)
	Delete(ctx context.Context, id string) error
}

// crud serves the list/get/add/update/delete routes of one entity and
// publishes a row change after every successful write.
type crud[T, N, P any] struct {
	entity     string
	svc        entityService[T, N, P]
	meta       func(*T) (id, userID string, familyID *string)
	deprecated []string
	sortOpts   func(st sorting.State) []sorting.Option[T]
	filter     func(r *http.Request, items []T) ([]T, error)
	pub        Publisher
	logger     *slog.Logger
}

func (h *crud[T, N, P]) publish(action string, row *T) {
	if h.pub == nil || row == nil {
		return
	}
	id, userID, familyID := h.meta(row)
	h.pub.Publish(websocket.NewRowChange(h.entity, action, id, userID, familyID, row))
}

// List handles GET /api/{entity}?sort=&dir=
func (h *crud[T, N, P]) List(w http.ResponseWriter, r *http.Request) {
	items := h.svc.List(r.Context())
	if h.filter != nil {
		var err error
		if items, err = h.filter(r, items); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	q := r.URL.Query()
	if field := q.Get("sort"); field != "" {
		st := sorting.ParseState(field, q.Get("dir"))
		var opts []sorting.Option[T]
		if h.sortOpts != nil {
			opts = h.sortOpts(st)
		}
		items = sorting.Sort(items, st, opts...)
	}
	writeJSON(w, http.StatusOK, emptyIfNil(items))
}

func (h *crud[T, N, P]) Get(w http.ResponseWriter, r *http.Request) {
	row, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, "get "+h.entity, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *crud[T, N, P]) Create(w http.ResponseWriter, r *http.Request) {
	var in N
	if err := decodeJSON(r, &in, h.deprecated...); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := h.svc.Add(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, "add "+h.entity, err)
		return
	}
	h.publish(websocket.ActionInsert, row)
	writeJSON(w, http.StatusCreated, row)
}

func (h *crud[T, N, P]) Update(w http.ResponseWriter, r *http.Request) {
	var p P
	if err := decodeJSON(r, &p, h.deprecated...); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := h.svc.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeServiceError(w, h.logger, "update "+h.entity, err)
		return
	}
	h.publish(websocket.ActionUpdate, row)
	writeJSON(w, http.StatusOK, row)
}

func (h *crud[T, N, P]) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// Read first so the row change can reach the row's family.
	row, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "delete "+h.entity, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete "+h.entity, err)
		return
	}
	h.publish(websocket.ActionDelete, row)
	w.WriteHeader(http.StatusNoContent)
}

func priorityRank(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 0
	case model.PriorityMedium:
		return 1
	case model.PriorityLow:
		return 2
	}
	return 3
}

// byPriority orders high before low when the list is sorted by priority.
func byPriority[T any](priority func(T) model.Priority) func(sorting.State) []sorting.Option[T] {
	return func(st sorting.State) []sorting.Option[T] {
		if st.Field != "priority" {
			return nil
		}
		return []sorting.Option[T]{sorting.WithCompare(func(a, b T) int {
			return cmp.Compare(priorityRank(priority(a)), priorityRank(priority(b)))
		})}
	}
}
