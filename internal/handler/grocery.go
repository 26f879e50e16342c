package handler

import (
	"log/slog"
	"net/http"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/service"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/sorting"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/websocket"
)

type GroceryHandler struct {
	crud[model.GroceryItem, model.NewGroceryItem, model.GroceryItemPatch]
	groceries *service.GroceryService
}

func NewGroceryHandler(svc *service.GroceryService, pub Publisher, logger *slog.Logger) *GroceryHandler {
	return &GroceryHandler{
		crud: crud[model.GroceryItem, model.NewGroceryItem, model.GroceryItemPatch]{
			entity: "groceries",
			svc:    svc,
			meta: func(g *model.GroceryItem) (string, string, *string) {
				return g.ID, g.UserID, g.FamilyID
			},
			deprecated: []string{"unit", "notes", "checked"},
			sortOpts: func(sorting.State) []sorting.Option[model.GroceryItem] {
				return []sorting.Option[model.GroceryItem]{
					sorting.CompletedLast(func(g model.GroceryItem) bool { return g.Completed }),
				}
			},
			pub:    pub,
			logger: logger,
		},
		groceries: svc,
	}
}

// ClearCompleted handles DELETE /api/groceries/completed. Only the caller's
// own completed items are removed.
func (h *GroceryHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	var done []model.GroceryItem
	for _, g := range h.groceries.List(r.Context()) {
		if g.Completed && g.UserID == userID {
			done = append(done, g)
		}
	}

	n, err := h.groceries.ClearCompleted(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "clear completed groceries", err)
		return
	}
	for i := range done {
		h.publish(websocket.ActionDelete, &done[i])
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
