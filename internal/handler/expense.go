package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/service"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/sorting"
)

const dateLayout = "2006-01-02"

type ExpenseHandler struct {
	crud[model.Expense, model.NewExpense, model.ExpensePatch]
	expenses *service.ExpenseService
}

func NewExpenseHandler(svc *service.ExpenseService, pub Publisher, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		crud: crud[model.Expense, model.NewExpense, model.ExpensePatch]{
			entity: "expenses",
			svc:    svc,
			meta: func(e *model.Expense) (string, string, *string) {
				return e.ID, e.UserID, e.FamilyID
			},
			sortOpts: func(sorting.State) []sorting.Option[model.Expense] { return nil },
			pub:      pub,
			logger:   logger,
		},
		expenses: svc,
	}
}

// Summary handles GET /api/expenses/summary?from=YYYY-MM-DD&to=YYYY-MM-DD.
// to is exclusive; both default to the current month.
func (h *ExpenseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		writeError(w, http.StatusBadRequest, "to must be after from")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(h.expenses.Summary(r.Context(), from, to)))
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, v)
}
