package store

import (
	"testing"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

func TestExpenseCreateKeepsCents(t *testing.T) {
	db := setupTestDB(t)
	es := NewExpenseStore(db)
	a := createTestUser(t, db, "a@example.com")

	e, err := es.Create(model.Expense{Title: "Groceries", Amount: 1234, Category: "food", Date: time.Now(), UserID: a.ID})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if e.Amount != 1234 {
		t.Errorf("amount = %v, want 12.34", e.Amount)
	}
}

func TestExpenseSummaryByCategory(t *testing.T) {
	db := setupTestDB(t)
	es := NewExpenseStore(db)
	a := createTestUser(t, db, "a@example.com")

	day := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	es.Create(model.Expense{Title: "a", Amount: 1000, Category: "food", Date: day, UserID: a.ID})
	es.Create(model.Expense{Title: "b", Amount: 550, Category: "food", Date: day, UserID: a.ID})
	es.Create(model.Expense{Title: "c", Amount: 200, Category: "fun", Date: day, UserID: a.ID})
	es.Create(model.Expense{Title: "d", Amount: 9999, Category: "food", Date: day.AddDate(0, 1, 0), UserID: a.ID})

	totals, err := es.SummaryByCategory(a.ID, "", day.AddDate(0, 0, -9), day.AddDate(0, 0, 21))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("len = %d, want 2", len(totals))
	}
	if totals[0].Category != "food" || totals[0].Total != 1550 || totals[0].Count != 2 {
		t.Errorf("food total = %+v, want 15.50 over 2", totals[0])
	}
	if totals[1].Category != "fun" || totals[1].Total != 200 {
		t.Errorf("fun total = %+v, want 2.00", totals[1])
	}
}

func TestExpenseUpdateAmount(t *testing.T) {
	db := setupTestDB(t)
	es := NewExpenseStore(db)
	a := createTestUser(t, db, "a@example.com")

	e, _ := es.Create(model.Expense{Title: "Taxi", Amount: 800, Category: "other", Date: time.Now(), UserID: a.ID})
	amount := model.Money(950)
	got, err := es.Update(e.ID, a.ID, model.ExpensePatch{Amount: &amount})
	if err != nil {
		t.Fatalf("update expense: %v", err)
	}
	if got.Amount != 950 || got.Title != "Taxi" {
		t.Errorf("got = %+v, want Taxi 9.50", got)
	}
}
