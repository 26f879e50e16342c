package store

import (
	"testing"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

func TestGroceryCreateItem(t *testing.T) {
	db := setupTestDB(t)
	gs := NewGroceryStore(db)
	a := createTestUser(t, db, "a@example.com")

	item, err := gs.CreateItem(model.GroceryItem{Name: "Milk", Quantity: "2", Category: "dairy", UserID: a.ID})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Completed {
		t.Error("new item should not be completed")
	}
	if item.FamilyID != nil {
		t.Error("personal item should not carry a family id")
	}
	if item.Quantity != "2" || item.Category != "dairy" {
		t.Errorf("item = %+v, want quantity 2 dairy", item)
	}
}

func TestGroceryToggleAndClearCompleted(t *testing.T) {
	db := setupTestDB(t)
	gs := NewGroceryStore(db)
	a := createTestUser(t, db, "a@example.com")

	milk, _ := gs.CreateItem(model.GroceryItem{Name: "Milk", Quantity: "1", Category: "dairy", UserID: a.ID})
	gs.CreateItem(model.GroceryItem{Name: "Bread", Quantity: "1", Category: "bakery", UserID: a.ID})

	updated, err := gs.UpdateItem(milk.ID, a.ID, model.GroceryItemPatch{Completed: boolPtr(true)})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if !updated.Completed || updated.Name != "Milk" {
		t.Errorf("updated = %+v, want completed Milk", updated)
	}

	n, err := gs.ClearCompleted(a.ID)
	if err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if n != 1 {
		t.Errorf("cleared = %d, want 1", n)
	}
	items, _ := gs.ListVisible(a.ID, "")
	if len(items) != 1 || items[0].Name != "Bread" {
		t.Errorf("items = %+v, want [Bread]", items)
	}
}

func TestGroceryDeleteItem(t *testing.T) {
	db := setupTestDB(t)
	gs := NewGroceryStore(db)
	a := createTestUser(t, db, "a@example.com")

	item, _ := gs.CreateItem(model.GroceryItem{Name: "Milk", Quantity: "1", Category: "dairy", UserID: a.ID})
	ok, err := gs.DeleteItem(item.ID, a.ID)
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v; want true, nil", ok, err)
	}
	got, _ := gs.GetItemByID(item.ID)
	if got != nil {
		t.Error("expected item to be deleted")
	}
}
