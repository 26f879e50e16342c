package store

import (
	"database/sql"
	"testing"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/database"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(email, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func TestUserCreate(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.Create("Alice@Example.com ", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.ID == "" {
		t.Error("expected non-empty ID")
	}
	if u.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	if _, err := us.Create("alice@example.com", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("ALICE@example.com", "hash"); err == nil {
		t.Fatal("expected error for duplicate email, got nil")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.GetByID("missing")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserGetByEmail(t *testing.T) {
	db := setupTestDB(t)
	created := createTestUser(t, db, "alice@example.com")

	u, err := NewUserStore(db).GetByEmail("Alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil || u.ID != created.ID {
		t.Fatalf("got %+v, want user %s", u, created.ID)
	}
}

func TestUserPasswordHash(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	created := createTestUser(t, db, "alice@example.com")

	if err := us.UpdatePassword(created.ID, "new-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	u, hash, err := us.PasswordHash("alice@example.com")
	if err != nil {
		t.Fatalf("password hash: %v", err)
	}
	if u == nil || hash != "new-hash" {
		t.Errorf("hash = %q, want %q", hash, "new-hash")
	}

	u, hash, err = us.PasswordHash("nobody@example.com")
	if err != nil {
		t.Fatalf("password hash: %v", err)
	}
	if u != nil || hash != "" {
		t.Error("expected no user for unknown email")
	}
}

func TestProfileCreateAndUpsert(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProfileStore(db)
	u := createTestUser(t, db, "alice@example.com")

	p, err := ps.Create(u.ID, "alice", "Alice")
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if p.Username != "alice" {
		t.Errorf("username = %q, want %q", p.Username, "alice")
	}

	if _, err := ps.Create(u.ID, "alice2", "Alice"); err == nil {
		t.Fatal("expected error creating a second profile")
	}

	p, err = ps.Upsert(u.ID, "ally", "Ally")
	if err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	if p.Username != "ally" || p.DisplayName != "Ally" {
		t.Errorf("profile = %+v, want ally/Ally", p)
	}
}

func TestProfileDeletedWithUser(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProfileStore(db)
	u := createTestUser(t, db, "alice@example.com")

	if _, err := ps.Create(u.ID, "alice", "Alice"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if err := NewUserStore(db).Delete(u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	p, err := ps.Get(u.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p != nil {
		t.Error("expected profile to cascade with its user")
	}
}
