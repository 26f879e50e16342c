package store

import (
	"testing"
	"time"
)

func TestSessionCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSessionStore(db)
	u := createTestUser(t, db, "alice@example.com")

	sess, err := ss.Create(u.ID, "hash-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.UserID != u.ID {
		t.Errorf("user_id = %q, want %q", sess.UserID, u.ID)
	}

	got, err := ss.GetByRefreshHash("hash-1")
	if err != nil {
		t.Fatalf("get by refresh hash: %v", err)
	}
	if got == nil || got.ID != sess.ID {
		t.Fatalf("got %+v, want session %s", got, sess.ID)
	}
}

func TestSessionExpired(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSessionStore(db)
	u := createTestUser(t, db, "alice@example.com")

	sess, err := ss.Create(u.ID, "hash-1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := ss.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Error("expected expired session to be hidden")
	}

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestSessionRotate(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSessionStore(db)
	u := createTestUser(t, db, "alice@example.com")

	sess, _ := ss.Create(u.ID, "hash-1", time.Now().Add(time.Hour))

	ok, err := ss.Rotate(sess.ID, "hash-1", "hash-2", time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if !ok {
		t.Fatal("expected first rotation to succeed")
	}

	ok, err = ss.Rotate(sess.ID, "hash-1", "hash-3", time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if ok {
		t.Error("expected reuse of an old refresh token to fail")
	}

	if got, _ := ss.GetByRefreshHash("hash-1"); got != nil {
		t.Error("old refresh hash should no longer resolve")
	}
}

func TestSessionDeleteByUser(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSessionStore(db)
	u := createTestUser(t, db, "alice@example.com")

	s1, _ := ss.Create(u.ID, "hash-1", time.Now().Add(time.Hour))
	s2, _ := ss.Create(u.ID, "hash-2", time.Now().Add(time.Hour))

	if err := ss.DeleteByUser(u.ID); err != nil {
		t.Fatalf("delete by user: %v", err)
	}
	for _, id := range []string{s1.ID, s2.ID} {
		if got, _ := ss.GetByID(id); got != nil {
			t.Errorf("session %s still present", id)
		}
	}
}

func TestPasswordResetSingleUse(t *testing.T) {
	db := setupTestDB(t)
	rs := NewPasswordResetStore(db)
	u := createTestUser(t, db, "alice@example.com")

	pr, err := rs.Create(u.ID, "reset-hash", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create reset: %v", err)
	}

	got, err := rs.GetValid("reset-hash")
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if got == nil || got.ID != pr.ID {
		t.Fatalf("got %+v, want reset %s", got, pr.ID)
	}

	ok, err := rs.MarkUsed(pr.ID)
	if err != nil || !ok {
		t.Fatalf("mark used = %v, %v; want true, nil", ok, err)
	}
	ok, _ = rs.MarkUsed(pr.ID)
	if ok {
		t.Error("expected second use to fail")
	}
	if got, _ := rs.GetValid("reset-hash"); got != nil {
		t.Error("used reset should not be valid")
	}
}

func TestPasswordResetInvalidatesPrevious(t *testing.T) {
	db := setupTestDB(t)
	rs := NewPasswordResetStore(db)
	u := createTestUser(t, db, "alice@example.com")

	if _, err := rs.Create(u.ID, "first", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create reset: %v", err)
	}
	if _, err := rs.Create(u.ID, "second", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create reset: %v", err)
	}

	if got, _ := rs.GetValid("first"); got != nil {
		t.Error("first token should be invalidated")
	}
	if got, _ := rs.GetValid("second"); got == nil {
		t.Error("second token should be valid")
	}
}

func TestPasswordResetExpired(t *testing.T) {
	db := setupTestDB(t)
	rs := NewPasswordResetStore(db)
	u := createTestUser(t, db, "alice@example.com")

	if _, err := rs.Create(u.ID, "old", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("create reset: %v", err)
	}
	if got, _ := rs.GetValid("old"); got != nil {
		t.Error("expired token should not be valid")
	}
}
