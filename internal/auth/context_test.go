package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    "u1",
		Email:     "a@example.com",
		SessionID: "s1",
		FamilyID:  "f1",
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got != ac {
		t.Errorf("AuthContext = %+v, want %+v", got, ac)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: "u7"})
	if UserID(ctx) != "u7" {
		t.Errorf("UserID = %q, want %q", UserID(ctx), "u7")
	}
	if UserID(context.Background()) != "" {
		t.Error("expected empty user id for missing context")
	}
}

func TestFamilyID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{FamilyID: "f42"})
	if FamilyID(ctx) != "f42" {
		t.Errorf("FamilyID = %q, want %q", FamilyID(ctx), "f42")
	}
	if FamilyID(context.Background()) != "" {
		t.Error("expected empty family id for missing context")
	}
}
