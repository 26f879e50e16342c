package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
)

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(token string) (auth.AuthContext, error) {
	if token != "valid" {
		return auth.AuthContext{}, errors.New("invalid token")
	}
	return auth.AuthContext{UserID: "user-1", Email: "alice@example.com", SessionID: "sess-1"}, nil
}

type stubMembers map[string]bool

func (m stubMembers) IsMember(familyID, userID string) (bool, error) {
	if familyID == "broken" {
		return false, errors.New("db down")
	}
	return m[familyID+"/"+userID], nil
}

func protected(t *testing.T, reached *auth.AuthContext) http.Handler {
	return RequireAuth(stubAuthenticator{}, stubMembers{"fam-1/user-1": true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		*reached = ac
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAuthNoToken(t *testing.T) {
	var ac auth.AuthContext
	req := httptest.NewRequest("GET", "/api/chores", nil)
	rec := httptest.NewRecorder()
	protected(t, &ac).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if ac.UserID != "" {
		t.Error("handler should not be reached")
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	var ac auth.AuthContext
	req := httptest.NewRequest("GET", "/api/chores", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	protected(t, &ac).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	var ac auth.AuthContext
	req := httptest.NewRequest("GET", "/api/chores", nil)
	req.Header.Set("Authorization", "bearer valid")
	rec := httptest.NewRecorder()
	protected(t, &ac).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ac.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", ac.UserID, "user-1")
	}
	if ac.FamilyID != "" {
		t.Errorf("FamilyID = %q, want empty", ac.FamilyID)
	}
}

func TestRequireAuthFamilyHeader(t *testing.T) {
	tests := []struct {
		family     string
		wantStatus int
	}{
		{"fam-1", http.StatusOK},
		{"fam-2", http.StatusForbidden},
		{"broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		var ac auth.AuthContext
		req := httptest.NewRequest("GET", "/api/chores", nil)
		req.Header.Set("Authorization", "Bearer valid")
		req.Header.Set(FamilyHeader, tt.family)
		rec := httptest.NewRecorder()
		protected(t, &ac).ServeHTTP(rec, req)

		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.family, rec.Code, tt.wantStatus)
		}
		if tt.wantStatus == http.StatusOK && ac.FamilyID != tt.family {
			t.Errorf("%s: FamilyID = %q", tt.family, ac.FamilyID)
		}
	}
}

func TestRequestLoggerIncludesUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var ac auth.AuthContext
	handler := RequestLogger(logger)(protected(t, &ac))

	req := httptest.NewRequest("GET", "/api/chores", nil)
	req.Header.Set("Authorization", "Bearer valid")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"level=INFO", "path=/api/chores", "status=200", "user_id=user-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}

	buf.Reset()
	req = httptest.NewRequest("GET", "/api/chores", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "status=401") {
		t.Errorf("unauthorized request log = %q", buf.String())
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := BearerToken(req); got != "" {
		t.Errorf("BearerToken = %q, want empty", got)
	}
	req.Header.Set("Authorization", "Basic abc")
	if got := BearerToken(req); got != "" {
		t.Errorf("BearerToken = %q, want empty", got)
	}
	req.Header.Set("Authorization", "Bearer  abc ")
	if got := BearerToken(req); got != "abc" {
		t.Errorf("BearerToken = %q, want %q", got, "abc")
	}
}
