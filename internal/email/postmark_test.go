package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, status int, received *postmarkEmail, gotToken *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(status)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSendPasswordReset(t *testing.T) {
	var received postmarkEmail
	var gotToken string
	server := newTestServer(t, http.StatusOK, &received, &gotToken)

	client := NewClient("test-token", "noreply@example.com", "https://choreo.test",
		WithHTTPClient(server.Client()), WithAPIURL(server.URL))

	if err := client.SendPasswordReset("alice@example.com", "abc123"); err != nil {
		t.Fatalf("send password reset: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if !strings.Contains(received.TextBody, "https://choreo.test/reset-password?token=abc123") {
		t.Errorf("TextBody missing reset link: %q", received.TextBody)
	}
}

func TestSendFamilyInvitation(t *testing.T) {
	var received postmarkEmail
	var gotToken string
	server := newTestServer(t, http.StatusOK, &received, &gotToken)

	client := NewClient("test-token", "noreply@example.com", "https://choreo.test", WithAPIURL(server.URL))

	if err := client.SendFamilyInvitation("bob@example.com", "Smiths", "alice@example.com"); err != nil {
		t.Fatalf("send invitation: %v", err)
	}
	if received.Subject != "You've been invited to Smiths on Choreo" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.HtmlBody, "https://choreo.test/family") {
		t.Errorf("HtmlBody missing family link: %q", received.HtmlBody)
	}
}

func TestSendAPIError(t *testing.T) {
	var received postmarkEmail
	var gotToken string
	server := newTestServer(t, http.StatusUnprocessableEntity, &received, &gotToken)

	client := NewClient("test-token", "noreply@example.com", "https://choreo.test", WithAPIURL(server.URL))
	if err := client.SendPasswordReset("alice@example.com", "abc"); err == nil {
		t.Fatal("expected error for 422 response")
	}
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://choreo.test")
	if client.Configured() {
		t.Error("expected Configured() = false")
	}
	if err := client.SendPasswordReset("alice@example.com", "abc"); err == nil {
		t.Fatal("expected error when not configured")
	}
}
