package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	ws "github.com/coder/websocket"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
)

// Authenticator validates an access token.
type Authenticator interface {
	Authenticate(accessToken string) (auth.AuthContext, error)
}

// FamilyLister returns the families a user is a verified member of.
type FamilyLister interface {
	VerifiedFamilyIDs(userID string) ([]string, error)
}

// HandleWebSocket returns an HTTP handler that authenticates the request,
// upgrades it to a WebSocket and runs it as a Hub client. Browsers cannot set
// headers on WebSocket requests, so the token may come from ?access_token=.
func HandleWebSocket(hub *Hub, authn Authenticator, families FamilyLister, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	logger = logger.With("component", "realtime")
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("access_token")
		if token == "" {
			token = bearerToken(r)
		}
		ac, err := authn.Authenticate(token)
		if err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		familyIDs, err := families.VerifiedFamilyIDs(ac.UserID)
		if err != nil {
			logger.Error("list families for realtime", "user_id", ac.UserID, "error", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns:     originPatterns,
			InsecureSkipVerify: len(originPatterns) == 0,
		})
		if err != nil {
			logger.Warn("accept websocket", "error", err)
			return
		}

		logger.Debug("realtime connected", "user_id", ac.UserID)
		client := NewClient(hub, conn, ac.UserID, familyIDs)
		client.Run(r.Context())
		logger.Debug("realtime disconnected", "user_id", ac.UserID)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
