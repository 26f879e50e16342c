package middleware

import (
	"net/http"
	"strings"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
)

// FamilyHeader selects the family a request acts in.
const FamilyHeader = "X-Family-ID"

// Authenticator validates an access token.
type Authenticator interface {
	Authenticate(accessToken string) (auth.AuthContext, error)
}

// MembershipChecker reports whether a user is a verified family member.
type MembershipChecker interface {
	IsMember(familyID, userID string) (bool, error)
}

// RequireAuth validates the bearer access token and populates AuthContext.
// A family selected through X-Family-ID is only accepted when the caller is
// a verified member of it.
func RequireAuth(authn Authenticator, members MembershipChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			ac, err := authn.Authenticate(token)
			if err != nil {
				unauthorized(w)
				return
			}

			if familyID := strings.TrimSpace(r.Header.Get(FamilyHeader)); familyID != "" {
				ok, err := members.IsMember(familyID, ac.UserID)
				if err != nil {
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				if !ok {
					writeError(w, http.StatusForbidden, "not a member of the selected family")
					return
				}
				ac.FamilyID = familyID
			}

			setUser(r.Context(), ac.UserID)
			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="choreo"`)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
