package handler

import (
	"log/slog"
	"net/http"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

type AuthHandler struct {
	provider *auth.Provider
	logger   *slog.Logger
}

func NewAuthHandler(p *auth.Provider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{provider: p, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

type signUpResponse struct {
	User         *model.User    `json:"user"`
	Session      *model.Session `json:"session"`
	Profile      *model.Profile `json:"profile"`
	ProfileError string         `json:"profile_error,omitempty"`
	SessionError string         `json:"session_error,omitempty"`
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.provider.SignUp(req.Email, req.Password, req.Username)
	if err != nil {
		writeServiceError(w, h.logger, "sign up", err)
		return
	}
	resp := signUpResponse{User: res.User, Session: res.Session, Profile: res.Profile}
	if res.ProfileErr != nil {
		resp.ProfileError = "account created but profile could not be saved"
	}
	if res.SessionErr != nil {
		resp.SessionError = "account created but sign in failed, please sign in"
	}
	writeJSON(w, http.StatusCreated, resp)
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := h.provider.SignIn(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, "sign in", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	sess, err := h.provider.Refresh(req.RefreshToken)
	if err != nil {
		writeServiceError(w, h.logger, "refresh session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ResetPassword handles POST /api/auth/reset-password. It answers the same
// way whether or not the address has an account.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := h.provider.ResetPasswordForEmail(req.Email); err != nil {
		h.logger.Error("reset password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send reset email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// UpdatePassword handles POST /api/auth/update-password
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.provider.UpdatePassword(req.Token, req.Password); err != nil {
		writeServiceError(w, h.logger, "update password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	sess, err := h.provider.Session(ac)
	if err != nil {
		writeServiceError(w, h.logger, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := h.provider.SignOut(ac); err != nil {
		writeServiceError(w, h.logger, "sign out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
