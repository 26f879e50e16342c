package handler

import (
	"log/slog"
	"net/http"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/service"
)

type ProfileHandler struct {
	svc    *service.ProfileService
	logger *slog.Logger
}

func NewProfileHandler(svc *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.Update(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
