package handler

import (
	"log/slog"
	"net/http"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/service"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/websocket"
)

// FamilyHandler serves families, members and invitations. resync is called
// with every user whose verified families may have changed.
type FamilyHandler struct {
	svc    *service.FamilyService
	pub    Publisher
	resync func(userID string)
	logger *slog.Logger
}

func NewFamilyHandler(svc *service.FamilyService, pub Publisher, resync func(userID string), logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{svc: svc, pub: pub, resync: resync, logger: logger}
}

func (h *FamilyHandler) memberChanged(action string, m *model.FamilyMember) {
	if h.resync != nil {
		h.resync(m.UserID)
	}
	if h.pub != nil {
		h.pub.Publish(websocket.NewRowChange("family_members", action, m.ID, m.UserID, &m.FamilyID, m))
	}
}

// ListFamilies handles GET /api/families
func (h *FamilyHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, emptyIfNil(h.svc.GetFamilies(r.Context())))
}

// CreateFamily handles POST /api/families
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := h.svc.CreateFamily(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, h.logger, "create family", err)
		return
	}
	if h.resync != nil {
		h.resync(auth.UserID(r.Context()))
	}
	writeJSON(w, http.StatusCreated, f)
}

// CurrentFamily handles GET /api/families/current. It answers null when
// the caller belongs to no family.
func (h *FamilyHandler) CurrentFamily(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.GetCurrentFamily(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "current family", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ListMembers handles GET /api/families/{id}/members
func (h *FamilyHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.GetFamilyMembers(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, "list family members", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(members))
}

// AddMember handles POST /api/families/{id}/members
func (h *FamilyHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string     `json:"email"`
		Role  model.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.svc.AddFamilyMember(r.Context(), r.PathValue("id"), req.Email, req.Role)
	if err != nil {
		writeServiceError(w, h.logger, "add family member", err)
		return
	}
	h.memberChanged(websocket.ActionInsert, m)
	writeJSON(w, http.StatusCreated, m)
}

// UpdateRole handles PUT /api/families/{id}/members/{user_id}/role
func (h *FamilyHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role model.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.svc.UpdateMemberRole(r.Context(), r.PathValue("id"), r.PathValue("user_id"), req.Role)
	if err != nil {
		writeServiceError(w, h.logger, "update member role", err)
		return
	}
	h.memberChanged(websocket.ActionUpdate, m)
	writeJSON(w, http.StatusOK, m)
}

// UpdateFeatures handles PUT /api/families/{id}/members/{user_id}/features
func (h *FamilyHandler) UpdateFeatures(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Features []model.Feature `json:"features"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.svc.UpdateMemberFeatures(r.Context(), r.PathValue("id"), r.PathValue("user_id"), req.Features)
	if err != nil {
		writeServiceError(w, h.logger, "update member features", err)
		return
	}
	h.memberChanged(websocket.ActionUpdate, m)
	writeJSON(w, http.StatusOK, m)
}

// RemoveMember handles DELETE /api/families/{id}/members/{user_id}
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	familyID, userID := r.PathValue("id"), r.PathValue("user_id")
	if err := h.svc.RemoveFamilyMember(r.Context(), familyID, userID); err != nil {
		writeServiceError(w, h.logger, "remove family member", err)
		return
	}
	h.memberChanged(websocket.ActionDelete, &model.FamilyMember{FamilyID: familyID, UserID: userID})
	w.WriteHeader(http.StatusNoContent)
}

// ListInvitations handles GET /api/invitations
func (h *FamilyHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, emptyIfNil(h.svc.GetPendingInvitations(r.Context())))
}

// AcceptInvitation handles POST /api/invitations/{family_id}/accept
func (h *FamilyHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("family_id")
	if err := h.svc.AcceptInvitation(r.Context(), familyID); err != nil {
		writeServiceError(w, h.logger, "accept invitation", err)
		return
	}
	userID := auth.UserID(r.Context())
	h.memberChanged(websocket.ActionUpdate, &model.FamilyMember{FamilyID: familyID, UserID: userID, IsVerified: true})
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// DeclineInvitation handles DELETE /api/invitations/{family_id}
func (h *FamilyHandler) DeclineInvitation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeclineInvitation(r.Context(), r.PathValue("family_id")); err != nil {
		writeServiceError(w, h.logger, "decline invitation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
