package handlers

import (
	"net/http"

	"mmanyinorie/internal/models"
	"mmanyinorie/internal/service"
)

// InvitationHandler handles invitation HTTP requests
type InvitationHandler struct {
	invitations *service.InvitationService
	communities *service.CommunityService
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(invitations *service.InvitationService, communities *service.CommunityService) *InvitationHandler {
	return &InvitationHandler{
		invitations: invitations,
		communities: communities,
	}
}

// Create invites an email address into the {cid} community. Role checks
// happen in the service so patriarch limits apply here too.
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	cu, ok := resolveMembership(w, r, h.communities)
	if !ok {
		return
	}
	var in service.InviteInput
	if !decodeJSON(w, r, &in) {
		return
	}

	inv, err := h.invitations.Invite(r.Context(), cu.CommunityID, cu.UserID, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create invitation")
		return
	}
	respondWithJSON(w, http.StatusCreated, inv)
}

func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	cu, ok := resolveMembership(w, r, h.communities)
	if !ok {
		return
	}
	if err := service.RequireAdmin(cu); err != nil {
		respondWithServiceError(w, err, "")
		return
	}

	list, err := h.invitations.ListForCommunity(r.Context(), cu.CommunityID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list invitations")
		return
	}
	if list == nil {
		list = []models.Invitation{}
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	cu, ok := resolveMembership(w, r, h.communities)
	if !ok {
		return
	}
	if err := service.RequireAdmin(cu); err != nil {
		respondWithServiceError(w, err, "")
		return
	}

	if err := h.invitations.Revoke(r.Context(), cu.CommunityID, r.PathValue("token")); err != nil {
		respondWithServiceError(w, err, "Failed to revoke invitation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get shows an invitation to whoever holds its token
func (h *InvitationHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invitations.Get(r.Context(), r.PathValue("token"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to load invitation")
		return
	}
	respondWithJSON(w, http.StatusOK, inv)
}

// Accept links the signed-in user to the invitation's community
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	cu, err := h.invitations.Accept(r.Context(), r.PathValue("token"), user.ID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to accept invitation")
		return
	}
	respondWithJSON(w, http.StatusOK, cu)
}
