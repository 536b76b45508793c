package handlers

import (
	"net/http"

	"mmanyinorie/internal/models"
	"mmanyinorie/internal/service"
)

// CommunityHandler serves communities and everything scoped to one:
// settings, members, families, contribution templates, payments and reports.
type CommunityHandler struct {
	communities *service.CommunityService
	reports     *service.ReportService
}

// NewCommunityHandler creates a new community handler
func NewCommunityHandler(communities *service.CommunityService, reports *service.ReportService) *CommunityHandler {
	return &CommunityHandler{
		communities: communities,
		reports:     reports,
	}
}

// membership resolves the caller's role in the {cid} community, answering
// 404 for an unknown community and 403 for a non-member.
func (h *CommunityHandler) membership(w http.ResponseWriter, r *http.Request) (*models.CommunityUser, bool) {
	return resolveMembership(w, r, h.communities)
}

func resolveMembership(w http.ResponseWriter, r *http.Request, communities *service.CommunityService) (*models.CommunityUser, bool) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return nil, false
	}
	communityID := r.PathValue("cid")
	if _, err := communities.GetCommunity(r.Context(), communityID); err != nil {
		respondWithServiceError(w, err, "Failed to load community")
		return nil, false
	}
	cu, err := communities.Membership(r.Context(), communityID, user.ID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load membership")
		return nil, false
	}
	return cu, true
}

func (h *CommunityHandler) admin(w http.ResponseWriter, r *http.Request) (*models.CommunityUser, bool) {
	cu, ok := h.membership(w, r)
	if !ok {
		return nil, false
	}
	if err := service.RequireAdmin(cu); err != nil {
		respondWithServiceError(w, err, "")
		return nil, false
	}
	return cu, true
}

// CreateCommunity creates a community owned by the caller
func (h *CommunityHandler) CreateCommunity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user := GetUserFromContext(r.Context())
	community, err := h.communities.CreateCommunity(r.Context(), user.ID, req.Name)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create community")
		return
	}
	respondWithJSON(w, http.StatusCreated, community)
}

// ListCommunities lists the caller's communities with their role in each
func (h *CommunityHandler) ListCommunities(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	list, err := h.communities.ListCommunities(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list communities")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *CommunityHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.membership(w, r); !ok {
		return
	}
	settings, err := h.communities.GetSettings(r.Context(), r.PathValue("cid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to load settings")
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// UpdateSettings changes the tier boundaries and currency, which re-tiers every member
func (h *CommunityHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}
	var settings models.Settings
	if !decodeJSON(w, r, &settings) {
		return
	}

	n, err := h.communities.UpdateSettings(r.Context(), r.PathValue("cid"), settings)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update settings")
		return
	}
	stored, err := h.communities.GetSettings(r.Context(), r.PathValue("cid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to load settings")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"settings": stored, "recalculated": n})
}

func (h *CommunityHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.membership(w, r); !ok {
		return
	}
	members, err := h.communities.ListMembers(r.Context(), r.PathValue("cid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to list members")
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	respondWithJSON(w, http.StatusOK, members)
}

func (h *CommunityHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.membership(w, r); !ok {
		return
	}
	m, err := h.communities.GetMember(r.Context(), r.PathValue("cid"), r.PathValue("mid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to load member")
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

// AddMember adds a member. Patriarchs may only add to their own family.
func (h *CommunityHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.membership(w, r)
	if !ok {
		return
	}
	var in service.MemberInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.communities.CanManageFamily(r.Context(), cu, in.Family); err != nil {
		respondWithServiceError(w, err, "Failed to check family access")
		return
	}

	m, err := h.communities.AddMember(r.Context(), cu.CommunityID, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add member")
		return
	}
	respondWithJSON(w, http.StatusCreated, m)
}

// UpdateMember edits a member. Patriarchs may only edit within their own
// family and cannot move a member out of it.
func (h *CommunityHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.membership(w, r)
	if !ok {
		return
	}
	var in service.MemberInput
	if !decodeJSON(w, r, &in) {
		return
	}

	existing, err := h.communities.GetMember(r.Context(), cu.CommunityID, r.PathValue("mid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to load member")
		return
	}
	for _, family := range []string{existing.Family, in.Family} {
		if err := h.communities.CanManageFamily(r.Context(), cu, family); err != nil {
			respondWithServiceError(w, err, "Failed to check family access")
			return
		}
	}

	m, err := h.communities.UpdateMember(r.Context(), cu.CommunityID, existing.ID, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update member")
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

func (h *CommunityHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	if err := h.communities.DeleteMember(r.Context(), cu.CommunityID, r.PathValue("mid")); err != nil {
		respondWithServiceError(w, err, "Failed to delete member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommunityHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.membership(w, r); !ok {
		return
	}
	families, err := h.communities.ListFamilies(r.Context(), r.PathValue("cid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to list families")
		return
	}
	if families == nil {
		families = []models.Family{}
	}
	respondWithJSON(w, http.StatusOK, families)
}

type familyRequest struct {
	Name string `json:"name"`
}

func (h *CommunityHandler) AddFamily(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	var req familyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.communities.AddFamily(r.Context(), cu.CommunityID, req.Name)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add family")
		return
	}
	respondWithJSON(w, http.StatusCreated, f)
}

// UpdateFamily renames a family; every member shows the new name
func (h *CommunityHandler) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	var req familyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.communities.UpdateFamily(r.Context(), cu.CommunityID, r.PathValue("fid"), req.Name)
	if err != nil {
		respondWithServiceError(w, err, "Failed to rename family")
		return
	}
	respondWithJSON(w, http.StatusOK, f)
}

func (h *CommunityHandler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	if err := h.communities.DeleteFamily(r.Context(), cu.CommunityID, r.PathValue("fid")); err != nil {
		respondWithServiceError(w, err, "Failed to delete family")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommunityHandler) ListContributions(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.membership(w, r); !ok {
		return
	}
	list, err := h.communities.ListContributions(r.Context(), r.PathValue("cid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to list contributions")
		return
	}
	if list == nil {
		list = []models.CustomContribution{}
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *CommunityHandler) AddContribution(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	var in service.ContributionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.communities.AddCustomContribution(r.Context(), cu.CommunityID, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add contribution")
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CommunityHandler) UpdateContribution(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	var in service.ContributionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.communities.UpdateCustomContribution(r.Context(), cu.CommunityID, r.PathValue("id"), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update contribution")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CommunityHandler) DeleteContribution(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	if err := h.communities.DeleteCustomContribution(r.Context(), cu.CommunityID, r.PathValue("id")); err != nil {
		respondWithServiceError(w, err, "Failed to delete contribution")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recalculate re-derives age, tier and contribution for every member
func (h *CommunityHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	n, err := h.communities.RecalculateTiers(r.Context(), cu.CommunityID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to recalculate tiers")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *CommunityHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	var in service.PaymentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.communities.RecordPayment(r.Context(), cu.CommunityID, r.PathValue("mid"), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to record payment")
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *CommunityHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	var in service.PaymentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.communities.UpdatePayment(r.Context(), cu.CommunityID, r.PathValue("mid"), r.PathValue("pid"), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update payment")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *CommunityHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.admin(w, r)
	if !ok {
		return
	}
	if err := h.communities.DeletePayment(r.Context(), cu.CommunityID, r.PathValue("mid"), r.PathValue("pid")); err != nil {
		respondWithServiceError(w, err, "Failed to delete payment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ledger shows one member's paid and outstanding amounts per template
func (h *CommunityHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.membership(w, r)
	if !ok {
		return
	}
	ledger, err := h.reports.Ledger(r.Context(), cu.CommunityID, r.PathValue("mid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to build ledger")
		return
	}
	respondWithJSON(w, http.StatusOK, ledger)
}

// Report returns the community's financial summary
func (h *CommunityHandler) Report(w http.ResponseWriter, r *http.Request) {
	cu, ok := h.membership(w, r)
	if !ok {
		return
	}
	summary, err := h.reports.Summary(r.Context(), cu.CommunityID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to build report")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
