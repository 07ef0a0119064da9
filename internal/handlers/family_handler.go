package handlers

import (
	"net/http"
	"strings"

	"choreboard/internal/models"
	"choreboard/internal/service"
	"choreboard/internal/validation"
)

// FamilyHandler handles family membership endpoints
type FamilyHandler struct {
	familyService *service.FamilyService
	authService   *service.AuthService
	emailService  *service.EmailService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, authService *service.AuthService, emailService *service.EmailService) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
		authService:   authService,
		emailService:  emailService,
	}
}

type familyResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode"`
	CreatedBy  int64  `json:"createdBy"`
}

type memberResponse struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	FamilyRole  string `json:"familyRole"`
	Name        string `json:"name"`
}

type familyWithMembersResponse struct {
	Family  familyResponse   `json:"family"`
	Members []memberResponse `json:"members"`
}

func toFamilyResponse(family *models.Family) familyResponse {
	return familyResponse{
		ID:         family.ID,
		Name:       family.Name,
		InviteCode: family.InviteCode,
		CreatedBy:  family.CreatedBy,
	}
}

func toMembersResponse(members []models.Member) []memberResponse {
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			FamilyRole:  m.FamilyRole,
			Name:        m.Name,
		})
	}
	return out
}

// GetFamily returns the caller's family with members, or a null family when
// the caller has not joined one
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	fam, err := h.familyService.GetMyFamily(user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if fam == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"family": nil})
		return
	}

	writeJSON(w, http.StatusOK, familyWithMembersResponse{
		Family:  toFamilyResponse(&fam.Family),
		Members: toMembersResponse(fam.Members),
	})
}

type createFamilyRequest struct {
	Name string `json:"name"`
}

// CreateFamily creates a family and attaches the caller as its first member
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req createFamilyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	family, err := h.familyService.CreateFamily(user, strings.TrimSpace(req.Name))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFamilyResponse(family))
}

type joinFamilyRequest struct {
	InviteCode string `json:"inviteCode"`
}

// JoinFamily attaches the caller to the family behind an invite code
func (h *FamilyHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req joinFamilyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	family, err := h.familyService.JoinFamily(user, req.InviteCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFamilyResponse(family))
}

type guestJoinRequest struct {
	InviteCode  string `json:"inviteCode"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// GuestJoin creates a guest member inside a family and opens a session for
// it. This endpoint is unauthenticated: the invite code is the credential.
func (h *FamilyHandler) GuestJoin(w http.ResponseWriter, r *http.Request) {
	var req guestJoinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	guest, family, err := h.familyService.GuestJoin(req.InviteCode, req.DisplayName, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := openGuestSession(w, r, h.authService, guest.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":   toUserResponse(guest),
		"family": toFamilyResponse(family),
	})
}

type setProfileRequest struct {
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
}

// SetProfile sets the caller's family role and display name
func (h *FamilyHandler) SetProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req setProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.familyService.SetProfile(user, req.Role, strings.TrimSpace(req.DisplayName)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RegenerateInvite replaces the family invite code. The old code stops
// resolving immediately.
func (h *FamilyHandler) RegenerateInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	family, err := h.familyService.RegenerateInviteCode(user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFamilyResponse(family))
}

type emailInviteRequest struct {
	Email string `json:"email"`
}

// EmailInvite sends the family invite code to an email address
func (h *FamilyHandler) EmailInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req emailInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	recipient := strings.TrimSpace(req.Email)
	if err := validation.ValidateEmail(recipient); err != nil {
		writeServiceError(w, err)
		return
	}

	fam, err := h.familyService.GetMyFamily(user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if fam == nil {
		writeServiceError(w, service.ErrForbidden)
		return
	}

	if err := h.emailService.SendInvite(r.Context(), recipient, &fam.Family, user.ResolvedName()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
