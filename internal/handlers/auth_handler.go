package handlers

import (
	"net/http"
	"strings"

	"choreboard/internal/models"
	"choreboard/internal/security"
	"choreboard/internal/service"
	"choreboard/internal/validation"
)

// AuthHandler handles sign-in, sign-out, and the current-user endpoint
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	IdentityToken string `json:"identityToken"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	FamilyRole  string `json:"familyRole"`
	FamilyID    *int64 `json:"familyId"`
	AccountKind string `json:"accountKind"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		FamilyRole:  user.FamilyRole,
		FamilyID:    user.FamilyID,
		AccountKind: user.AccountKind,
	}
}

// Login exchanges an identity token for a session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.IdentityToken) == "" {
		writeServiceError(w, validation.ValidationError{Field: "identityToken", Message: "identity token is required"})
		return
	}

	user, session, err := h.authService.SignIn(req.IdentityToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Me returns the current identity, or a null user when no session exists
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"user": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": toUserResponse(user)})
}

// Logout removes the session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		if err := h.authService.Logout(cookie.Value); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// openGuestSession sets a session cookie for a freshly created guest user.
// Shared with the family handler's guest join.
func openGuestSession(w http.ResponseWriter, r *http.Request, authService *service.AuthService, userID int64) error {
	session, err := authService.OpenSessionFor(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))
	return nil
}
