package handlers

import (
	"errors"
	"net/http"
	"time"

	"mmanyinorie/internal/models"
	"mmanyinorie/internal/security"
	"mmanyinorie/internal/service"
	"mmanyinorie/internal/storage"
)

// AuthHandler handles authentication and profile HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	csrf                 *security.CSRFGenerator
	avatars              *storage.AvatarStore
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	appBaseURL           string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, csrf *security.CSRFGenerator, avatars *storage.AvatarStore, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL, appBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		csrf:                 csrf,
		avatars:              avatars,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		appBaseURL:           appBaseURL,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type sessionResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
	CSRFToken string       `json:"csrfToken"`
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, session *models.Session, user *models.User) {
	csrfToken, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to generate CSRF token", err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	respondWithJSON(w, status, sessionResponse{
		User:      user,
		Token:     session.ID,
		ExpiresAt: &session.ExpiresAt,
		CSRFToken: csrfToken,
	})
}

// Register creates an account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name); err != nil {
		respondWithServiceError(w, err, "Failed to register user")
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to sign in after registration")
		return
	}
	h.startSession(w, r, http.StatusCreated, session, user)
}

// Login signs in with email and password
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to login")
		return
	}
	h.startSession(w, r, http.StatusOK, session, user)
}

// Logout ends the current session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), GetSessionIDFromContext(r.Context())); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to logout", err)
		return
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user and the CSRF token for cookie clients
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	csrfToken, err := h.csrf.GenerateToken(GetSessionIDFromContext(r.Context()))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to generate CSRF token", err)
		return
	}
	respondWithJSON(w, http.StatusOK, sessionResponse{User: user, CSRFToken: csrfToken})
}

// UpdateProfile changes the signed-in user's display name
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.authService.UpdateName(r.Context(), GetUserFromContext(r.Context()).ID, req.Name)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update profile")
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// UploadAvatar stores the multipart "file" as the user's avatar and returns
// its tokenized download URL.
func (h *AuthHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	// leave room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.avatars.MaxSize()+64<<10)

	file, _, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithServiceError(w, storage.ErrTooLarge, "")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Missing file", "", nil)
		return
	}
	defer file.Close()

	url, err := h.avatars.Save(user.ID, file)
	if err != nil {
		respondWithServiceError(w, err, "Failed to store avatar")
		return
	}
	if err := h.authService.UpdateAvatar(r.Context(), user.ID, url); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to update avatar", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}

// ServeAvatar streams an avatar when the request carries a valid token
func (h *AuthHandler) ServeAvatar(w http.ResponseWriter, r *http.Request) {
	f, contentType, err := h.avatars.Open(r.PathValue("uid"), r.URL.Query().Get("token"))
	if errors.Is(err, storage.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
		return
	}
	defer f.Close()

	var modTime time.Time
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, "", modTime, f)
}
