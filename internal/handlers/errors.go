package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mmanyinorie/internal/service"
	"mmanyinorie/internal/storage"
	"mmanyinorie/internal/validation"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		slog.Error(logMsg, "status", status, "error", err)
	}

	respondWithJSON(w, status, errorBody{Error: userMsg})
}

func respondWithJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return false
	}
	return true
}

// respondWithServiceError maps service errors to HTTP statuses.
// Anything unrecognized is logged and reported as a 500.
func respondWithServiceError(w http.ResponseWriter, err error, logMsg string) {
	var ve validation.ValidationError
	switch {
	case errors.As(err, &ve):
		respondWithJSON(w, http.StatusBadRequest, errorBody{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		respondWithError(w, http.StatusUnauthorized, err.Error(), "", nil)
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrInvitationNotFound),
		errors.Is(err, storage.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, service.ErrFamilyExists),
		errors.Is(err, service.ErrFamilyInUse),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInvitationUsed),
		errors.Is(err, service.ErrInvitationNotPending):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	case errors.Is(err, service.ErrInvitationExpired),
		errors.Is(err, service.ErrInvitationRevoked):
		respondWithError(w, http.StatusGone, err.Error(), "", nil)
	case errors.Is(err, storage.ErrTooLarge):
		respondWithError(w, http.StatusRequestEntityTooLarge, err.Error(), "", nil)
	case errors.Is(err, storage.ErrUnsupportedType):
		respondWithError(w, http.StatusUnsupportedMediaType, err.Error(), "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
