package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-auth-web/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FieldErrorsEnvelope carries per-field validation messages, shaped for form
// rendering on the client.
type FieldErrorsEnvelope struct {
	Errors map[string][]string `json:"errors"`
}

// SessionEnvelope wraps responses that establish or describe a login session.
// The cookie carries the credential; the body only describes the session.
type SessionEnvelope struct {
	Session    *domain.Session `json:"session,omitempty"`
	RedirectTo string          `json:"redirect_to,omitempty"`
}

// RedirectEnvelope tells the client where to navigate next.
type RedirectEnvelope struct {
	RedirectTo string `json:"redirect_to"`
}

// AvatarEnvelope wraps the presigned avatar URL.
type AvatarEnvelope struct {
	URL string `json:"url"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

func writeFieldErrors(w http.ResponseWriter, status int, errs map[string][]string) {
	writeJSON(w, status, FieldErrorsEnvelope{Errors: errs})
}

// statusFromErr maps sentinel domain errors to HTTP status codes.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
