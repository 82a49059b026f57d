package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-auth-web/internal/application/auth"
	"github.com/go-auth-web/internal/application/user"
	"github.com/go-auth-web/internal/infrastructure/cookies"
	"github.com/go-auth-web/internal/pkg/validate"
	"github.com/go-auth-web/internal/transport/http/middleware"
)

// maxAvatarBytes bounds avatar uploads; 5 MiB is plenty for a profile image.
const maxAvatarBytes = 5 << 20

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100"`
}

// ProfileHandler serves the authenticated /me surface.
type ProfileHandler struct {
	authSvc       auth.Service
	userSvc       user.Service
	secureCookies bool
}

func NewProfileHandler(authSvc auth.Service, userSvc user.Service, secureCookies bool) *ProfileHandler {
	return &ProfileHandler{authSvc: authSvc, userSvc: userSvc, secureCookies: secureCookies}
}

// Me returns the current session with its user attached.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.authSvc.Current(r.Context(), claims.SessionID)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: sess})
}

func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Fields(req); errs != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}
	if err := h.userSvc.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed"})
}

func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing avatar file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.userSvc.UploadAvatar(r.Context(), claims.UserID, file, contentType); err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "avatar uploaded"})
}

func (h *ProfileHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	url, err := h.userSvc.AvatarURL(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, AvatarEnvelope{URL: url})
}

func (h *ProfileHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.userSvc.DeleteAvatar(r.Context(), claims.UserID); err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "avatar deleted"})
}

// DeleteAccount disables the account and all its sessions, then clears the
// session cookie.
func (h *ProfileHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.userSvc.Delete(r.Context(), claims.UserID); err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	cookies.ClearSession(w, h.secureCookies)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}
