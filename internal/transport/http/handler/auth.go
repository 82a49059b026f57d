package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-auth-web/internal/application/auth"
	"github.com/go-auth-web/internal/domain"
	"github.com/go-auth-web/internal/infrastructure/cookies"
	"github.com/go-auth-web/internal/pkg/validate"
	"github.com/go-auth-web/internal/transport/http/middleware"
)

type SignupRequest struct {
	Email      string `json:"email" validate:"required,email"`
	RedirectTo string `json:"redirect_to"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type GoogleLoginRequest struct {
	IDToken  string `json:"id_token" validate:"required"`
	Remember bool   `json:"remember"`
}

type ForgotPasswordRequest struct {
	Email      string `json:"email" validate:"required,email"`
	RedirectTo string `json:"redirect_to"`
}

// AuthHandler handles signup, login and password-recovery entry points.
type AuthHandler struct {
	svc            auth.Service
	cookieLifetime time.Duration
	secureCookies  bool
}

func NewAuthHandler(svc auth.Service, cookieLifetime time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{svc: svc, cookieLifetime: cookieLifetime, secureCookies: secureCookies}
}

// Signup issues an onboarding verification code for a new email and responds
// with the verify page to redirect to. The account itself is created later,
// once the email is verified (see OnboardingHandler).
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Fields(req); errs != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}
	redirect, err := h.svc.Signup(r.Context(), req.Email, req.RedirectTo)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeFieldErrors(w, http.StatusConflict, map[string][]string{
				"email": {"A user already exists with this email"},
			})
			return
		}
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RedirectEnvelope{RedirectTo: redirect})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Fields(req); errs != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}
	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	h.setSessionCookie(w, result.Token, req.Remember)
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: result.Session})
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Fields(req); errs != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}
	result, err := h.svc.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	h.setSessionCookie(w, result.Token, req.Remember)
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: result.Session})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), claims.SessionID); err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	cookies.ClearSession(w, h.secureCookies)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

// ForgotPassword issues a reset_password verification code for an existing
// account and responds with the verify page to redirect to.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Fields(req); errs != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}
	redirect, err := h.svc.ForgotPassword(r.Context(), req.Email, req.RedirectTo)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeFieldErrors(w, http.StatusNotFound, map[string][]string{
				"email": {"No user exists with this email"},
			})
			return
		}
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RedirectEnvelope{RedirectTo: redirect})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, remember bool) {
	cookies.SetSession(w, token, remember, h.cookieLifetime, h.secureCookies)
}
