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
)

type OnboardingRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	AgreeToTerms    bool   `json:"agree_to_terms"`
	Remember        bool   `json:"remember"`
	RedirectTo      string `json:"redirect_to"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// OnboardingHandler finishes the two verification flows: account creation
// after an onboarding code, and password replacement after a reset code. Both
// are gated on the verify stash written by VerifyHandler.
type OnboardingHandler struct {
	svc            auth.Service
	stash          *cookies.Stash
	cookieLifetime time.Duration
	secureCookies  bool
}

func NewOnboardingHandler(svc auth.Service, stash *cookies.Stash, cookieLifetime time.Duration, secureCookies bool) *OnboardingHandler {
	return &OnboardingHandler{svc: svc, stash: stash, cookieLifetime: cookieLifetime, secureCookies: secureCookies}
}

func (h *OnboardingHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	email, ok := h.stash.Get(r, cookies.OnboardingEmailKey)
	if !ok {
		writeError(w, http.StatusUnauthorized, "email not verified; start over from signup")
		return
	}
	var req OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	errs := validate.Fields(req)
	if !req.AgreeToTerms {
		if errs == nil {
			errs = make(map[string][]string)
		}
		errs["agree_to_terms"] = append(errs["agree_to_terms"], "You must agree to the terms of service")
	}
	if errs != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}

	result, err := h.svc.Onboard(r.Context(), email, req.Password)
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

	// the verified email has served its purpose
	if err := h.stash.Destroy(w, r); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cookies.SetSession(w, result.Token, req.Remember, h.cookieLifetime, h.secureCookies)

	redirect := req.RedirectTo
	if redirect == "" {
		redirect = "/"
	}
	writeJSON(w, http.StatusCreated, SessionEnvelope{Session: result.Session, RedirectTo: redirect})
}

func (h *OnboardingHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	email, ok := h.stash.Get(r, cookies.ResetPasswordEmailKey)
	if !ok {
		writeError(w, http.StatusUnauthorized, "email not verified; start over from forgot-password")
		return
	}
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Fields(req); errs != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), email, req.Password); err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	if err := h.stash.Destroy(w, r); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{RedirectTo: "/login"})
}
