package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-auth-web/internal/application/auth"
	"github.com/go-auth-web/internal/application/verification"
	"github.com/go-auth-web/internal/domain"
	"github.com/go-auth-web/internal/infrastructure/cookies"
)

type VerifyRequest struct {
	Code       string `json:"code"`
	Type       string `json:"type"`
	Target     string `json:"target"`
	RedirectTo string `json:"redirect_to"`
}

// VerifyHandler validates one-time codes and runs the type-specific
// continuation. It serves both the emailed link (GET with query params) and
// the code-entry form submission (POST with a JSON body).
type VerifyHandler struct {
	verifier verification.Service
	auth     auth.Service
	stash    *cookies.Stash
}

func NewVerifyHandler(verifier verification.Service, authSvc auth.Service, stash *cookies.Stash) *VerifyHandler {
	return &VerifyHandler{verifier: verifier, auth: authSvc, stash: stash}
}

// continuation finishes a successful verification for one code type: it
// stashes the verified target and names the page the client should load next.
type continuation func(h *VerifyHandler, w http.ResponseWriter, r *http.Request, target string) (string, error)

var continuations = map[domain.VerificationType]continuation{
	domain.VerificationTypeOnboarding:    (*VerifyHandler).continueOnboarding,
	domain.VerificationTypeResetPassword: (*VerifyHandler).continueResetPassword,
}

func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	req := h.parseRequest(r)

	if errs := h.validateRequest(req); errs != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}
	typ := domain.VerificationType(req.Type)

	ok, err := h.verifier.Consume(r.Context(), req.Code, typ, req.Target)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		// wrong, expired, superseded or already-used code; any live record
		// stays in place so the user may retry
		writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
			"code": {"Invalid code"},
		})
		return
	}

	redirect, err := continuations[typ](h, w, r, req.Target)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RedirectEnvelope{RedirectTo: withRedirectTo(redirect, req.RedirectTo)})
}

func (h *VerifyHandler) continueOnboarding(w http.ResponseWriter, r *http.Request, target string) (string, error) {
	if err := h.stash.Set(w, r, cookies.OnboardingEmailKey, target); err != nil {
		return "", err
	}
	return "/onboarding", nil
}

func (h *VerifyHandler) continueResetPassword(w http.ResponseWriter, r *http.Request, target string) (string, error) {
	// the account may have been deleted since the code was issued
	if !h.auth.UserExists(r.Context(), target) {
		return "", domain.ErrNotFound
	}
	if err := h.stash.Set(w, r, cookies.ResetPasswordEmailKey, target); err != nil {
		return "", err
	}
	return "/reset-password", nil
}

// parseRequest reads the verification parameters from the JSON body on POST
// and from query parameters otherwise. The emailed link is a plain GET.
func (h *VerifyHandler) parseRequest(r *http.Request) VerifyRequest {
	if r.Method == http.MethodPost {
		var req VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			return req
		}
	}
	q := r.URL.Query()
	return VerifyRequest{
		Code:       q.Get(verification.CodeParam),
		Type:       q.Get(verification.TypeParam),
		Target:     q.Get(verification.TargetParam),
		RedirectTo: q.Get(verification.RedirectToParam),
	}
}

func (h *VerifyHandler) validateRequest(req VerifyRequest) map[string][]string {
	errs := make(map[string][]string)
	if req.Code == "" {
		errs["code"] = append(errs["code"], "Required")
	}
	if req.Target == "" {
		errs["target"] = append(errs["target"], "Required")
	}
	if !domain.VerificationType(req.Type).Valid() {
		errs["type"] = append(errs["type"], "Invalid verification type")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func withRedirectTo(page, redirectTo string) string {
	if redirectTo == "" {
		return page
	}
	u := url.URL{Path: page}
	q := u.Query()
	q.Set(verification.RedirectToParam, redirectTo)
	u.RawQuery = q.Encode()
	return u.String()
}
