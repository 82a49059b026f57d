package cookies

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// Stash keys for verified identities awaiting their follow-up step.
const (
	OnboardingEmailKey    = "onboardingEmail"
	ResetPasswordEmailKey = "resetPasswordEmail"
)

const stashCookieName = "sc_verify"

// Stash is the short-lived cookie-backed store that carries a verified target
// between the verify step and the completing step (onboarding or password
// reset). It is deliberately a separate store from the auth session cookie:
// different name, different secret, different lifetime, destroyed on consume.
type Stash struct {
	store *sessions.CookieStore
}

// NewStash builds a stash whose cookies expire after maxAge seconds.
func NewStash(secret string, maxAge int, secure bool) *Stash {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
	return &Stash{store: store}
}

// Get returns the stashed value for key, if any.
func (s *Stash) Get(r *http.Request, key string) (string, bool) {
	sess, err := s.store.Get(r, stashCookieName)
	if err != nil {
		return "", false
	}
	v, ok := sess.Values[key].(string)
	return v, ok && v != ""
}

// Set stores value under key and writes the stash cookie.
func (s *Stash) Set(w http.ResponseWriter, r *http.Request, key, value string) error {
	sess, _ := s.store.Get(r, stashCookieName)
	sess.Values[key] = value
	return sess.Save(r, w)
}

// Destroy expires the stash cookie and drops all stashed values.
func (s *Stash) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, stashCookieName)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
