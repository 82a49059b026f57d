package cookies

import (
	"net/http"
	"time"
)

// SessionCookieName is the long-lived auth session cookie. Its value is a
// signed token (see jwtinfra.Provider); the session itself lives server-side.
const SessionCookieName = "sc_session"

// SetSession writes the auth session cookie. When remember is false the
// cookie has no Max-Age and dies with the browser session; the server-side
// record still bounds its lifetime either way.
func SetSession(w http.ResponseWriter, token string, remember bool, lifetime time.Duration, secure bool) {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
	if remember {
		c.MaxAge = int(lifetime.Seconds())
		c.Expires = time.Now().Add(lifetime)
	}
	http.SetCookie(w, c)
}

// ClearSession expires the auth session cookie.
func ClearSession(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   -1,
	})
}

// SessionToken extracts the auth session token from the request, if present.
func SessionToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
