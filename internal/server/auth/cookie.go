package auth

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
)

// CookieTransport binds session tokens to the auth-token cookie.
type CookieTransport struct {
	name   string
	maxAge time.Duration
	secure bool
}

// NewCookieTransport returns a transport whose cookies live for maxAge.
// secure sets the Secure attribute and should be on whenever the site is
// served over TLS.
func NewCookieTransport(maxAge time.Duration, secure bool) *CookieTransport {
	return &CookieTransport{
		name:   common.SessionCookieName,
		maxAge: maxAge,
		secure: secure,
	}
}

// Attach sets the session cookie carrying token.
func (t *CookieTransport) Attach(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     t.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(t.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Detach instructs the client to drop the session cookie.
func (t *CookieTransport) Detach(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     t.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the token carried by r, if any.
func (t *CookieTransport) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(t.name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
