package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// CookieName is the name of the session cookie
	CookieName = "aura_session"
	// CookieMaxAge is how long a browser keeps the session id
	CookieMaxAge = 30 * time.Minute

	headerSessionID = "X-Session-Id"
)

// SetSessionCookie sets an HTTP-only session cookie
func SetSessionCookie(w http.ResponseWriter, sessionID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// GetSessionCookie reads the session ID from the cookie
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// resolveSession picks the session id for a request: the body's, then the
// cookie's, then a fresh one. Ids only label responses; nothing is stored.
func resolveSession(w http.ResponseWriter, r *http.Request, requested string) string {
	sid := strings.TrimSpace(requested)
	if sid == "" {
		if c, err := GetSessionCookie(r); err == nil {
			sid = strings.TrimSpace(c)
		}
	}
	if sid == "" || len(sid) > 128 {
		sid = uuid.NewString()
	}
	SetSessionCookie(w, sid, r.TLS != nil)
	w.Header().Set(headerSessionID, sid)
	return sid
}
