package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkordes/trek-booking/internal/domain"
)

const (
	AccessCookie  = "access-token"
	RefreshCookie = "refresh-token"
)

// CookieConfig controls the attributes of the session cookies.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// SetSessionCookies writes both tokens of s as cookies.
func SetSessionCookies(w http.ResponseWriter, s domain.Session, cfg CookieConfig) {
	http.SetCookie(w, sessionCookie(AccessCookie, s.AccessToken, int(cfg.MaxAge.Seconds()), cfg))
	http.SetCookie(w, sessionCookie(RefreshCookie, s.RefreshToken, int(cfg.MaxAge.Seconds()), cfg))
}

// ClearSessionCookies expires both session cookies.
func ClearSessionCookies(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, sessionCookie(AccessCookie, "", -1, cfg))
	http.SetCookie(w, sessionCookie(RefreshCookie, "", -1, cfg))
}

func sessionCookie(name, value string, maxAge int, cfg CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// AccessTokenFromRequest reads the access token from its cookie, falling back
// to an "Authorization: Bearer" header for non-browser clients.
func AccessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// RefreshTokenFromRequest reads the refresh token cookie.
func RefreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookie); err == nil {
		return c.Value
	}
	return ""
}
