package handlers

import (
	"net/http"
	"time"

	"github.com/dom/accounts-api/internal/api/middleware"
)

const (
	accessTokenCookie  = middleware.AccessTokenCookie
	refreshTokenCookie = "refreshToken"
)

// CookieOptions describes the session cookies set on login and refresh.
type CookieOptions struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (o CookieOptions) setSession(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, o.cookie(accessTokenCookie, accessToken, o.AccessTTL))
	http.SetCookie(w, o.cookie(refreshTokenCookie, refreshToken, o.RefreshTTL))
}

func (o CookieOptions) clearSession(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		c := o.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (o CookieOptions) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   o.Secure,
	}
}
