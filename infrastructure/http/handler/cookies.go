package handler

import (
	"net/http"
	"time"

	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/http/middleware"
)

// CookieConfig controls the session cookies.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func (c CookieConfig) setSession(w http.ResponseWriter, pair *valueobject.TokenPair) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, pair.AccessToken, int(c.AccessTTL.Seconds())))
	http.SetCookie(w, c.cookie(middleware.RefreshTokenCookie, pair.RefreshToken, int(c.RefreshTTL.Seconds())))
}

func (c CookieConfig) clearAccess(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, "", -1))
}

func (c CookieConfig) clearRefresh(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(middleware.RefreshTokenCookie, "", -1))
}
