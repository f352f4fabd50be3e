package handlers

import (
	"net/http"
	"time"

	"github.com/hugh/zenshin-chart/internal/api/middleware"
)

// CookieOptions controls the session cookie written after sign-in.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

func (o CookieOptions) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(o.MaxAge.Seconds()),
	})
}

func (o CookieOptions) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		MaxAge:   -1,
	})
}

// setShortLived writes an HttpOnly cookie used during a redirect round trip.
func (o CookieOptions) setShortLived(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func (o CookieOptions) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", HttpOnly: true, Secure: o.Secure, MaxAge: -1})
}
