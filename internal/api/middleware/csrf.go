package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "csrf_token"
	csrfHeaderName  = "X-CSRF-Token"
	csrfFormField   = "csrf_token"
	csrfTokenExpiry = 24 * time.Hour
)

// CSRF implements the double-submit cookie check for cookie-authenticated
// requests. Safe methods get a token cookie; unsafe methods must echo it in
// the X-CSRF-Token header or the csrf_token form field. Requests carrying an
// Authorization header or no session cookie are not exposed to CSRF and pass.
func CSRF(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookieToken := ""
			if c, err := r.Cookie(csrfCookieName); err == nil {
				cookieToken = c.Value
			}

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				if cookieToken == "" {
					cookieToken = newCSRFToken()
					http.SetCookie(w, &http.Cookie{
						Name:     csrfCookieName,
						Value:    cookieToken,
						Path:     "/",
						HttpOnly: false, // read by page scripts
						Secure:   secure,
						SameSite: http.SameSiteLaxMode,
						MaxAge:   int(csrfTokenExpiry.Seconds()),
					})
				}
				ctx := context.WithValue(r.Context(), CSRFTokenKey, cookieToken)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if r.Header.Get("Authorization") != "" || !hasSessionCookie(r) {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(csrfHeaderName)
			if provided == "" {
				provided = r.FormValue(csrfFormField)
			}

			if cookieToken == "" || provided == "" {
				writeError(w, http.StatusForbidden, "CSRF token missing")
				return
			}
			if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(provided)) != 1 {
				writeError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasSessionCookie(r *http.Request) bool {
	c, err := r.Cookie(SessionCookie)
	return err == nil && c.Value != ""
}

func newCSRFToken() string {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// GetCSRFToken returns the token to embed in forms rendered for this request.
func GetCSRFToken(ctx context.Context) string {
	if t, ok := ctx.Value(CSRFTokenKey).(string); ok {
		return t
	}
	return ""
}
