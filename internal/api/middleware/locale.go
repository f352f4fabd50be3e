package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/locale"
)

// UserReader loads the signed-in user for their stored preferences.
type UserReader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Locale stores the request locale resolved from the cookie and
// Accept-Language. UserLocale refines it once the user is known.
func Locale(resolver *locale.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LocaleKey, resolver.FromRequest(r, ""))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserLocale re-resolves with the user's stored locale, which outranks
// Accept-Language but not the cookie. It runs after Auth or OptionalAuth;
// anonymous requests keep the value set by Locale.
func UserLocale(resolver *locale.Resolver, users UserReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == uuid.Nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), LocaleKey, resolver.FromRequest(r, user.Locale))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetLocale(ctx context.Context) string {
	if l, ok := ctx.Value(LocaleKey).(string); ok {
		return l
	}
	return ""
}
