package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
)

// Authenticator defines the interface for user authentication operations.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpsertExternalUser(ctx context.Context, info ExternalUser) (*models.User, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID uuid.UUID, email string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// IdentityProvider is the external OAuth provider behind /auth/callback.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalUser, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator    = (*Service)(nil)
	_ TokenService     = (*JWTService)(nil)
	_ IdentityProvider = (*OAuthProvider)(nil)
)
