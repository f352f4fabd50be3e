package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
)

type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Locale   string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// ExternalUser is the identity returned by an OAuth provider.
type ExternalUser struct {
	Provider   string
	ExternalID string
	Email      string
	Name       string
}

// Register creates a user. No workspace is created here; the first visit to
// the workspace landing provisions one.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	email := normalizeEmail(input.Email)

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Locale:       input.Locale,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return s.respond(&user)
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(input.Email)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.respond(&user)
}

// IssueToken signs a session token for an already loaded user.
func (s *Service) IssueToken(user *models.User) (string, error) {
	return s.jwt.GenerateToken(user.ID, user.Email)
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpsertExternalUser finds the user by provider identity, falling back to
// email, and creates one when neither matches.
func (s *Service) UpsertExternalUser(ctx context.Context, info ExternalUser) (*models.User, error) {
	email := normalizeEmail(info.Email)
	if email == "" {
		return nil, fmt.Errorf("provider %s returned no email", info.Provider)
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("auth_provider = ? AND external_id = ?", info.Provider, info.ExternalID).
		First(&user).Error
	if err == nil {
		return s.activeOrErr(&user)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
			"auth_provider": info.Provider,
			"external_id":   info.ExternalID,
		}).Error; err != nil {
			return nil, fmt.Errorf("linking external identity: %w", err)
		}
		return s.activeOrErr(&user)
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:        email,
			Name:         strings.TrimSpace(info.Name),
			IsActive:     true,
			AuthProvider: info.Provider,
			ExternalID:   info.ExternalID,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("creating external user: %w", err)
		}
		return &user, nil
	default:
		return nil, err
	}
}

// UpdateLocale stores the user's language preference.
func (s *Service) UpdateLocale(ctx context.Context, userID uuid.UUID, locale string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("locale", locale)
	if res.Error != nil {
		return fmt.Errorf("updating locale: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) respond(user *models.User) (*AuthResponse, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

func (s *Service) activeOrErr(user *models.User) (*models.User, error) {
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
