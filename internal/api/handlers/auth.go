package handlers

import (
	"errors"
	"net/http"

	"github.com/hugh/zenshin-chart/internal/api/dto"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/locale"
)

type AuthHandler struct {
	authService *auth.Service
	resolver    *locale.Resolver
	cookies     CookieOptions
}

func NewAuthHandler(authService *auth.Service, resolver *locale.Resolver, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, resolver: resolver, cookies: cookies}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !readJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	// An explicit, supported locale wins; otherwise keep what the browser asked for.
	lang := req.Locale
	if !h.resolver.IsSupported(lang) {
		lang = h.resolver.FromRequest(r, "")
	}

	resp, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Locale:   lang,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			writeError(w, http.StatusConflict, "User already exists")
		default:
			writeError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	h.cookies.setSession(w, resp.Token)
	writeJSON(w, http.StatusCreated, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.NewUserDTO(resp.User),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !readJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, auth.ErrInactiveUser):
			writeError(w, http.StatusForbidden, "Account is inactive")
		default:
			writeError(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	h.cookies.setSession(w, resp.Token)
	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.NewUserDTO(resp.User),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clearSession(w)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}
