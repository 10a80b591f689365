package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rmfernandez/acadguard/internal/auth"
	"github.com/rmfernandez/acadguard/internal/models"
	"github.com/rmfernandez/acadguard/internal/services"
	pkghttp "github.com/rmfernandez/acadguard/pkg/http"
)

// LoginSecurityInterface defines the policy engine operations the handler needs
type LoginSecurityInterface interface {
	AttemptLogin(ctx context.Context, handle, password, ipAddress, userAgent string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*services.LoginResult, error)
	Logout(ctx context.Context, accountID, handle, sessionKey, ipAddress, userAgent string) error
}

// PasswordServiceInterface defines the credential-change operations
type PasswordServiceInterface interface {
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword, ipAddress, userAgent string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	security  LoginSecurityInterface
	passwords PasswordServiceInterface
	ipConfig  *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(security LoginSecurityInterface, passwords PasswordServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		security:  security,
		passwords: passwords,
		ipConfig:  ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Handle   string `json:"handle" validate:"required,min=1,max=150"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the request body for a token refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest represents the request body for a credential change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// AccountResponse represents an account in HTTP responses
type AccountResponse struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// LoginResponse represents the response for a successful login
type LoginResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	Account      *AccountResponse `json:"account"`
}

func toAccountResponse(account *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:       account.ID,
		Handle:   account.Handle,
		Email:    account.Email,
		FullName: account.FullName,
		Role:     account.Role,
	}
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 423 {object} pkghttp.LockedResponse
// @Failure 429 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Handle = strings.TrimSpace(req.Handle)

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	result, err := h.security.AttemptLogin(r.Context(), req.Handle, req.Password, ipAddress, userAgent)
	if err != nil {
		if locked, ok := models.AsAccountLocked(err); ok {
			pkghttp.WriteLocked(w, locked.RetryAfter)
			return
		}
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, models.ErrIPBlocked):
			pkghttp.WriteTooManyRequests(w, "Too many failed login attempts from this address. Please try again later.")
		case errors.Is(err, models.ErrTransientStorage):
			pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Temporary storage issue, please retry")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Account:      toAccountResponse(result.Account),
	})
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh tokens
// @Accept json
// @Param request body RefreshRequest true "Refresh request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Failure 423 {object} LockedResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	result, err := h.security.Refresh(r.Context(), req.RefreshToken, ipAddress, userAgent)
	if err != nil {
		if locked, ok := models.AsAccountLocked(err); ok {
			pkghttp.WriteLocked(w, locked.RetryAfter)
			return
		}
		if errors.Is(err, models.ErrInvalidCredentials) {
			pkghttp.WriteUnauthorized(w, "Invalid refresh token")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Account:      toAccountResponse(result.Account),
	})
}

// Logout handles user logout
// @Summary User logout
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAccountFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	// The token's JTI is the session key.
	if err := h.security.Logout(r.Context(), claims.AccountID, claims.Handle, claims.ID, ipAddress, userAgent); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles credential rotation for the authenticated account
// @Summary Change password
// @Accept json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Change password request"
// @Produce json
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAccountFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	err := h.passwords.ChangePassword(r.Context(), claims.AccountID, req.CurrentPassword, req.NewPassword, ipAddress, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		case errors.Is(err, models.ErrPasswordReused):
			pkghttp.WriteConflict(w, "New password was used recently. Choose a password you have not used before.")
		case errors.Is(err, models.ErrValidation):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
