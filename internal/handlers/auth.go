package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/models"
	pkghttp "github.com/BradenHooton/labsy/pkg/http"
)

// AuthServiceInterface defines the interface for identity resolution
type AuthServiceInterface interface {
	VerifyToken(ctx context.Context, token string) (*models.Account, error)
	CompleteRegistration(ctx context.Context, token, email string) (*models.Account, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Request DTOs

// VerifyTokenRequest carries an identity-provider ID token
type VerifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// CompleteRegistrationRequest claims the pending invitation for email
type CompleteRegistrationRequest struct {
	Token string `json:"token" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// AuthResponse wraps the resolved account
type AuthResponse struct {
	User    *AccountResponse `json:"user"`
	Message string           `json:"message,omitempty"`
}

// Verify resolves the account behind an ID token, creating a customer on first login
//
// @Summary Verify ID token
// @Accept json
// @Param request body VerifyTokenRequest true "ID token"
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /auth/verify [post]
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyTokenRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	account, err := h.service.VerifyToken(r.Context(), req.Token)
	if err != nil {
		respondError(w, r, err, "Token verification failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &AuthResponse{User: accountModelToResponse(account)})
}

// Me returns the account loaded by the auth middleware
//
// @Summary Current account
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &AuthResponse{User: accountModelToResponse(account)})
}

// CompleteRegistration links a verified identity to the pending invitation of its email
//
// @Summary Complete invited registration
// @Accept json
// @Param request body CompleteRegistrationRequest true "Token and invited email"
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/complete-registration [post]
func (h *AuthHandler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req CompleteRegistrationRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	account, err := h.service.CompleteRegistration(r.Context(), req.Token, req.Email)
	if err != nil {
		respondError(w, r, err, "No pending invitation for this email")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &AuthResponse{
		User:    accountModelToResponse(account),
		Message: "Registration completed",
	})
}
