package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/services"
	pkghttp "github.com/BradenHooton/labsy/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AdminServiceInterface defines the admin console contract.
type AdminServiceInterface interface {
	CreateFactory(ctx context.Context, actor *models.Account, in services.FactoryInvitation) (*models.Account, error)
	CreateAdmin(ctx context.Context, actor *models.Account, in services.AdminInvitation) (*models.Account, error)
	UpdateUserStatus(ctx context.Context, actor *models.Account, targetID string, change services.StatusChange) (*models.Account, error)
	DeleteUser(ctx context.Context, actor *models.Account, targetID string) error
	ListUsers(ctx context.Context, filter models.AccountFilter) (*models.AccountPage, error)
	GetUser(ctx context.Context, id string) (*models.Account, error)
}

// AdminHandler handles admin console HTTP requests.
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// Request/Response DTOs

type FactoryLocationRequest struct {
	City        string `json:"city" validate:"required,max=100"`
	Region      string `json:"region" validate:"required,max=100"`
	Country     string `json:"country" validate:"required,max=100"`
	FullAddress string `json:"fullAddress" validate:"omitempty,max=300"`
	PostalCode  string `json:"postalCode" validate:"omitempty,max=20"`
}

type FactoryCapabilitiesRequest struct {
	PrintMethods      []string `json:"printMethods" validate:"omitempty,max=20,dive,min=1,max=50"`
	MaterialTypes     []string `json:"materialTypes" validate:"omitempty,max=20,dive,min=1,max=50"`
	ProductCategories []string `json:"productCategories" validate:"omitempty,max=20,dive,min=1,max=50"`
	MaxCapacityPerDay int      `json:"maxCapacityPerDay" validate:"omitempty,gt=0"`
}

// CreateFactoryRequest provisions a factory account
type CreateFactoryRequest struct {
	Name                       string                      `json:"name" validate:"required,person_name"`
	Email                      string                      `json:"email" validate:"required,email"`
	BusinessName               string                      `json:"businessName" validate:"required,min=2,max=100"`
	Phone                      string                      `json:"phone" validate:"omitempty,sa_phone"`
	BusinessDescription        string                      `json:"businessDescription" validate:"omitempty,max=1000"`
	BusinessRegistrationNumber string                      `json:"businessRegistrationNumber" validate:"omitempty,max=50"`
	TaxID                      string                      `json:"taxId" validate:"omitempty,max=50"`
	Location                   FactoryLocationRequest      `json:"location" validate:"required"`
	Capabilities               *FactoryCapabilitiesRequest `json:"capabilities"`
}

// CreateAdminRequest provisions an admin account
type CreateAdminRequest struct {
	Name        string   `json:"name" validate:"required,person_name"`
	Email       string   `json:"email" validate:"required,email"`
	Phone       string   `json:"phone" validate:"omitempty,sa_phone"`
	AdminRole   string   `json:"adminRole" validate:"required,oneof=super_admin admin moderator support"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
	Department  string   `json:"department" validate:"omitempty,max=100"`
	JobTitle    string   `json:"jobTitle" validate:"omitempty,max=100"`
	EmployeeID  string   `json:"employeeId" validate:"omitempty,max=50"`
	Notes       string   `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateUserStatusRequest moves an account to another status
type UpdateUserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended deleted"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
	Notes  string `json:"notes" validate:"omitempty,max=1000"`
}

// ListUsersResponse represents one page of accounts
type ListUsersResponse struct {
	Users       []*AccountResponse `json:"users"`
	Total       int64              `json:"total"`
	TotalPages  int                `json:"totalPages"`
	CurrentPage int                `json:"currentPage"`
	Limit       int                `json:"limit"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateFactory provisions a pending factory account and sends its invitation
//
// @Summary Create factory account
// @Accept json
// @Param request body CreateFactoryRequest true "Factory details"
// @Produce json
// @Success 201 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/factory [post]
func (h *AdminHandler) CreateFactory(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccountFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateFactoryRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	in := services.FactoryInvitation{
		Name:                       req.Name,
		Email:                      req.Email,
		BusinessName:               req.BusinessName,
		Phone:                      req.Phone,
		BusinessDescription:        req.BusinessDescription,
		BusinessRegistrationNumber: req.BusinessRegistrationNumber,
		TaxID:                      req.TaxID,
		Location: services.FactoryLocationInput{
			City:        req.Location.City,
			Region:      req.Location.Region,
			Country:     req.Location.Country,
			FullAddress: req.Location.FullAddress,
			PostalCode:  req.Location.PostalCode,
		},
	}
	if c := req.Capabilities; c != nil {
		in.Capabilities = models.FactoryCapabilities{
			PrintingMethods:   c.PrintMethods,
			Materials:         c.MaterialTypes,
			ProductTypes:      c.ProductCategories,
			MaxCapacityPerDay: c.MaxCapacityPerDay,
		}
	}

	account, err := h.service.CreateFactory(r.Context(), actor, in)
	if err != nil {
		respondError(w, r, err, "Failed to create factory account")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, accountModelToResponse(account))
}

// CreateAdmin provisions a pending admin account; super admins only
//
// @Summary Create admin account
// @Accept json
// @Param request body CreateAdminRequest true "Admin details"
// @Produce json
// @Success 201 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/admin [post]
func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccountFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateAdminRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	var perms []models.Permission
	if req.Permissions != nil {
		perms = make([]models.Permission, len(req.Permissions))
		for i, p := range req.Permissions {
			perms[i] = models.Permission(p)
		}
	}

	account, err := h.service.CreateAdmin(r.Context(), actor, services.AdminInvitation{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		AdminLevel:  models.AdminLevel(req.AdminRole),
		Permissions: perms,
		Department:  req.Department,
		JobTitle:    req.JobTitle,
		EmployeeID:  req.EmployeeID,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(w, r, err, "Failed to create admin account")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, accountModelToResponse(account))
}

// UpdateUserStatus changes the status of an account
//
// @Summary Update account status
// @Accept json
// @Param id path string true "Account ID"
// @Param request body UpdateUserStatusRequest true "New status"
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/status [put]
func (h *AdminHandler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccountFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	var req UpdateUserStatusRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	account, err := h.service.UpdateUserStatus(r.Context(), actor, targetID, services.StatusChange{
		Status: models.Status(req.Status),
		Reason: req.Reason,
		Notes:  req.Notes,
	})
	if err != nil {
		respondError(w, r, err, "User not found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(account))
}

// DeleteUser soft-deletes an account
//
// @Summary Delete account
// @Param id path string true "Account ID"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccountFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	if err := h.service.DeleteUser(r.Context(), actor, targetID); err != nil {
		respondError(w, r, err, "User not found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &MessageResponse{Message: "User deleted successfully"})
}

// ListUsers lists accounts filtered by role and status
//
// @Summary List accounts
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param role query string false "customer|creator|factory|admin"
// @Param status query string false "active|pending|suspended|deleted"
// @Produce json
// @Success 200 {object} ListUsersResponse
// @Failure 400 {object} ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := parseIntParam(q.Get("page"), 1)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid page parameter")
		return
	}
	limit, err := parseIntParam(q.Get("limit"), models.DefaultPageSize)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid limit parameter")
		return
	}

	filter := models.AccountFilter{
		Role:        models.Role(q.Get("role")),
		Status:      models.Status(q.Get("status")),
		PageRequest: models.PageRequest{Page: page, Limit: limit},
	}
	if filter.Role != "" && !filter.Role.Valid() {
		pkghttp.WriteBadRequest(w, "Invalid role parameter")
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		pkghttp.WriteBadRequest(w, "Invalid status parameter")
		return
	}

	result, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		respondError(w, r, err, "Failed to list users")
		return
	}

	users := make([]*AccountResponse, len(result.Accounts))
	for i, a := range result.Accounts {
		users[i] = accountModelToResponse(a)
	}

	pkghttp.WriteJSON(w, http.StatusOK, &ListUsersResponse{
		Users:       users,
		Total:       result.Total,
		TotalPages:  result.TotalPages,
		CurrentPage: result.Page,
		Limit:       result.Limit,
	})
}

// GetUser returns one account by id
//
// @Summary Get account
// @Param id path string true "Account ID"
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [get]
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, "User not found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(account))
}

// parseIntParam parses an optional integer query parameter; empty returns def.
// Range is enforced by the service through PageRequest.Normalize.
func parseIntParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
