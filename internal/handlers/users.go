package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/services"
	pkghttp "github.com/BradenHooton/labsy/pkg/http"
)

// multipartMemory is the part of a multipart body kept in memory; the rest spills to disk.
const multipartMemory = 8 << 20

// ProfileService defines the interface for self-service registration and profiles
type ProfileService interface {
	RegisterCustomer(ctx context.Context, identity *auth.Identity, in services.CustomerRegistration) (*models.Account, error)
	RegisterCreator(ctx context.Context, identity *auth.Identity, in services.CreatorRegistration) (*models.Account, error)
	GetProfile(ctx context.Context, accountID string) (*models.Account, error)
	UpdateCustomerProfile(ctx context.Context, accountID string, upd services.CustomerProfileUpdate) (*models.Account, error)
	UpdateCreatorProfile(ctx context.Context, accountID string, upd services.CreatorProfileUpdate) (*models.Account, error)
	ChangeProfilePicture(ctx context.Context, accountID string, file io.Reader) (*models.Account, error)
	RemoveProfilePicture(ctx context.Context, accountID string) (*models.Account, error)
}

// UserHandler handles registration and profile HTTP requests
type UserHandler struct {
	service         ProfileService
	maxPictureBytes int64
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service ProfileService, maxPictureBytes int64) *UserHandler {
	return &UserHandler{
		service:         service,
		maxPictureBytes: maxPictureBytes,
	}
}

// Request DTOs

// SocialMediaLinksRequest holds creator social links; each must point at its platform
type SocialMediaLinksRequest struct {
	Instagram string `json:"instagram,omitempty" validate:"omitempty,social=instagram"`
	Facebook  string `json:"facebook,omitempty" validate:"omitempty,social=facebook"`
	Twitter   string `json:"twitter,omitempty" validate:"omitempty,social=twitter"`
	TikTok    string `json:"tiktok,omitempty" validate:"omitempty,social=tiktok"`
	YouTube   string `json:"youtube,omitempty" validate:"omitempty,social=youtube"`
	Website   string `json:"website,omitempty" validate:"omitempty,url"`
}

func (l *SocialMediaLinksRequest) toModel() models.SocialMediaLinks {
	if l == nil {
		return models.SocialMediaLinks{}
	}
	return models.SocialMediaLinks{
		Instagram: l.Instagram,
		Facebook:  l.Facebook,
		Twitter:   l.Twitter,
		TikTok:    l.TikTok,
		YouTube:   l.YouTube,
		Website:   l.Website,
	}
}

// RegisterCustomerRequest represents the request body for customer sign-up
type RegisterCustomerRequest struct {
	Name              string `json:"name" validate:"omitempty,person_name"`
	Phone             string `json:"phone" validate:"omitempty,sa_phone"`
	PreferredLanguage string `json:"preferredLanguage" validate:"omitempty,oneof=ar en"`
}

// RegisterCreatorRequest represents the request body for creator sign-up
type RegisterCreatorRequest struct {
	Name                string                   `json:"name" validate:"omitempty,person_name"`
	BusinessName        string                   `json:"businessName" validate:"required,min=2,max=100"`
	BusinessDescription string                   `json:"businessDescription" validate:"omitempty,max=1000"`
	Phone               string                   `json:"phone" validate:"omitempty,sa_phone"`
	SocialMediaLinks    *SocialMediaLinksRequest `json:"socialMediaLinks"`
}

// ShippingAddressRequest is one customer shipping address
type ShippingAddressRequest struct {
	ID            string `json:"id" validate:"omitempty,max=64"`
	Label         string `json:"label" validate:"required,max=50"`
	RecipientName string `json:"recipientName" validate:"required,person_name"`
	Phone         string `json:"phone" validate:"required,sa_phone"`
	AddressLine1  string `json:"addressLine1" validate:"required,max=200"`
	AddressLine2  string `json:"addressLine2" validate:"omitempty,max=200"`
	City          string `json:"city" validate:"required,max=100"`
	State         string `json:"state" validate:"omitempty,max=100"`
	PostalCode    string `json:"postalCode" validate:"omitempty,max=20"`
	Country       string `json:"country" validate:"required,max=100"`
	IsDefault     bool   `json:"isDefault"`
}

// UpdateCustomerProfileRequest lists the fields a customer may change
type UpdateCustomerProfileRequest struct {
	Name                 *string                      `json:"name" validate:"omitempty,person_name"`
	Phone                *string                      `json:"phone" validate:"omitempty,sa_phone"`
	PreferredLanguage    *string                      `json:"preferredLanguage" validate:"omitempty,oneof=ar en"`
	DateOfBirth          *string                      `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender               *string                      `json:"gender" validate:"omitempty,oneof=male female"`
	ShippingAddresses    []ShippingAddressRequest     `json:"shippingAddresses" validate:"omitempty,max=10,dive"`
	MarketingPreferences *models.MarketingPreferences `json:"marketingPreferences"`
}

// UpdateCreatorProfileRequest lists the fields a creator may change
type UpdateCreatorProfileRequest struct {
	Name                *string                  `json:"name" validate:"omitempty,person_name"`
	BusinessName        *string                  `json:"businessName" validate:"omitempty,min=2,max=100"`
	BusinessDescription *string                  `json:"businessDescription" validate:"omitempty,max=1000"`
	Phone               *string                  `json:"phone" validate:"omitempty,sa_phone"`
	BusinessAddress     *string                  `json:"businessAddress" validate:"omitempty,max=500"`
	SocialMediaLinks    *SocialMediaLinksRequest `json:"socialMediaLinks"`
	Categories          []string                 `json:"categories" validate:"omitempty,max=20,dive,min=1,max=50"`
}

// RegisterCustomer creates a customer account for the signed-in identity
//
// @Summary Register as customer
// @Accept json
// @Param request body RegisterCustomerRequest true "Customer details"
// @Produce json
// @Success 201 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/register/customer [post]
func (h *UserHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromContext(r)
	if identity == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req RegisterCustomerRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	account, err := h.service.RegisterCustomer(r.Context(), identity, services.CustomerRegistration{
		Name:              req.Name,
		Phone:             req.Phone,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		respondError(w, r, err, "Registration failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, accountModelToResponse(account))
}

// RegisterCreator creates a creator account for the signed-in identity
//
// @Summary Register as creator
// @Accept json
// @Param request body RegisterCreatorRequest true "Creator details"
// @Produce json
// @Success 201 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/register/creator [post]
func (h *UserHandler) RegisterCreator(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromContext(r)
	if identity == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req RegisterCreatorRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	account, err := h.service.RegisterCreator(r.Context(), identity, services.CreatorRegistration{
		Name:                req.Name,
		BusinessName:        req.BusinessName,
		BusinessDescription: req.BusinessDescription,
		Phone:               req.Phone,
		SocialMediaLinks:    req.SocialMediaLinks.toModel(),
	})
	if err != nil {
		respondError(w, r, err, "Registration failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, accountModelToResponse(account))
}

// GetProfile returns the profile of the signed-in account
//
// @Summary Get own profile
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), account.ID)
	if err != nil {
		respondError(w, r, err, "User not found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(profile))
}

// UpdateProfile applies a role-scoped profile update. Fields of another role are rejected.
//
// @Summary Update own profile
// @Accept json
// @Param request body UpdateCustomerProfileRequest true "Customer or creator fields"
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /users/profile [put]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var (
		updated *models.Account
		err     error
	)
	switch account.Role {
	case models.RoleCustomer:
		var req UpdateCustomerProfileRequest
		if !decodeRequest(w, r, &req, true) {
			return
		}
		upd, convErr := req.toUpdate()
		if convErr != nil {
			pkghttp.WriteValidationError(w, []pkghttp.FieldError{{
				Field:   "dateOfBirth",
				Rule:    "datetime",
				Message: "dateOfBirth must be a date in the format 2006-01-02",
			}})
			return
		}
		updated, err = h.service.UpdateCustomerProfile(r.Context(), account.ID, upd)
	case models.RoleCreator:
		var req UpdateCreatorProfileRequest
		if !decodeRequest(w, r, &req, true) {
			return
		}
		updated, err = h.service.UpdateCreatorProfile(r.Context(), account.ID, req.toUpdate())
	default:
		pkghttp.WriteForbidden(w, "Profile updates are not available for this role")
		return
	}

	if err != nil {
		respondError(w, r, err, "Profile update failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(updated))
}

func (req *UpdateCustomerProfileRequest) toUpdate() (services.CustomerProfileUpdate, error) {
	upd := services.CustomerProfileUpdate{
		Name:                 req.Name,
		Phone:                req.Phone,
		PreferredLanguage:    req.PreferredLanguage,
		Gender:               req.Gender,
		MarketingPreferences: req.MarketingPreferences,
	}

	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return upd, err
		}
		upd.DateOfBirth = &dob
	}

	if req.ShippingAddresses != nil {
		upd.ShippingAddresses = make([]models.ShippingAddress, len(req.ShippingAddresses))
		for i, a := range req.ShippingAddresses {
			upd.ShippingAddresses[i] = models.ShippingAddress{
				ID:            a.ID,
				Label:         a.Label,
				RecipientName: a.RecipientName,
				Phone:         a.Phone,
				AddressLine1:  a.AddressLine1,
				AddressLine2:  a.AddressLine2,
				City:          a.City,
				State:         a.State,
				PostalCode:    a.PostalCode,
				Country:       a.Country,
				IsDefault:     a.IsDefault,
			}
		}
	}
	return upd, nil
}

func (req *UpdateCreatorProfileRequest) toUpdate() services.CreatorProfileUpdate {
	upd := services.CreatorProfileUpdate{
		Name:                req.Name,
		BusinessName:        req.BusinessName,
		BusinessDescription: req.BusinessDescription,
		Phone:               req.Phone,
		BusinessAddress:     req.BusinessAddress,
		Categories:          req.Categories,
	}
	if req.SocialMediaLinks != nil {
		links := req.SocialMediaLinks.toModel()
		upd.SocialMediaLinks = &links
	}
	return upd
}

// UploadProfilePicture replaces the profile picture with the multipart "file" part
//
// @Summary Upload profile picture
// @Accept multipart/form-data
// @Param file formData file true "JPEG, PNG or WebP image"
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Router /users/profile/picture [post]
func (h *UserHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	file, _, ok := formFile(w, r, h.maxPictureBytes)
	if !ok {
		return
	}
	defer file.Close()

	updated, err := h.service.ChangeProfilePicture(r.Context(), account.ID, file)
	if err != nil {
		respondError(w, r, err, "Profile picture upload failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(updated))
}

// DeleteProfilePicture removes the profile picture
//
// @Summary Delete profile picture
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 401 {object} ErrorResponse
// @Router /users/profile/picture [delete]
func (h *UserHandler) DeleteProfilePicture(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	updated, err := h.service.RemoveProfilePicture(r.Context(), account.ID)
	if err != nil {
		respondError(w, r, err, "User not found")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(updated))
}

// formFile reads the "file" part of a multipart body capped at maxBytes plus form overhead.
// It writes the error response itself and returns ok=false on failure.
func formFile(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			pkghttp.WritePayloadTooLarge(w, "File is too large")
			return nil, nil, false
		}
		pkghttp.WriteBadRequest(w, "Request must be multipart/form-data")
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		pkghttp.WriteValidationError(w, []pkghttp.FieldError{{
			Field:   "file",
			Rule:    "required",
			Message: "file is required",
		}})
		return nil, nil, false
	}

	if header.Size > maxBytes {
		file.Close()
		pkghttp.WritePayloadTooLarge(w, "File is too large")
		return nil, nil, false
	}

	return file, header, true
}
