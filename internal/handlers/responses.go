package handlers

import (
	"time"

	"github.com/BradenHooton/labsy/internal/models"
	"github.com/shopspring/decimal"
)

// AccountResponse is the account DTO shared by every role. Profile holds the
// role-specific fields.
type AccountResponse struct {
	ID              string      `json:"id"`
	Email           string      `json:"email"`
	DisplayName     string      `json:"displayName"`
	Role            string      `json:"role"`
	Status          string      `json:"status"`
	EmailVerified   bool        `json:"emailVerified"`
	ProfileImageURL string      `json:"profileImageUrl,omitempty"`
	LastLoginAt     *string     `json:"lastLoginAt,omitempty"`
	CreatedAt       string      `json:"createdAt"`
	UpdatedAt       string      `json:"updatedAt"`
	DeletedAt       *string     `json:"deletedAt,omitempty"`
	Profile         interface{} `json:"profile"`
}

type CustomerProfileResponse struct {
	Phone                string                      `json:"phone,omitempty"`
	PreferredLanguage    string                      `json:"preferredLanguage"`
	DateOfBirth          *string                     `json:"dateOfBirth,omitempty"`
	Gender               string                      `json:"gender,omitempty"`
	ShippingAddresses    []models.ShippingAddress    `json:"shippingAddresses"`
	MarketingPreferences models.MarketingPreferences `json:"marketingPreferences"`
	ProfileCompletion    int                         `json:"profileCompletion"`
}

type CreatorProfileResponse struct {
	BusinessName        string                  `json:"businessName"`
	BusinessDescription string                  `json:"businessDescription,omitempty"`
	Phone               string                  `json:"phone,omitempty"`
	BusinessLicense     string                  `json:"businessLicense,omitempty"`
	TaxID               string                  `json:"taxId,omitempty"`
	SocialMediaLinks    models.SocialMediaLinks `json:"socialMediaLinks"`
	BusinessAddress     string                  `json:"businessAddress,omitempty"`
	Categories          []string                `json:"categories"`
	VerificationStatus  string                  `json:"verificationStatus"`
	VerifiedAt          *string                 `json:"verifiedAt,omitempty"`
	ProfileCompletion   int                     `json:"profileCompletion"`
}

type FactoryProfileResponse struct {
	CompanyName        string                     `json:"companyName"`
	CompanyDescription string                     `json:"companyDescription,omitempty"`
	ContactPerson      string                     `json:"contactPerson"`
	Phone              string                     `json:"phone,omitempty"`
	BusinessLicense    string                     `json:"businessLicense,omitempty"`
	TaxID              string                     `json:"taxId,omitempty"`
	Location           models.FactoryLocation     `json:"location"`
	Capabilities       models.FactoryCapabilities `json:"capabilities"`
	VerificationStatus string                     `json:"verificationStatus"`
	VerifiedAt         *string                    `json:"verifiedAt,omitempty"`
}

type AdminProfileResponse struct {
	EmployeeID  string   `json:"employeeId"`
	AdminLevel  string   `json:"adminLevel"`
	Permissions []string `json:"permissions"`
	Department  string   `json:"department,omitempty"`
	Position    string   `json:"position,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func emptyIfNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}

// accountModelToResponse converts an account model to its response DTO.
func accountModelToResponse(account *models.Account) *AccountResponse {
	resp := &AccountResponse{
		ID:              account.ID,
		Email:           account.Email,
		DisplayName:     account.DisplayName,
		Role:            string(account.Role),
		Status:          string(account.Status),
		EmailVerified:   account.EmailVerified,
		ProfileImageURL: account.ProfileImageURL,
		LastLoginAt:     formatTimePtr(account.LastLoginAt),
		CreatedAt:       formatTime(account.CreatedAt),
		UpdatedAt:       formatTime(account.UpdatedAt),
		DeletedAt:       formatTimePtr(account.DeletedAt),
	}

	switch p := account.Profile.(type) {
	case *models.CustomerProfile:
		var dob *string
		if p.DateOfBirth != nil {
			s := p.DateOfBirth.Format("2006-01-02")
			dob = &s
		}
		resp.Profile = &CustomerProfileResponse{
			Phone:                p.Phone,
			PreferredLanguage:    p.PreferredLanguage,
			DateOfBirth:          dob,
			Gender:               p.Gender,
			ShippingAddresses:    emptyIfNil(p.ShippingAddresses),
			MarketingPreferences: p.MarketingPreferences,
			ProfileCompletion:    p.ProfileCompletion,
		}
	case *models.CreatorProfile:
		resp.Profile = &CreatorProfileResponse{
			BusinessName:        p.BusinessName,
			BusinessDescription: p.BusinessDescription,
			Phone:               p.Phone,
			BusinessLicense:     p.BusinessLicense,
			TaxID:               p.TaxID,
			SocialMediaLinks:    p.SocialMediaLinks,
			BusinessAddress:     p.BusinessAddress,
			Categories:          emptyIfNil(p.Categories),
			VerificationStatus:  string(p.VerificationStatus),
			VerifiedAt:          formatTimePtr(p.VerifiedAt),
			ProfileCompletion:   p.ProfileCompletion,
		}
	case *models.FactoryProfile:
		caps := p.Capabilities
		caps.PrintingMethods = emptyIfNil(caps.PrintingMethods)
		caps.Materials = emptyIfNil(caps.Materials)
		caps.ProductTypes = emptyIfNil(caps.ProductTypes)
		resp.Profile = &FactoryProfileResponse{
			CompanyName:        p.CompanyName,
			CompanyDescription: p.CompanyDescription,
			ContactPerson:      p.ContactPerson,
			Phone:              p.Phone,
			BusinessLicense:    p.BusinessLicense,
			TaxID:              p.TaxID,
			Location:           p.Location,
			Capabilities:       caps,
			VerificationStatus: string(p.VerificationStatus),
			VerifiedAt:         formatTimePtr(p.VerifiedAt),
		}
	case *models.AdminProfile:
		perms := make([]string, len(p.Permissions))
		for i, perm := range p.Permissions {
			perms[i] = string(perm)
		}
		resp.Profile = &AdminProfileResponse{
			EmployeeID:  p.EmployeeID,
			AdminLevel:  string(p.AdminLevel),
			Permissions: perms,
			Department:  p.Department,
			Position:    p.Position,
			Phone:       p.Phone,
			Notes:       p.Notes,
		}
	}

	return resp
}

// ProductResponse is the product DTO of the catalog.
type ProductResponse struct {
	ID             string                  `json:"id"`
	Title          string                  `json:"title"`
	Description    string                  `json:"description,omitempty"`
	Brand          string                  `json:"brand"`
	Type           string                  `json:"type,omitempty"`
	Category       string                  `json:"category,omitempty"`
	Material       string                  `json:"material,omitempty"`
	BaseCost       decimal.Decimal         `json:"baseCost"`
	Currency       string                  `json:"currency"`
	Country        string                  `json:"country,omitempty"`
	MainImage      string                  `json:"mainImage,omitempty"`
	Colors         []string                `json:"colors"`
	AvailableSizes models.Sizes            `json:"availableSizes"`
	Tags           []string                `json:"tags"`
	Metadata       *models.ProductMetadata `json:"metadata,omitempty"`
	PrintAreas     []PrintAreaResponse     `json:"printAreas"`
	CreatedAt      string                  `json:"createdAt"`
	UpdatedAt      string                  `json:"updatedAt"`
	DeletedAt      *string                 `json:"deletedAt,omitempty"`
}

type PrintAreaResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	MockupURL string  `json:"mockupUrl"`
	DPI       int     `json:"dpi"`
}

// ProductListResponse is one page of the catalog.
type ProductListResponse struct {
	Items       []*ProductResponse `json:"items"`
	Total       int64              `json:"total"`
	Page        int                `json:"page"`
	Limit       int                `json:"limit"`
	TotalPages  int                `json:"totalPages"`
	HasNext     bool               `json:"hasNext"`
	HasPrevious bool               `json:"hasPrevious"`
}

func productModelToResponse(product *models.Product) *ProductResponse {
	areas := make([]PrintAreaResponse, len(product.PrintAreas))
	for i, a := range product.PrintAreas {
		areas[i] = PrintAreaResponse{
			ID:        a.ID,
			Name:      a.Name,
			X:         a.X,
			Y:         a.Y,
			Width:     a.Width,
			Height:    a.Height,
			MockupURL: a.MockupURL,
			DPI:       a.DPI,
		}
	}

	return &ProductResponse{
		ID:             product.ID,
		Title:          product.Title,
		Description:    product.Description,
		Brand:          product.Brand,
		Type:           product.Type,
		Category:       product.Category,
		Material:       product.Material,
		BaseCost:       product.BaseCost,
		Currency:       product.Currency,
		Country:        product.Country,
		MainImage:      product.MainImage,
		Colors:         emptyIfNil(product.Colors),
		AvailableSizes: product.AvailableSizes,
		Tags:           emptyIfNil(product.Tags),
		Metadata:       product.Metadata,
		PrintAreas:     areas,
		CreatedAt:      formatTime(product.CreatedAt),
		UpdatedAt:      formatTime(product.UpdatedAt),
		DeletedAt:      formatTimePtr(product.DeletedAt),
	}
}

func productPageToResponse(page *models.ProductPage) *ProductListResponse {
	items := make([]*ProductResponse, len(page.Items))
	for i, p := range page.Items {
		items[i] = productModelToResponse(p)
	}
	return &ProductListResponse{
		Items:       items,
		Total:       page.Total,
		Page:        page.Page,
		Limit:       page.Limit,
		TotalPages:  page.TotalPages,
		HasNext:     page.HasNext,
		HasPrevious: page.HasPrevious,
	}
}
