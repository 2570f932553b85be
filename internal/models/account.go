package models

import (
	"fmt"
	"time"
)

// Role discriminates the account variants stored in the accounts table.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCreator  Role = "creator"
	RoleFactory  Role = "factory"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleCreator, RoleFactory, RoleAdmin:
		return true
	}
	return false
}

// SelfService reports whether accounts of this role may be created by the user directly.
// Factory and admin accounts are only ever provisioned by an admin.
func (r Role) SelfService() bool {
	return r == RoleCustomer || r == RoleCreator
}

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

// AdminLevel orders admin accounts: super_admin > admin > moderator > support.
type AdminLevel string

const (
	AdminLevelSuperAdmin AdminLevel = "super_admin"
	AdminLevelAdmin      AdminLevel = "admin"
	AdminLevelModerator  AdminLevel = "moderator"
	AdminLevelSupport    AdminLevel = "support"
)

// Rank returns the position of the level in the admin ordering; unknown levels rank 0.
func (l AdminLevel) Rank() int {
	switch l {
	case AdminLevelSuperAdmin:
		return 4
	case AdminLevelAdmin:
		return 3
	case AdminLevelModerator:
		return 2
	case AdminLevelSupport:
		return 1
	}
	return 0
}

// Valid reports whether l is one of the known admin levels.
func (l AdminLevel) Valid() bool {
	return l.Rank() > 0
}

// VerificationStatus tracks business verification of creators and factories.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Account is the common record shared by every role. The role-specific attributes live
// in Profile, whose concrete type always matches Role.
type Account struct {
	ID              string
	ExternalID      string // identity-provider subject; empty while the account is pending
	Email           string
	DisplayName     string
	Role            Role
	Status          Status
	EmailVerified   bool
	ProfileImageURL string
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
	Profile         Profile
}

// Profile is the role-specific half of an account. It is implemented only by the
// profile types in this package.
type Profile interface {
	role() Role
}

// NewProfile returns an empty profile for the role with its defaults applied.
func NewProfile(role Role) (Profile, error) {
	switch role {
	case RoleCustomer:
		return &CustomerProfile{PreferredLanguage: LanguageArabic}, nil
	case RoleCreator:
		return &CreatorProfile{VerificationStatus: VerificationPending}, nil
	case RoleFactory:
		return &FactoryProfile{VerificationStatus: VerificationPending}, nil
	case RoleAdmin:
		return &AdminProfile{AdminLevel: AdminLevelSupport, Permissions: []Permission{}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
}

// NewAccount builds an account of the given role with an empty profile.
func NewAccount(role Role) (*Account, error) {
	profile, err := NewProfile(role)
	if err != nil {
		return nil, err
	}
	return &Account{Role: role, Status: StatusActive, Profile: profile}, nil
}

// CheckProfile verifies that the profile variant matches the account role.
func (a *Account) CheckProfile() error {
	if a.Profile == nil {
		return fmt.Errorf("%w: account %s has no profile", ErrInvalidRole, a.ID)
	}
	if a.Profile.role() != a.Role {
		return fmt.Errorf("%w: profile %s does not match role %s", ErrInvalidRole, a.Profile.role(), a.Role)
	}
	return nil
}

// Customer returns the customer profile when the account is a customer.
func (a *Account) Customer() (*CustomerProfile, bool) {
	p, ok := a.Profile.(*CustomerProfile)
	return p, ok && a.Role == RoleCustomer
}

// Creator returns the creator profile when the account is a creator.
func (a *Account) Creator() (*CreatorProfile, bool) {
	p, ok := a.Profile.(*CreatorProfile)
	return p, ok && a.Role == RoleCreator
}

// Factory returns the factory profile when the account is a factory.
func (a *Account) Factory() (*FactoryProfile, bool) {
	p, ok := a.Profile.(*FactoryProfile)
	return p, ok && a.Role == RoleFactory
}

// Admin returns the admin profile when the account is an admin.
func (a *Account) Admin() (*AdminProfile, bool) {
	p, ok := a.Profile.(*AdminProfile)
	return p, ok && a.Role == RoleAdmin
}

// IsActive reports whether the account may use the API.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// IsSuperAdmin reports whether the account is an admin at the top level.
func (a *Account) IsSuperAdmin() bool {
	p, ok := a.Admin()
	return ok && p.AdminLevel == AdminLevelSuperAdmin
}

// SetStatus moves the account to status and keeps DeletedAt consistent with it:
// deleted stamps the time, every other status clears it.
func (a *Account) SetStatus(status Status, now time.Time) {
	a.Status = status
	if status == StatusDeleted {
		if a.DeletedAt == nil {
			t := now
			a.DeletedAt = &t
		}
		return
	}
	a.DeletedAt = nil
}

// Phone returns the contact phone of any role that has one.
func (a *Account) Phone() string {
	switch p := a.Profile.(type) {
	case *CustomerProfile:
		return p.Phone
	case *CreatorProfile:
		return p.Phone
	case *FactoryProfile:
		return p.Phone
	case *AdminProfile:
		return p.Phone
	}
	return ""
}

// Language codes accepted for customers.
const (
	LanguageArabic  = "ar"
	LanguageEnglish = "en"
)

type ShippingAddress struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	RecipientName string `json:"recipientName"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"addressLine1"`
	AddressLine2  string `json:"addressLine2,omitempty"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
	IsDefault     bool   `json:"isDefault"`
}

type MarketingPreferences struct {
	EmailMarketing         bool `json:"emailMarketing"`
	SMSMarketing           bool `json:"smsMarketing"`
	PushNotifications      bool `json:"pushNotifications"`
	ProductRecommendations bool `json:"productRecommendations"`
}

type CustomerProfile struct {
	Phone                string
	PreferredLanguage    string
	DateOfBirth          *time.Time
	Gender               string
	ShippingAddresses    []ShippingAddress
	MarketingPreferences MarketingPreferences
	ProfileCompletion    int
}

func (*CustomerProfile) role() Role { return RoleCustomer }

type SocialMediaLinks struct {
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Any reports whether at least one link is set.
func (l SocialMediaLinks) Any() bool {
	return l.Instagram != "" || l.Facebook != "" || l.Twitter != "" ||
		l.TikTok != "" || l.YouTube != "" || l.Website != ""
}

// Merge overlays the non-empty links of other onto l.
func (l SocialMediaLinks) Merge(other SocialMediaLinks) SocialMediaLinks {
	if other.Instagram != "" {
		l.Instagram = other.Instagram
	}
	if other.Facebook != "" {
		l.Facebook = other.Facebook
	}
	if other.Twitter != "" {
		l.Twitter = other.Twitter
	}
	if other.TikTok != "" {
		l.TikTok = other.TikTok
	}
	if other.YouTube != "" {
		l.YouTube = other.YouTube
	}
	if other.Website != "" {
		l.Website = other.Website
	}
	return l
}

type CreatorProfile struct {
	BusinessName        string
	BusinessDescription string
	Phone               string
	BusinessLicense     string
	TaxID               string
	SocialMediaLinks    SocialMediaLinks
	BusinessAddress     string
	Categories          []string
	VerificationStatus  VerificationStatus
	VerifiedAt          *time.Time
	ProfileCompletion   int
}

func (*CreatorProfile) role() Role { return RoleCreator }

type FactoryLocation struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country"`
}

type FactoryCapabilities struct {
	PrintingMethods   []string `json:"printingMethods"`
	Materials         []string `json:"materials"`
	ProductTypes      []string `json:"productTypes"`
	MaxCapacityPerDay int      `json:"maxCapacityPerDay,omitempty"`
}

type FactoryProfile struct {
	CompanyName        string
	CompanyDescription string
	ContactPerson      string
	Phone              string
	BusinessLicense    string
	TaxID              string
	Location           FactoryLocation
	Capabilities       FactoryCapabilities
	VerificationStatus VerificationStatus
	VerifiedAt         *time.Time
}

func (*FactoryProfile) role() Role { return RoleFactory }

type AdminProfile struct {
	EmployeeID  string
	AdminLevel  AdminLevel
	Permissions []Permission
	Department  string
	Position    string
	Phone       string
	Notes       string
}

func (*AdminProfile) role() Role { return RoleAdmin }
