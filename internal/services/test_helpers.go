package services

import (
	"context"
	"io"
	"time"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/repositories"
	"github.com/shopspring/decimal"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc           func(ctx context.Context, id string) (*models.Account, error)
	GetByExternalIDFunc   func(ctx context.Context, externalID string) (*models.Account, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*models.Account, error)
	GetPendingByEmailFunc func(ctx context.Context, email string) (*models.Account, error)
	CreateFunc            func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateFunc            func(ctx context.Context, account *models.Account) (*models.Account, error)
	ClaimFunc             func(ctx context.Context, id string, identity repositories.ClaimIdentity) (*models.Account, error)
	ListFunc              func(ctx context.Context, filter models.AccountFilter) ([]*models.Account, int64, error)
	CountByRoleFunc       func(ctx context.Context, role models.Role) (int64, error)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	if m.GetByExternalIDFunc != nil {
		return m.GetByExternalIDFunc(ctx, externalID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetPendingByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetPendingByEmailFunc != nil {
		return m.GetPendingByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

// Create echoes the account back with an id when CreateFunc is unset.
func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	account.ID = "acct_new"
	return account, nil
}

// Update echoes the account back when UpdateFunc is unset.
func (m *MockAccountRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, account)
	}
	return account, nil
}

func (m *MockAccountRepository) Claim(ctx context.Context, id string, identity repositories.ClaimIdentity) (*models.Account, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, id, identity)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, filter models.AccountFilter) ([]*models.Account, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Account{}, 0, nil
}

func (m *MockAccountRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	if m.CountByRoleFunc != nil {
		return m.CountByRoleFunc(ctx, role)
	}
	return 0, nil
}

// MockProductRepository implements ProductRepository for testing
type MockProductRepository struct {
	CreateFunc             func(ctx context.Context, product *models.Product) (*models.Product, error)
	GetByIDFunc            func(ctx context.Context, id string) (*models.Product, error)
	FindByTitleBrandFunc   func(ctx context.Context, title, brand string) (*models.Product, error)
	UpdateFunc             func(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error)
	SoftDeleteFunc         func(ctx context.Context, id string) error
	HardDeleteFunc         func(ctx context.Context, id string) error
	RestoreFunc            func(ctx context.Context, id string) (*models.Product, error)
	ListFunc               func(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int64, error)
	StatsFunc              func(ctx context.Context) (*models.CatalogStats, error)
	BreakdownFunc          func(ctx context.Context) (*models.CatalogBreakdown, error)
	PurgeDeletedBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, product)
	}
	product.ID = "prod_new"
	return product, nil
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProductRepository) FindByTitleBrand(ctx context.Context, title, brand string) (*models.Product, error) {
	if m.FindByTitleBrandFunc != nil {
		return m.FindByTitleBrandFunc(ctx, title, brand)
	}
	return nil, models.ErrNotFound
}

func (m *MockProductRepository) Update(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return nil, models.ErrInternalServer
}

func (m *MockProductRepository) SoftDelete(ctx context.Context, id string) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockProductRepository) HardDelete(ctx context.Context, id string) error {
	if m.HardDeleteFunc != nil {
		return m.HardDeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockProductRepository) Restore(ctx context.Context, id string) (*models.Product, error) {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Product{}, 0, nil
}

func (m *MockProductRepository) Stats(ctx context.Context) (*models.CatalogStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &models.CatalogStats{}, nil
}

func (m *MockProductRepository) Breakdown(ctx context.Context) (*models.CatalogBreakdown, error) {
	if m.BreakdownFunc != nil {
		return m.BreakdownFunc(ctx)
	}
	return &models.CatalogBreakdown{}, nil
}

func (m *MockProductRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.PurgeDeletedBeforeFunc != nil {
		return m.PurgeDeletedBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockIdentityVerifier implements auth.IdentityVerifier for testing
type MockIdentityVerifier struct {
	VerifyFunc func(ctx context.Context, token string) (*auth.Identity, error)
}

func (m *MockIdentityVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token)
	}
	return nil, models.ErrUnauthorized
}

// MockInvitationMailer records the accounts it was asked to notify.
type MockInvitationMailer struct {
	SendInvitationFunc func(ctx context.Context, account *models.Account) error
	Sent               []*models.Account
}

func (m *MockInvitationMailer) SendInvitation(ctx context.Context, account *models.Account) error {
	m.Sent = append(m.Sent, account)
	if m.SendInvitationFunc != nil {
		return m.SendInvitationFunc(ctx, account)
	}
	return nil
}

// MockPictureStore implements PictureStore for testing
type MockPictureStore struct {
	UploadProfilePictureFunc func(ctx context.Context, accountID string, file io.Reader) (*UploadResult, error)
	DeleteByURLFunc          func(ctx context.Context, url string) error
	Deleted                  []string
}

func (m *MockPictureStore) UploadProfilePicture(ctx context.Context, accountID string, file io.Reader) (*UploadResult, error) {
	if m.UploadProfilePictureFunc != nil {
		return m.UploadProfilePictureFunc(ctx, accountID, file)
	}
	return &UploadResult{
		URL: "https://media.example.com/profiles/" + accountID + "/new.jpg",
		Key: "profiles/" + accountID + "/new.jpg",
	}, nil
}

func (m *MockPictureStore) DeleteByURL(ctx context.Context, url string) error {
	m.Deleted = append(m.Deleted, url)
	if m.DeleteByURLFunc != nil {
		return m.DeleteByURLFunc(ctx, url)
	}
	return nil
}

// Test fixtures

// NewTestIdentity creates a verified identity for testing
func NewTestIdentity(externalID, email string) *auth.Identity {
	return &auth.Identity{
		ExternalID:    externalID,
		Email:         email,
		EmailVerified: true,
		DisplayName:   "Test User",
	}
}

func newTestAccount(id, email string, role models.Role) *models.Account {
	account, err := models.NewAccount(role)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	account.ID = id
	account.ExternalID = "ext_" + id
	account.Email = email
	account.DisplayName = "Test User"
	account.EmailVerified = true
	account.CreatedAt = now
	account.UpdatedAt = now
	return account
}

// NewTestCustomer creates an active customer for testing
func NewTestCustomer(id, email string) *models.Account {
	return newTestAccount(id, email, models.RoleCustomer)
}

// NewTestCreator creates an active creator for testing
func NewTestCreator(id, email string) *models.Account {
	account := newTestAccount(id, email, models.RoleCreator)
	profile, _ := account.Creator()
	profile.BusinessName = "Test Studio"
	return account
}

// NewTestFactory creates an active factory for testing
func NewTestFactory(id, email string) *models.Account {
	account := newTestAccount(id, email, models.RoleFactory)
	profile, _ := account.Factory()
	profile.CompanyName = "Test Prints"
	return account
}

// NewTestAdmin creates an active admin of the given level for testing
func NewTestAdmin(id, email string, level models.AdminLevel) *models.Account {
	account := newTestAccount(id, email, models.RoleAdmin)
	profile, _ := account.Admin()
	profile.AdminLevel = level
	profile.EmployeeID = "EMP" + id
	profile.Permissions = models.DefaultPermissions(level)
	return account
}

// NewTestPendingFactory creates an unclaimed factory invitation for testing
func NewTestPendingFactory(id, email string) *models.Account {
	account := NewTestFactory(id, email)
	account.ExternalID = ""
	account.EmailVerified = false
	account.Status = models.StatusPending
	return account
}

// NewTestProduct creates an active product with one print area for testing
func NewTestProduct(id, title, brand string) *models.Product {
	now := time.Now().UTC()
	return &models.Product{
		ID:             id,
		Title:          title,
		Brand:          brand,
		Category:       "tshirts",
		BaseCost:       decimal.RequireFromString("12.50"),
		Currency:       models.DefaultCurrency,
		Colors:         []string{"black", "white"},
		AvailableSizes: models.Sizes{List: []string{"S", "M", "L"}},
		PrintAreas: []models.PrintArea{
			{ID: "area_" + id, ProductID: id, Name: "front", X: 10, Y: 20, Width: 200, Height: 250, MockupURL: "https://cdn.example.com/front.png", DPI: models.DefaultDPI},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
