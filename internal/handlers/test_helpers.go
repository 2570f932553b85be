package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/services"
	pkghttp "github.com/BradenHooton/labsy/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewMultipartRequest creates a multipart request with a "file" part and extra form fields
func NewMultipartRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// WithIdentityContext adds a verified identity to the request context
func WithIdentityContext(req *http.Request, identity *auth.Identity) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

// WithAccountContext adds the loaded account (and its identity) to the request context
func WithAccountContext(req *http.Request, account *models.Account) *http.Request {
	ctx := auth.WithIdentity(req.Context(), &auth.Identity{
		ExternalID:    account.ExternalID,
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
	})
	return req.WithContext(auth.WithAccount(ctx, account))
}

// WithChiRouteContext adds chi URL parameters to the request
func WithChiRouteContext(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) *pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return &resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	VerifyTokenFunc          func(ctx context.Context, token string) (*models.Account, error)
	CompleteRegistrationFunc func(ctx context.Context, token, email string) (*models.Account, error)
}

func (m *MockAuthService) VerifyToken(ctx context.Context, token string) (*models.Account, error) {
	if m.VerifyTokenFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.VerifyTokenFunc(ctx, token)
}

func (m *MockAuthService) CompleteRegistration(ctx context.Context, token, email string) (*models.Account, error) {
	if m.CompleteRegistrationFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.CompleteRegistrationFunc(ctx, token, email)
}

// MockProfileService implements ProfileService for testing
type MockProfileService struct {
	RegisterCustomerFunc      func(ctx context.Context, identity *auth.Identity, in services.CustomerRegistration) (*models.Account, error)
	RegisterCreatorFunc       func(ctx context.Context, identity *auth.Identity, in services.CreatorRegistration) (*models.Account, error)
	GetProfileFunc            func(ctx context.Context, accountID string) (*models.Account, error)
	UpdateCustomerProfileFunc func(ctx context.Context, accountID string, upd services.CustomerProfileUpdate) (*models.Account, error)
	UpdateCreatorProfileFunc  func(ctx context.Context, accountID string, upd services.CreatorProfileUpdate) (*models.Account, error)
	ChangeProfilePictureFunc  func(ctx context.Context, accountID string, file io.Reader) (*models.Account, error)
	RemoveProfilePictureFunc  func(ctx context.Context, accountID string) (*models.Account, error)
}

func (m *MockProfileService) RegisterCustomer(ctx context.Context, identity *auth.Identity, in services.CustomerRegistration) (*models.Account, error) {
	if m.RegisterCustomerFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterCustomerFunc(ctx, identity, in)
}

func (m *MockProfileService) RegisterCreator(ctx context.Context, identity *auth.Identity, in services.CreatorRegistration) (*models.Account, error) {
	if m.RegisterCreatorFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterCreatorFunc(ctx, identity, in)
}

func (m *MockProfileService) GetProfile(ctx context.Context, accountID string) (*models.Account, error) {
	if m.GetProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetProfileFunc(ctx, accountID)
}

func (m *MockProfileService) UpdateCustomerProfile(ctx context.Context, accountID string, upd services.CustomerProfileUpdate) (*models.Account, error) {
	if m.UpdateCustomerProfileFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.UpdateCustomerProfileFunc(ctx, accountID, upd)
}

func (m *MockProfileService) UpdateCreatorProfile(ctx context.Context, accountID string, upd services.CreatorProfileUpdate) (*models.Account, error) {
	if m.UpdateCreatorProfileFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.UpdateCreatorProfileFunc(ctx, accountID, upd)
}

func (m *MockProfileService) ChangeProfilePicture(ctx context.Context, accountID string, file io.Reader) (*models.Account, error) {
	if m.ChangeProfilePictureFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.ChangeProfilePictureFunc(ctx, accountID, file)
}

func (m *MockProfileService) RemoveProfilePicture(ctx context.Context, accountID string) (*models.Account, error) {
	if m.RemoveProfilePictureFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RemoveProfilePictureFunc(ctx, accountID)
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	CreateFactoryFunc    func(ctx context.Context, actor *models.Account, in services.FactoryInvitation) (*models.Account, error)
	CreateAdminFunc      func(ctx context.Context, actor *models.Account, in services.AdminInvitation) (*models.Account, error)
	UpdateUserStatusFunc func(ctx context.Context, actor *models.Account, targetID string, change services.StatusChange) (*models.Account, error)
	DeleteUserFunc       func(ctx context.Context, actor *models.Account, targetID string) error
	ListUsersFunc        func(ctx context.Context, filter models.AccountFilter) (*models.AccountPage, error)
	GetUserFunc          func(ctx context.Context, id string) (*models.Account, error)
}

func (m *MockAdminService) CreateFactory(ctx context.Context, actor *models.Account, in services.FactoryInvitation) (*models.Account, error) {
	if m.CreateFactoryFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFactoryFunc(ctx, actor, in)
}

func (m *MockAdminService) CreateAdmin(ctx context.Context, actor *models.Account, in services.AdminInvitation) (*models.Account, error) {
	if m.CreateAdminFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateAdminFunc(ctx, actor, in)
}

func (m *MockAdminService) UpdateUserStatus(ctx context.Context, actor *models.Account, targetID string, change services.StatusChange) (*models.Account, error) {
	if m.UpdateUserStatusFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserStatusFunc(ctx, actor, targetID, change)
}

func (m *MockAdminService) DeleteUser(ctx context.Context, actor *models.Account, targetID string) error {
	if m.DeleteUserFunc == nil {
		return nil
	}
	return m.DeleteUserFunc(ctx, actor, targetID)
}

func (m *MockAdminService) ListUsers(ctx context.Context, filter models.AccountFilter) (*models.AccountPage, error) {
	if m.ListUsersFunc == nil {
		return &models.AccountPage{Accounts: []*models.Account{}, Page: 1, Limit: models.DefaultPageSize}, nil
	}
	return m.ListUsersFunc(ctx, filter)
}

func (m *MockAdminService) GetUser(ctx context.Context, id string) (*models.Account, error) {
	if m.GetUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserFunc(ctx, id)
}

// MockCatalogService implements CatalogServiceInterface for testing
type MockCatalogService struct {
	CreateProductFunc     func(ctx context.Context, product *models.Product) (*models.Product, error)
	GetProductFunc        func(ctx context.Context, id string) (*models.Product, error)
	ListProductsFunc      func(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error)
	UpdateProductFunc     func(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error)
	RemoveProductFunc     func(ctx context.Context, id string) error
	HardDeleteProductFunc func(ctx context.Context, actor *models.Account, id string) error
	RestoreProductFunc    func(ctx context.Context, id string) (*models.Product, error)
	StatsFunc             func(ctx context.Context) (*models.CatalogStats, error)
	BreakdownFunc         func(ctx context.Context) (*models.CatalogBreakdown, error)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if m.CreateProductFunc == nil {
		product.ID = "prod_new"
		return product, nil
	}
	return m.CreateProductFunc(ctx, product)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if m.GetProductFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetProductFunc(ctx, id)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error) {
	if m.ListProductsFunc == nil {
		return models.NewProductPage([]*models.Product{}, 0, filter.PageRequest.Normalize()), nil
	}
	return m.ListProductsFunc(ctx, filter)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
	if m.UpdateProductFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProductFunc(ctx, id, patch)
}

func (m *MockCatalogService) RemoveProduct(ctx context.Context, id string) error {
	if m.RemoveProductFunc == nil {
		return nil
	}
	return m.RemoveProductFunc(ctx, id)
}

func (m *MockCatalogService) HardDeleteProduct(ctx context.Context, actor *models.Account, id string) error {
	if m.HardDeleteProductFunc == nil {
		return nil
	}
	return m.HardDeleteProductFunc(ctx, actor, id)
}

func (m *MockCatalogService) RestoreProduct(ctx context.Context, id string) (*models.Product, error) {
	if m.RestoreProductFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RestoreProductFunc(ctx, id)
}

func (m *MockCatalogService) Stats(ctx context.Context) (*models.CatalogStats, error) {
	if m.StatsFunc == nil {
		return &models.CatalogStats{}, nil
	}
	return m.StatsFunc(ctx)
}

func (m *MockCatalogService) Breakdown(ctx context.Context) (*models.CatalogBreakdown, error) {
	if m.BreakdownFunc == nil {
		return &models.CatalogBreakdown{ByCategory: []models.GroupCount{}, ByBrand: []models.GroupCount{}}, nil
	}
	return m.BreakdownFunc(ctx)
}

// MockUploadService implements UploadServiceInterface for testing
type MockUploadService struct {
	UploadFunc func(ctx context.Context, accountID, folder string, file io.ReadSeeker, filename string, size int64) (*services.UploadResult, error)
}

func (m *MockUploadService) Upload(ctx context.Context, accountID, folder string, file io.ReadSeeker, filename string, size int64) (*services.UploadResult, error) {
	if m.UploadFunc == nil {
		return &services.UploadResult{
			URL:    "https://media.example.com/" + folder + "/" + accountID + "/file",
			Key:    folder + "/" + accountID + "/file",
			Bucket: "labsy-media",
			Size:   size,
		}, nil
	}
	return m.UploadFunc(ctx, accountID, folder, file, filename, size)
}
