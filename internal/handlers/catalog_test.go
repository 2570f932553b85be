package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/labsy/internal/handlers"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductRequest() map[string]interface{} {
	return map[string]interface{}{
		"title":    "Classic Tee",
		"brand":    "Labsy",
		"category": "tshirts",
		"baseCost": "12.50",
		"colors":   []string{"white", "black"},
		"availableSizes": map[string]int{
			"M": 10,
			"L": 4,
		},
		"printAreas": []map[string]interface{}{{
			"name":      "front",
			"x":         0,
			"y":         0,
			"width":     30,
			"height":    40,
			"mockupUrl": "https://cdn.example.com/front.png",
		}},
	}
}

// ── List tests ──

func TestListProducts_ParsesFilters(t *testing.T) {
	var got models.ProductFilter
	svc := &handlers.MockCatalogService{
		ListProductsFunc: func(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error) {
			got = filter
			items := []*models.Product{services.NewTestProduct("prod_1", "Classic Tee", "Labsy")}
			return models.NewProductPage(items, 45, models.PageRequest{Page: 2, Limit: 20}), nil
		},
	}
	req := handlers.NewTestRequest(t, "GET",
		"/catalog?search=tee&category=tshirts&minPrice=5&maxPrice=20.5&tags=summer,cotton&tags=basic&sortBy=baseCost&sortOrder=asc&page=2", nil)

	w := httptest.NewRecorder()
	handlers.NewCatalogHandler(svc).ListProducts(w, req)

	var resp handlers.ProductListResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "tee", got.Search)
	assert.Equal(t, "tshirts", got.Category)
	require.NotNil(t, got.MinPrice)
	assert.True(t, got.MinPrice.Equal(decimal.NewFromInt(5)))
	assert.True(t, got.MaxPrice.Equal(decimal.RequireFromString("20.5")))
	assert.Equal(t, []string{"summer", "cotton", "basic"}, got.Tags)
	assert.Equal(t, "baseCost", got.SortBy)
	assert.Equal(t, 2, got.Page)

	assert.Equal(t, int64(45), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.True(t, resp.HasPrevious)
	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Items[0].BaseCost.Equal(decimal.RequireFromString("12.50")))
}

func TestListProducts_InvalidPrice(t *testing.T) {
	for _, query := range []string{"minPrice=abc", "maxPrice=-1", "minPrice=10&maxPrice=5", "page=x"} {
		t.Run(query, func(t *testing.T) {
			req := handlers.NewTestRequest(t, "GET", "/catalog?"+query, nil)

			w := httptest.NewRecorder()
			handlers.NewCatalogHandler(&handlers.MockCatalogService{}).ListProducts(w, req)

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}

func TestPathFilters(t *testing.T) {
	tests := []struct {
		name   string
		call   func(h *handlers.CatalogHandler, w http.ResponseWriter, r *http.Request)
		param  string
		value  string
		expect func(t *testing.T, f models.ProductFilter)
	}{
		{
			name:  "search",
			call:  (*handlers.CatalogHandler).SearchProducts,
			param: "query",
			value: "hoodie",
			expect: func(t *testing.T, f models.ProductFilter) {
				assert.Equal(t, "hoodie", f.Search)
			},
		},
		{
			name:  "category",
			call:  (*handlers.CatalogHandler).ListByCategory,
			param: "category",
			value: "mugs",
			expect: func(t *testing.T, f models.ProductFilter) {
				assert.Equal(t, "mugs", f.Category)
			},
		},
		{
			name:  "brand",
			call:  (*handlers.CatalogHandler).ListByBrand,
			param: "brand",
			value: "Labsy",
			expect: func(t *testing.T, f models.ProductFilter) {
				assert.Equal(t, "Labsy", f.Brand)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got models.ProductFilter
			svc := &handlers.MockCatalogService{
				ListProductsFunc: func(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error) {
					got = filter
					return models.NewProductPage([]*models.Product{}, 0, models.PageRequest{Page: 1, Limit: 20}), nil
				},
			}
			req := handlers.WithChiRouteContext(handlers.NewTestRequest(t, "GET", "/catalog/x", nil), map[string]string{tt.param: tt.value})

			w := httptest.NewRecorder()
			tt.call(handlers.NewCatalogHandler(svc), w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			tt.expect(t, got)
		})
	}
}

// ── Create / update tests ──

func TestCreateProduct_Success(t *testing.T) {
	var got *models.Product
	svc := &handlers.MockCatalogService{
		CreateProductFunc: func(ctx context.Context, product *models.Product) (*models.Product, error) {
			got = product
			product.ID = "prod_1"
			return product, nil
		},
	}
	req := handlers.NewTestRequest(t, "POST", "/catalog", validProductRequest())

	w := httptest.NewRecorder()
	handlers.NewCatalogHandler(svc).CreateProduct(w, req)

	var resp handlers.ProductResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "prod_1", resp.ID)
	require.NotNil(t, got)
	assert.True(t, got.BaseCost.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, map[string]int{"M": 10, "L": 4}, got.AvailableSizes.Stock)
	require.Len(t, got.PrintAreas, 1)
	assert.Equal(t, "https://cdn.example.com/front.png", got.PrintAreas[0].MockupURL)
}

func TestCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(body map[string]interface{})
		wantField string
		wantRule  string
	}{
		{name: "missing title", mutate: func(b map[string]interface{}) { delete(b, "title") }, wantField: "title", wantRule: "required"},
		{name: "zero cost", mutate: func(b map[string]interface{}) { b["baseCost"] = 0 }, wantField: "baseCost", wantRule: "required"},
		{name: "negative cost", mutate: func(b map[string]interface{}) { b["baseCost"] = -3 }, wantField: "baseCost", wantRule: "gt"},
		{name: "cost over column precision", mutate: func(b map[string]interface{}) { b["baseCost"] = 1e9 }, wantField: "baseCost", wantRule: "lte"},
		{name: "three decimals", mutate: func(b map[string]interface{}) { b["baseCost"] = "1.999" }, wantField: "baseCost", wantRule: "decimal_places"},
		{name: "unknown category", mutate: func(b map[string]interface{}) { b["category"] = "shoes" }, wantField: "category", wantRule: "oneof"},
		{name: "no colors", mutate: func(b map[string]interface{}) { b["colors"] = []string{} }, wantField: "colors", wantRule: "min"},
		{name: "no print areas", mutate: func(b map[string]interface{}) { delete(b, "printAreas") }, wantField: "printAreas", wantRule: "required"},
		{
			name: "print area without width",
			mutate: func(b map[string]interface{}) {
				b["printAreas"] = []map[string]interface{}{{"x": 0, "y": 0, "height": 10, "mockupUrl": "https://cdn.example.com/a.png"}}
			},
			wantField: "printAreas[0].width",
			wantRule:  "gt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validProductRequest()
			tt.mutate(body)
			req := handlers.NewTestRequest(t, "POST", "/catalog", body)

			w := httptest.NewRecorder()
			handlers.NewCatalogHandler(&handlers.MockCatalogService{}).CreateProduct(w, req)

			resp := handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_failed")
			require.NotEmpty(t, resp.Fields)
			assert.Equal(t, tt.wantField, resp.Fields[0].Field)
			assert.Equal(t, tt.wantRule, resp.Fields[0].Rule)
		})
	}
}

func TestCreateProduct_Duplicate(t *testing.T) {
	svc := &handlers.MockCatalogService{
		CreateProductFunc: func(ctx context.Context, product *models.Product) (*models.Product, error) {
			return nil, fmt.Errorf("%w: Product with title %q already exists for brand %q", models.ErrConflict, product.Title, product.Brand)
		},
	}
	req := handlers.NewTestRequest(t, "POST", "/catalog", validProductRequest())

	w := httptest.NewRecorder()
	handlers.NewCatalogHandler(svc).CreateProduct(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusConflict, "conflict")
	assert.Equal(t, `Product with title "Classic Tee" already exists for brand "Labsy"`, resp.Message)
}

func TestUpdateProduct_PartialPatch(t *testing.T) {
	var got *models.ProductPatch
	svc := &handlers.MockCatalogService{
		UpdateProductFunc: func(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
			assert.Equal(t, "prod_1", id)
			got = patch
			return services.NewTestProduct("prod_1", "Classic Tee", "Labsy"), nil
		},
	}
	req := handlers.NewTestRequest(t, "PATCH", "/catalog/prod_1", map[string]interface{}{"baseCost": 15})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "prod_1"})

	w := httptest.NewRecorder()
	handlers.NewCatalogHandler(svc).UpdateProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.BaseCost)
	assert.True(t, got.BaseCost.Equal(decimal.NewFromInt(15)))
	assert.Nil(t, got.Title)
	assert.Nil(t, got.PrintAreas)
	assert.False(t, got.TouchesIdentity())
}

// ── Delete / restore tests ──

func TestRemoveProduct(t *testing.T) {
	req := handlers.WithChiRouteContext(handlers.NewTestRequest(t, "DELETE", "/catalog/prod_1", nil), map[string]string{"id": "prod_1"})

	w := httptest.NewRecorder()
	handlers.NewCatalogHandler(&handlers.MockCatalogService{}).RemoveProduct(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHardDeleteProduct_NotFound(t *testing.T) {
	svc := &handlers.MockCatalogService{
		HardDeleteProductFunc: func(ctx context.Context, actor *models.Account, id string) error {
			assert.Equal(t, "admin_1", actor.ID)
			return models.ErrNotFound
		},
	}
	req := handlers.WithChiRouteContext(handlers.NewTestRequest(t, "DELETE", "/catalog/prod_1/hard", nil), map[string]string{"id": "prod_1"})
	req = handlers.WithAccountContext(req, testAdmin())

	w := httptest.NewRecorder()
	handlers.NewCatalogHandler(svc).HardDeleteProduct(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}

func TestRestoreProduct_NotDeleted(t *testing.T) {
	req := handlers.WithChiRouteContext(handlers.NewTestRequest(t, "PATCH", "/catalog/prod_1/restore", nil), map[string]string{"id": "prod_1"})

	w := httptest.NewRecorder()
	handlers.NewCatalogHandler(&handlers.MockCatalogService{}).RestoreProduct(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}

// ── Stats tests ──

func TestStatsOverview(t *testing.T) {
	svc := &handlers.MockCatalogService{
		StatsFunc: func(ctx context.Context) (*models.CatalogStats, error) {
			return &models.CatalogStats{
				TotalProducts:   3,
				DeletedProducts: 1,
				CategoriesCount: 2,
				BrandsCount:     2,
				AveragePrice:    decimal.RequireFromString("14.333333"),
				MinPrice:        decimal.RequireFromString("10"),
				MaxPrice:        decimal.RequireFromString("20"),
			}, nil
		},
	}

	w := httptest.NewRecorder()
	handlers.NewCatalogHandler(svc).StatsOverview(w, handlers.NewTestRequest(t, "GET", "/catalog/stats/overview", nil))

	var resp handlers.CatalogStatsResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, int64(3), resp.TotalProducts)
	assert.Equal(t, int64(1), resp.DeletedProducts)
	assert.True(t, resp.AveragePrice.Equal(decimal.RequireFromString("14.33")))
	assert.True(t, resp.PriceRange.Max.Equal(decimal.NewFromInt(20)))
}

func TestStatsBasic(t *testing.T) {
	svc := &handlers.MockCatalogService{
		BreakdownFunc: func(ctx context.Context) (*models.CatalogBreakdown, error) {
			return &models.CatalogBreakdown{
				TotalProducts: 3,
				ByCategory:    []models.GroupCount{{Key: "tshirts", Count: 2}, {Key: "mugs", Count: 1}},
				ByBrand:       []models.GroupCount{{Key: "Labsy", Count: 3}},
			}, nil
		},
	}

	w := httptest.NewRecorder()
	handlers.NewCatalogHandler(svc).StatsBasic(w, handlers.NewTestRequest(t, "GET", "/catalog/stats/basic", nil))

	var resp handlers.CatalogBreakdownResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, []handlers.GroupCountResponse{{Name: "tshirts", Count: 2}, {Name: "mugs", Count: 1}}, resp.ByCategory)
	assert.Len(t, resp.ByBrand, 1)
}
