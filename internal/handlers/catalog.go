package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/models"
	pkghttp "github.com/BradenHooton/labsy/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CatalogServiceInterface defines the catalog contract.
type CatalogServiceInterface interface {
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error)
	UpdateProduct(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error)
	RemoveProduct(ctx context.Context, id string) error
	HardDeleteProduct(ctx context.Context, actor *models.Account, id string) error
	RestoreProduct(ctx context.Context, id string) (*models.Product, error)
	Stats(ctx context.Context) (*models.CatalogStats, error)
	Breakdown(ctx context.Context) (*models.CatalogBreakdown, error)
}

// CatalogHandler handles catalog HTTP requests.
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// Request DTOs

type PrintAreaRequest struct {
	Name      string  `json:"name" validate:"omitempty,max=100"`
	X         float64 `json:"x" validate:"gte=0"`
	Y         float64 `json:"y" validate:"gte=0"`
	Width     float64 `json:"width" validate:"gt=0"`
	Height    float64 `json:"height" validate:"gt=0"`
	MockupURL string  `json:"mockupUrl" validate:"required,url"`
	DPI       int     `json:"dpi" validate:"omitempty,gt=0,lte=1200"`
}

// CreateProductRequest represents a new catalog product
type CreateProductRequest struct {
	Title          string                  `json:"title" validate:"required,max=200"`
	Description    string                  `json:"description" validate:"omitempty,max=5000"`
	Brand          string                  `json:"brand" validate:"required,max=100"`
	Type           string                  `json:"type" validate:"omitempty,max=100"`
	Category       string                  `json:"category" validate:"omitempty,oneof=tshirts hoodies totebags mugs other"`
	Material       string                  `json:"material" validate:"omitempty,max=100"`
	BaseCost       decimal.Decimal         `json:"baseCost" validate:"required,gt=0,lte=99999999.99,decimal_places"`
	Currency       string                  `json:"currency" validate:"omitempty,oneof=USD EUR GBP AED SAR"`
	Country        string                  `json:"country" validate:"omitempty,max=100"`
	MainImage      string                  `json:"mainImage" validate:"omitempty,url"`
	Colors         []string                `json:"colors" validate:"required,min=1,dive,required,max=50"`
	AvailableSizes *models.Sizes           `json:"availableSizes"`
	Tags           []string                `json:"tags" validate:"omitempty,max=30,dive,required,max=50"`
	Metadata       *models.ProductMetadata `json:"metadata"`
	PrintAreas     []PrintAreaRequest      `json:"printAreas" validate:"required,min=1,dive"`
}

// UpdateProductRequest lists the product fields to change; absent fields are kept
type UpdateProductRequest struct {
	Title          *string                 `json:"title" validate:"omitempty,min=1,max=200"`
	Description    *string                 `json:"description" validate:"omitempty,max=5000"`
	Brand          *string                 `json:"brand" validate:"omitempty,min=1,max=100"`
	Type           *string                 `json:"type" validate:"omitempty,max=100"`
	Category       *string                 `json:"category" validate:"omitempty,oneof=tshirts hoodies totebags mugs other"`
	Material       *string                 `json:"material" validate:"omitempty,max=100"`
	BaseCost       *decimal.Decimal        `json:"baseCost" validate:"omitempty,gt=0,lte=99999999.99,decimal_places"`
	Currency       *string                 `json:"currency" validate:"omitempty,oneof=USD EUR GBP AED SAR"`
	Country        *string                 `json:"country" validate:"omitempty,max=100"`
	MainImage      *string                 `json:"mainImage" validate:"omitempty,url"`
	Colors         []string                `json:"colors" validate:"omitempty,min=1,dive,required,max=50"`
	AvailableSizes *models.Sizes           `json:"availableSizes"`
	Tags           []string                `json:"tags" validate:"omitempty,max=30,dive,required,max=50"`
	Metadata       *models.ProductMetadata `json:"metadata"`
	PrintAreas     []PrintAreaRequest      `json:"printAreas" validate:"omitempty,min=1,dive"`
}

type PriceRangeResponse struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// CatalogStatsResponse summarises the active catalog
type CatalogStatsResponse struct {
	TotalProducts   int64              `json:"totalProducts"`
	DeletedProducts int64              `json:"deletedProducts"`
	CategoriesCount int64              `json:"categoriesCount"`
	BrandsCount     int64              `json:"brandsCount"`
	AveragePrice    decimal.Decimal    `json:"averagePrice"`
	PriceRange      PriceRangeResponse `json:"priceRange"`
}

type GroupCountResponse struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// CatalogBreakdownResponse counts active products per category and brand
type CatalogBreakdownResponse struct {
	TotalProducts int64                `json:"totalProducts"`
	ByCategory    []GroupCountResponse `json:"byCategory"`
	ByBrand       []GroupCountResponse `json:"byBrand"`
}

func printAreasFromRequest(reqs []PrintAreaRequest) []models.PrintArea {
	if reqs == nil {
		return nil
	}
	areas := make([]models.PrintArea, len(reqs))
	for i, a := range reqs {
		areas[i] = models.PrintArea{
			Name:      a.Name,
			X:         a.X,
			Y:         a.Y,
			Width:     a.Width,
			Height:    a.Height,
			MockupURL: a.MockupURL,
			DPI:       a.DPI,
		}
	}
	return areas
}

func (req *CreateProductRequest) toModel() *models.Product {
	product := &models.Product{
		Title:       req.Title,
		Description: req.Description,
		Brand:       req.Brand,
		Type:        req.Type,
		Category:    req.Category,
		Material:    req.Material,
		BaseCost:    req.BaseCost,
		Currency:    req.Currency,
		Country:     req.Country,
		MainImage:   req.MainImage,
		Colors:      req.Colors,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
		PrintAreas:  printAreasFromRequest(req.PrintAreas),
	}
	if req.AvailableSizes != nil {
		product.AvailableSizes = *req.AvailableSizes
	}
	return product
}

func (req *UpdateProductRequest) toPatch() *models.ProductPatch {
	return &models.ProductPatch{
		Title:          req.Title,
		Description:    req.Description,
		Brand:          req.Brand,
		Type:           req.Type,
		Category:       req.Category,
		Material:       req.Material,
		BaseCost:       req.BaseCost,
		Currency:       req.Currency,
		Country:        req.Country,
		MainImage:      req.MainImage,
		Colors:         req.Colors,
		AvailableSizes: req.AvailableSizes,
		Tags:           req.Tags,
		Metadata:       req.Metadata,
		PrintAreas:     printAreasFromRequest(req.PrintAreas),
	}
}

// ListProducts lists active products matching the query filters
//
// @Summary List catalog
// @Param search query string false "Search in title, description and brand"
// @Param category query string false "Category"
// @Param brand query string false "Brand"
// @Param color query string false "Color"
// @Param size query string false "Size"
// @Param minPrice query number false "Minimum base cost"
// @Param maxPrice query number false "Maximum base cost"
// @Param tags query string false "Tags, repeated or comma separated"
// @Param sortBy query string false "title|baseCost|createdAt|updatedAt"
// @Param sortOrder query string false "asc|desc"
// @Produce json
// @Success 200 {object} ProductListResponse
// @Failure 400 {object} ErrorResponse
// @Router /catalog [get]
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, ok := productFilterFromQuery(w, r)
	if !ok {
		return
	}
	h.list(w, r, filter)
}

// SearchProducts lists products matching the path query
//
// @Summary Search catalog
// @Param query path string true "Search text"
// @Produce json
// @Success 200 {object} ProductListResponse
// @Router /catalog/search/{query} [get]
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	filter, ok := productFilterFromQuery(w, r)
	if !ok {
		return
	}
	filter.Search = chi.URLParam(r, "query")
	h.list(w, r, filter)
}

// ListByCategory lists products of one category
//
// @Summary List catalog by category
// @Param category path string true "Category"
// @Produce json
// @Success 200 {object} ProductListResponse
// @Router /catalog/category/{category} [get]
func (h *CatalogHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	filter, ok := productFilterFromQuery(w, r)
	if !ok {
		return
	}
	filter.Category = chi.URLParam(r, "category")
	h.list(w, r, filter)
}

// ListByBrand lists products of one brand
//
// @Summary List catalog by brand
// @Param brand path string true "Brand"
// @Produce json
// @Success 200 {object} ProductListResponse
// @Router /catalog/brand/{brand} [get]
func (h *CatalogHandler) ListByBrand(w http.ResponseWriter, r *http.Request) {
	filter, ok := productFilterFromQuery(w, r)
	if !ok {
		return
	}
	filter.Brand = chi.URLParam(r, "brand")
	h.list(w, r, filter)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request, filter models.ProductFilter) {
	page, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		respondError(w, r, err, "Failed to list products")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, productPageToResponse(page))
}

func productFilterFromQuery(w http.ResponseWriter, r *http.Request) (models.ProductFilter, bool) {
	q := r.URL.Query()
	filter := models.ProductFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		Category:  q.Get("category"),
		Brand:     q.Get("brand"),
		Color:     q.Get("color"),
		Size:      q.Get("size"),
		Country:   q.Get("country"),
		Material:  q.Get("material"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	for _, raw := range q["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}

	for name, dst := range map[string]**decimal.Decimal{"minPrice": &filter.MinPrice, "maxPrice": &filter.MaxPrice} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			pkghttp.WriteBadRequest(w, "Invalid "+name+" parameter")
			return filter, false
		}
		*dst = &d
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		pkghttp.WriteBadRequest(w, "minPrice must not exceed maxPrice")
		return filter, false
	}

	var err error
	if filter.Page, err = parseIntParam(q.Get("page"), 1); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid page parameter")
		return filter, false
	}
	if filter.Limit, err = parseIntParam(q.Get("limit"), models.DefaultPageSize); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid limit parameter")
		return filter, false
	}

	return filter, true
}

// GetProduct returns one active product
//
// @Summary Get product
// @Param id path string true "Product ID"
// @Produce json
// @Success 200 {object} ProductResponse
// @Failure 404 {object} ErrorResponse
// @Router /catalog/{id} [get]
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, "Product not found")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, productModelToResponse(product))
}

// CreateProduct adds a product to the catalog
//
// @Summary Create product
// @Accept json
// @Param request body CreateProductRequest true "Product"
// @Produce json
// @Success 201 {object} ProductResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /catalog [post]
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), req.toModel())
	if err != nil {
		respondError(w, r, err, "Invalid product")
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, productModelToResponse(product))
}

// UpdateProduct changes the given fields of a product
//
// @Summary Update product
// @Accept json
// @Param id path string true "Product ID"
// @Param request body UpdateProductRequest true "Fields to change"
// @Produce json
// @Success 200 {object} ProductResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /catalog/{id} [patch]
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		respondError(w, r, err, "Product not found")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, productModelToResponse(product))
}

// RemoveProduct soft-deletes a product
//
// @Summary Remove product
// @Param id path string true "Product ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /catalog/{id} [delete]
func (h *CatalogHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, "Product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HardDeleteProduct permanently deletes a product and its print areas
//
// @Summary Hard delete product
// @Param id path string true "Product ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /catalog/{id}/hard [delete]
func (h *CatalogHandler) HardDeleteProduct(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccountFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.HardDeleteProduct(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, "Product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreProduct brings back a soft-deleted product
//
// @Summary Restore product
// @Param id path string true "Product ID"
// @Produce json
// @Success 200 {object} ProductResponse
// @Failure 404 {object} ErrorResponse
// @Router /catalog/{id}/restore [patch]
func (h *CatalogHandler) RestoreProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.RestoreProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, "Product not found")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, productModelToResponse(product))
}

// StatsOverview returns catalog totals and the price range of active products
//
// @Summary Catalog statistics
// @Produce json
// @Success 200 {object} CatalogStatsResponse
// @Router /catalog/stats/overview [get]
func (h *CatalogHandler) StatsOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondError(w, r, err, "Failed to compute statistics")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &CatalogStatsResponse{
		TotalProducts:   stats.TotalProducts,
		DeletedProducts: stats.DeletedProducts,
		CategoriesCount: stats.CategoriesCount,
		BrandsCount:     stats.BrandsCount,
		AveragePrice:    stats.AveragePrice.Round(2),
		PriceRange:      PriceRangeResponse{Min: stats.MinPrice, Max: stats.MaxPrice},
	})
}

// StatsBasic returns active product counts per category and brand
//
// @Summary Catalog breakdown
// @Produce json
// @Success 200 {object} CatalogBreakdownResponse
// @Router /catalog/stats/basic [get]
func (h *CatalogHandler) StatsBasic(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.service.Breakdown(r.Context())
	if err != nil {
		respondError(w, r, err, "Failed to compute statistics")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &CatalogBreakdownResponse{
		TotalProducts: breakdown.TotalProducts,
		ByCategory:    groupCountsToResponse(breakdown.ByCategory),
		ByBrand:       groupCountsToResponse(breakdown.ByBrand),
	})
}

func groupCountsToResponse(groups []models.GroupCount) []GroupCountResponse {
	resp := make([]GroupCountResponse, len(groups))
	for i, g := range groups {
		resp[i] = GroupCountResponse{Name: g.Key, Count: g.Count}
	}
	return resp
}
