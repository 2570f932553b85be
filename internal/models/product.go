package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product categories accepted by the catalog.
var ProductCategories = []string{"tshirts", "hoodies", "totebags", "mugs", "other"}

// Currencies accepted for base costs.
var Currencies = []string{"USD", "EUR", "GBP", "AED", "SAR"}

const (
	DefaultCurrency = "USD"
	DefaultDPI      = 300
)

// Product is a base product of the catalog that creators customise.
type Product struct {
	ID             string
	Title          string
	Description    string
	Brand          string
	Type           string
	Category       string
	Material       string
	BaseCost       decimal.Decimal
	Currency       string
	Country        string
	MainImage      string
	Colors         []string
	AvailableSizes Sizes
	Tags           []string
	Metadata       *ProductMetadata
	PrintAreas     []PrintArea
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// PrintArea is a rectangle on a product mockup that can receive a print.
type PrintArea struct {
	ID        string
	ProductID string
	Name      string
	X         float64
	Y         float64
	Width     float64
	Height    float64
	MockupURL string
	DPI       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProductDimensions struct {
	LengthCm *float64 `json:"lengthCm,omitempty"`
	WidthCm  *float64 `json:"widthCm,omitempty"`
	HeightCm *float64 `json:"heightCm,omitempty"`
}

type ProductMetadata struct {
	Material         string             `json:"material,omitempty"`
	CareInstructions string             `json:"careInstructions,omitempty"`
	WeightGrams      *float64           `json:"weightGrams,omitempty"`
	Dimensions       *ProductDimensions `json:"dimensions,omitempty"`
}

// Sizes holds the available sizes of a product, either as a plain list ("S", "M") or as a
// map of size to stock count. It is stored verbatim as JSON.
type Sizes struct {
	List  []string
	Stock map[string]int
}

// IsEmpty reports whether no size is defined.
func (s Sizes) IsEmpty() bool {
	return len(s.List) == 0 && len(s.Stock) == 0
}

func (s Sizes) MarshalJSON() ([]byte, error) {
	if s.Stock != nil {
		return json.Marshal(s.Stock)
	}
	if s.List == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.List)
}

func (s *Sizes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = Sizes{List: list}
		return nil
	}
	var stock map[string]int
	if err := json.Unmarshal(data, &stock); err != nil {
		return fmt.Errorf("sizes must be a list of strings or a map of size to stock: %w", err)
	}
	*s = Sizes{Stock: stock}
	return nil
}

// ProductFilter holds the optional, conjunctive predicates of a catalog listing.
type ProductFilter struct {
	Search    string
	Category  string
	Brand     string
	Color     string
	Size      string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Country   string
	Material  string
	Tags      []string
	SortBy    string
	SortOrder string
	PageRequest
}

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Items       []*Product
	Total       int64
	Page        int
	Limit       int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// NewProductPage derives the paging flags from the request and the total count.
func NewProductPage(items []*Product, total int64, req PageRequest) *ProductPage {
	totalPages := TotalPages(total, req.Limit)
	return &ProductPage{
		Items:       items,
		Total:       total,
		Page:        req.Page,
		Limit:       req.Limit,
		TotalPages:  totalPages,
		HasNext:     req.Page < totalPages,
		HasPrevious: req.Page > 1,
	}
}

// ProductPatch lists the fields of a product update; nil means unchanged.
type ProductPatch struct {
	Title          *string
	Description    *string
	Brand          *string
	Type           *string
	Category       *string
	Material       *string
	BaseCost       *decimal.Decimal
	Currency       *string
	Country        *string
	MainImage      *string
	Colors         []string
	AvailableSizes *Sizes
	Tags           []string
	Metadata       *ProductMetadata
	PrintAreas     []PrintArea // replaced wholesale when non-nil
}

// TouchesIdentity reports whether the patch changes the (title, brand) pair.
func (p *ProductPatch) TouchesIdentity() bool {
	return p.Title != nil || p.Brand != nil
}

// CatalogStats summarises the active catalog.
type CatalogStats struct {
	TotalProducts   int64
	DeletedProducts int64
	CategoriesCount int64
	BrandsCount     int64
	AveragePrice    decimal.Decimal
	MinPrice        decimal.Decimal
	MaxPrice        decimal.Decimal
}

// GroupCount is a count of active products sharing a category or brand.
type GroupCount struct {
	Key   string
	Count int64
}

// CatalogBreakdown lists product counts per category and per brand.
type CatalogBreakdown struct {
	TotalProducts int64
	ByCategory    []GroupCount
	ByBrand       []GroupCount
}
