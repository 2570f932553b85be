package services_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/internal/services"
	"github.com/BradenHooton/labsy/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogService(repo *services.MockProductRepository) *services.CatalogService {
	log := discardLogger()
	return services.NewCatalogService(repo, logger.NewAuditLogger(log), log)
}

// ── Create tests ──

func TestCatalogService_CreateProduct_Defaults(t *testing.T) {
	product := services.NewTestProduct("", "  Classic Tee ", "Labsy")
	product.Currency = ""
	product.PrintAreas[0].DPI = 0

	created, err := newCatalogService(&services.MockProductRepository{}).CreateProduct(context.Background(), product)

	require.NoError(t, err)
	assert.Equal(t, "Classic Tee", created.Title)
	assert.Equal(t, models.DefaultCurrency, created.Currency)
	assert.Equal(t, models.DefaultDPI, created.PrintAreas[0].DPI)
}

func TestCatalogService_CreateProduct_Duplicate(t *testing.T) {
	repo := &services.MockProductRepository{
		FindByTitleBrandFunc: func(ctx context.Context, title, brand string) (*models.Product, error) {
			return services.NewTestProduct("prod_1", title, brand), nil
		},
		CreateFunc: func(ctx context.Context, product *models.Product) (*models.Product, error) {
			t.Fatal("duplicate must not be inserted")
			return nil, nil
		},
	}

	_, err := newCatalogService(repo).CreateProduct(context.Background(), services.NewTestProduct("", "Classic Tee", "Labsy"))

	require.ErrorIs(t, err, models.ErrConflict)
	assert.Contains(t, err.Error(), `Product with title "Classic Tee" already exists for brand "Labsy"`)
}

func TestCatalogService_CreateProduct_RaceSurfacesAsConflict(t *testing.T) {
	repo := &services.MockProductRepository{
		CreateFunc: func(ctx context.Context, product *models.Product) (*models.Product, error) {
			return nil, models.ErrConflict
		},
	}

	_, err := newCatalogService(repo).CreateProduct(context.Background(), services.NewTestProduct("", "Classic Tee", "Labsy"))

	assert.ErrorIs(t, err, models.ErrConflict)
}

// ── Update tests ──

func TestCatalogService_CreateProduct_BlankIdentity(t *testing.T) {
	tests := []struct {
		name  string
		title string
		brand string
	}{
		{"blank title", "   ", "Gildan"},
		{"blank brand", "Classic Tee", "\t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &services.MockProductRepository{
				CreateFunc: func(ctx context.Context, p *models.Product) (*models.Product, error) {
					t.Fatal("blank product must not be stored")
					return nil, nil
				},
			}
			product := services.NewTestProduct("", tt.title, tt.brand)

			_, err := newCatalogService(repo).CreateProduct(context.Background(), product)

			assert.ErrorIs(t, err, models.ErrBadRequest)
		})
	}
}

func TestCatalogService_UpdateProduct_BlankTitle(t *testing.T) {
	repo := &services.MockProductRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Product, error) {
			return services.NewTestProduct(id, "Classic Tee", "Gildan"), nil
		},
		UpdateFunc: func(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
			t.Fatal("blank title must not be stored")
			return nil, nil
		},
	}
	blank := "  "

	_, err := newCatalogService(repo).UpdateProduct(context.Background(), "prod_1", &models.ProductPatch{Title: &blank})

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestCatalogService_UpdateProduct_ChecksUniquenessOnlyForIdentity(t *testing.T) {
	current := services.NewTestProduct("prod_1", "Classic Tee", "Labsy")
	lookups := 0
	repo := &services.MockProductRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Product, error) {
			return current, nil
		},
		FindByTitleBrandFunc: func(ctx context.Context, title, brand string) (*models.Product, error) {
			lookups++
			return nil, models.ErrNotFound
		},
		UpdateFunc: func(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
			return current, nil
		},
	}
	svc := newCatalogService(repo)

	desc := "soft cotton"
	_, err := svc.UpdateProduct(context.Background(), "prod_1", &models.ProductPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, 0, lookups)

	title := "Premium Tee"
	_, err = svc.UpdateProduct(context.Background(), "prod_1", &models.ProductPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, 1, lookups)
}

func TestCatalogService_UpdateProduct_Conflict(t *testing.T) {
	repo := &services.MockProductRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Product, error) {
			return services.NewTestProduct("prod_1", "Classic Tee", "Labsy"), nil
		},
		FindByTitleBrandFunc: func(ctx context.Context, title, brand string) (*models.Product, error) {
			assert.Equal(t, "Classic Tee", title)
			assert.Equal(t, "Other", brand)
			return services.NewTestProduct("prod_2", title, brand), nil
		},
	}

	brand := "Other"
	_, err := newCatalogService(repo).UpdateProduct(context.Background(), "prod_1", &models.ProductPatch{Brand: &brand})

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestCatalogService_UpdateProduct_SameIdentityIsNotConflict(t *testing.T) {
	current := services.NewTestProduct("prod_1", "Classic Tee", "Labsy")
	repo := &services.MockProductRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Product, error) {
			return current, nil
		},
		FindByTitleBrandFunc: func(ctx context.Context, title, brand string) (*models.Product, error) {
			return current, nil
		},
		UpdateFunc: func(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
			assert.Equal(t, models.DefaultDPI, patch.PrintAreas[0].DPI)
			return current, nil
		},
	}

	title := "Classic Tee"
	_, err := newCatalogService(repo).UpdateProduct(context.Background(), "prod_1", &models.ProductPatch{
		Title:      &title,
		PrintAreas: []models.PrintArea{{Name: "back", Width: 10, Height: 10, MockupURL: "https://cdn.example.com/back.png"}},
	})

	assert.NoError(t, err)
}

func TestCatalogService_UpdateProduct_NotFound(t *testing.T) {
	desc := "x"
	_, err := newCatalogService(&services.MockProductRepository{}).UpdateProduct(context.Background(), "missing", &models.ProductPatch{Description: &desc})

	assert.Equal(t, models.ErrNotFound, err)
}

// ── List tests ──

func TestCatalogService_ListProducts_PageFlags(t *testing.T) {
	var got models.ProductFilter
	repo := &services.MockProductRepository{
		ListFunc: func(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int64, error) {
			got = filter
			return []*models.Product{}, 45, nil
		},
	}

	page, err := newCatalogService(repo).ListProducts(context.Background(), models.ProductFilter{
		Category:    "mugs",
		PageRequest: models.PageRequest{Page: 3, Limit: 500},
	})

	require.NoError(t, err)
	assert.Equal(t, models.MaxPageSize, got.Limit)
	assert.Equal(t, "mugs", got.Category)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)
	assert.Empty(t, page.Items)
}

func TestCatalogService_ListProducts_HugePageIsEmpty(t *testing.T) {
	var got models.ProductFilter
	repo := &services.MockProductRepository{
		ListFunc: func(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int64, error) {
			got = filter
			return []*models.Product{}, 45, nil
		},
	}

	page, err := newCatalogService(repo).ListProducts(context.Background(), models.ProductFilter{
		PageRequest: models.PageRequest{Page: math.MaxInt / 10, Limit: 20},
	})

	require.NoError(t, err)
	assert.Equal(t, models.MaxPage, got.Page)
	assert.GreaterOrEqual(t, got.Offset(), 0)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasNext)
}

func TestCatalogService_ListProducts_Error(t *testing.T) {
	repo := &services.MockProductRepository{
		ListFunc: func(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int64, error) {
			return nil, 0, errors.New("timeout")
		},
	}

	_, err := newCatalogService(repo).ListProducts(context.Background(), models.ProductFilter{})

	assert.Equal(t, models.ErrInternalServer, err)
}

// ── Delete / restore tests ──

func TestCatalogService_RestoreProduct_NotDeleted(t *testing.T) {
	_, err := newCatalogService(&services.MockProductRepository{}).RestoreProduct(context.Background(), "prod_1")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCatalogService_RemoveProduct(t *testing.T) {
	repo := &services.MockProductRepository{
		SoftDeleteFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}
	svc := newCatalogService(repo)

	assert.Equal(t, models.ErrNotFound, svc.RemoveProduct(context.Background(), "prod_1"))
	assert.NoError(t, newCatalogService(&services.MockProductRepository{}).RemoveProduct(context.Background(), "prod_1"))
}

func TestCatalogService_HardDeleteProduct(t *testing.T) {
	admin := services.NewTestAdmin("admin_1", "admin@labsy.app", models.AdminLevelAdmin)

	assert.NoError(t, newCatalogService(&services.MockProductRepository{}).HardDeleteProduct(context.Background(), admin, "prod_1"))

	repo := &services.MockProductRepository{
		HardDeleteFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}
	assert.Equal(t, models.ErrNotFound, newCatalogService(repo).HardDeleteProduct(context.Background(), admin, "prod_1"))
}

func TestCatalogService_PurgeDeleted(t *testing.T) {
	var cutoff time.Time
	repo := &services.MockProductRepository{
		PurgeDeletedBeforeFunc: func(ctx context.Context, c time.Time) (int64, error) {
			cutoff = c
			return 3, nil
		},
	}

	count, err := newCatalogService(repo).PurgeDeleted(context.Background(), 30*24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.WithinDuration(t, time.Now().Add(-30*24*time.Hour), cutoff, time.Minute)
}
