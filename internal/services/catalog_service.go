package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/labsy/internal/models"
	"github.com/BradenHooton/labsy/pkg/logger"
)

// ProductRepository defines the catalog data access.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	FindByTitleBrand(ctx context.Context, title, brand string) (*models.Product, error)
	Update(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error)
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int64, error)
	Stats(ctx context.Context) (*models.CatalogStats, error)
	Breakdown(ctx context.Context) (*models.CatalogBreakdown, error)
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CatalogService manages base products and their print areas.
type CatalogService struct {
	products ProductRepository
	audit    *logger.AuditLogger
	logger   *slog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(products ProductRepository, audit *logger.AuditLogger, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		audit:    audit,
		logger:   logger,
	}
}

func duplicateProductError(title, brand string) error {
	return fmt.Errorf("%w: Product with title %q already exists for brand %q", models.ErrConflict, title, brand)
}

// CreateProduct adds a product. The (title, brand) pair must be unused, soft-deleted
// products included.
func (s *CatalogService) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	product.Title = strings.TrimSpace(product.Title)
	product.Brand = strings.TrimSpace(product.Brand)
	if err := requireIdentity(product.Title, product.Brand); err != nil {
		return nil, err
	}
	if product.Currency == "" {
		product.Currency = models.DefaultCurrency
	}
	for i := range product.PrintAreas {
		if product.PrintAreas[i].DPI <= 0 {
			product.PrintAreas[i].DPI = models.DefaultDPI
		}
	}

	if err := s.ensureUnique(ctx, "", product.Title, product.Brand); err != nil {
		return nil, err
	}

	created, err := s.products.Create(ctx, product)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, duplicateProductError(product.Title, product.Brand)
		}
		if errors.Is(err, models.ErrBadRequest) {
			return nil, fmt.Errorf("%w: product violates a catalog constraint", models.ErrBadRequest)
		}
		s.logger.Error("failed to create product", slog.String("title", product.Title), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("product created",
		slog.String("product_id", created.ID),
		slog.Int("print_areas", len(created.PrintAreas)),
	)
	return created, nil
}

func requireIdentity(title, brand string) error {
	if title == "" {
		return fmt.Errorf("%w: title must not be blank", models.ErrBadRequest)
	}
	if brand == "" {
		return fmt.Errorf("%w: brand must not be blank", models.ErrBadRequest)
	}
	return nil
}

func (s *CatalogService) ensureUnique(ctx context.Context, selfID, title, brand string) error {
	existing, err := s.products.FindByTitleBrand(ctx, title, brand)
	if err == nil {
		if existing.ID == selfID {
			return nil
		}
		s.logger.Info("duplicate product", slog.String("existing_id", existing.ID))
		return duplicateProductError(title, brand)
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check product uniqueness", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// GetProduct retrieves an active product with its print areas.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("product not found", slog.String("product_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get product", slog.String("product_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return product, nil
}

// ListProducts returns one page of active products.
func (s *CatalogService) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error) {
	filter.PageRequest = filter.PageRequest.Normalize()

	items, total, err := s.products.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list products",
			slog.Int("page", filter.Page),
			slog.Int("limit", filter.Limit),
			slog.Any("error", err),
		)
		return nil, models.ErrInternalServer
	}

	return models.NewProductPage(items, total, filter.PageRequest), nil
}

// UpdateProduct applies the patch. Uniqueness is re-checked only when the patch touches
// the title or brand; print areas in the patch replace the stored ones.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.TouchesIdentity() {
		title, brand := current.Title, current.Brand
		if patch.Title != nil {
			t := strings.TrimSpace(*patch.Title)
			patch.Title = &t
			title = t
		}
		if patch.Brand != nil {
			b := strings.TrimSpace(*patch.Brand)
			patch.Brand = &b
			brand = b
		}
		if err := requireIdentity(title, brand); err != nil {
			return nil, err
		}
		if err := s.ensureUnique(ctx, current.ID, title, brand); err != nil {
			return nil, err
		}
	}

	for i := range patch.PrintAreas {
		if patch.PrintAreas[i].DPI <= 0 {
			patch.PrintAreas[i].DPI = models.DefaultDPI
		}
	}

	updated, err := s.products.Update(ctx, current.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, models.ErrNotFound
		case errors.Is(err, models.ErrConflict):
			return nil, fmt.Errorf("%w: another product already uses this title and brand", models.ErrConflict)
		case errors.Is(err, models.ErrBadRequest):
			return nil, fmt.Errorf("%w: product violates a catalog constraint", models.ErrBadRequest)
		}
		s.logger.Error("failed to update product", slog.String("product_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("product updated", slog.String("product_id", id))
	return updated, nil
}

// RemoveProduct soft-deletes an active product.
func (s *CatalogService) RemoveProduct(ctx context.Context, id string) error {
	if err := s.products.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("product not found", slog.String("product_id", id))
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete product", slog.String("product_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("product deleted", slog.String("product_id", id))
	return nil
}

// HardDeleteProduct permanently removes a product, deleted or not, and its print areas.
func (s *CatalogService) HardDeleteProduct(ctx context.Context, actor *models.Account, id string) error {
	err := s.products.HardDelete(ctx, id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to hard delete product", slog.String("product_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogAdminAction(ctx, logger.AuditEvent{
		Action:   "product_hard_deleted",
		ActorID:  actorID(actor),
		TargetID: id,
		Success:  err == nil,
	})

	if err != nil {
		return models.ErrNotFound
	}
	return nil
}

// RestoreProduct brings back a soft-deleted product. Products that are not deleted, or
// do not exist, report ErrNotFound.
func (s *CatalogService) RestoreProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.Restore(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("no deleted product to restore", slog.String("product_id", id))
			return nil, fmt.Errorf("%w: no deleted product with this id", models.ErrNotFound)
		}
		s.logger.Error("failed to restore product", slog.String("product_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("product restored", slog.String("product_id", id))
	return product, nil
}

// Stats summarises the active catalog.
func (s *CatalogService) Stats(ctx context.Context) (*models.CatalogStats, error) {
	stats, err := s.products.Stats(ctx)
	if err != nil {
		s.logger.Error("failed to compute catalog stats", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return stats, nil
}

// Breakdown counts active products per category and per brand.
func (s *CatalogService) Breakdown(ctx context.Context) (*models.CatalogBreakdown, error) {
	breakdown, err := s.products.Breakdown(ctx)
	if err != nil {
		s.logger.Error("failed to compute catalog breakdown", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return breakdown, nil
}

// PurgeDeleted hard-deletes products that have been soft-deleted for longer than retention.
func (s *CatalogService) PurgeDeleted(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	count, err := s.products.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted products: %w", err)
	}
	return count, nil
}

func actorID(actor *models.Account) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}
