package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/labsy/internal/database"
	"github.com/BradenHooton/labsy/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type ProductRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db, pool: db.Pool}
}

const productColumns = `
	id, title, description, brand, type, category, material, base_cost::text, currency, country, main_image,
	colors, available_sizes, tags, metadata, created_at, updated_at, deleted_at`

const printAreaColumns = `id, product_id, name, x, y, width, height, mockup_url, dpi, created_at, updated_at`

// sortColumns maps the accepted sortBy values to columns; anything else sorts by created_at.
var sortColumns = map[string]string{
	"title":     "title",
	"cost":      "base_cost",
	"baseCost":  "base_cost",
	"base_cost": "base_cost",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func scanProductRow(scanner rowScanner) (*models.Product, error) {
	var p models.Product
	var baseCost string
	var sizes, metadata []byte

	err := scanner.Scan(
		&p.ID, &p.Title, &p.Description, &p.Brand, &p.Type, &p.Category, &p.Material, &baseCost,
		&p.Currency, &p.Country, &p.MainImage,
		pq.Array(&p.Colors), &sizes, pq.Array(&p.Tags), &metadata,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if p.BaseCost, err = decimal.NewFromString(baseCost); err != nil {
		return nil, fmt.Errorf("invalid base_cost %q: %w", baseCost, err)
	}
	if err := unmarshalJSONB(sizes, &p.AvailableSizes); err != nil {
		return nil, err
	}
	if len(metadata) > 0 && string(metadata) != "null" {
		p.Metadata = &models.ProductMetadata{}
		if err := unmarshalJSONB(metadata, p.Metadata); err != nil {
			return nil, err
		}
	}

	return &p, nil
}

func scanProductRows(rows pgx.Rows) ([]*models.Product, error) {
	defer rows.Close()

	products := make([]*models.Product, 0)

	for rows.Next() {
		product, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

func scanPrintAreaRows(rows pgx.Rows) ([]models.PrintArea, error) {
	defer rows.Close()

	areas := make([]models.PrintArea, 0)

	for rows.Next() {
		var a models.PrintArea
		if err := rows.Scan(
			&a.ID, &a.ProductID, &a.Name, &a.X, &a.Y, &a.Width, &a.Height, &a.MockupURL, &a.DPI,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan print area: %w", err)
		}
		areas = append(areas, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return areas, nil
}

func productJSONColumns(p *models.Product) (sizes, metadata []byte, err error) {
	if sizes, err = json.Marshal(p.AvailableSizes); err != nil {
		return nil, nil, fmt.Errorf("failed to encode available sizes: %w", err)
	}
	if p.Metadata != nil {
		if metadata, err = json.Marshal(p.Metadata); err != nil {
			return nil, nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
	}
	return sizes, metadata, nil
}

func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Create inserts the product and its print areas in one transaction.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	product.ID = uuid.New().String()
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	sizes, metadata, err := productJSONColumns(product)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO products (
			id, title, description, brand, type, category, material, base_cost, currency, country, main_image,
			colors, available_sizes, tags, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + productColumns

	var created *models.Product
	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = scanProductRow(tx.QueryRow(ctx, query,
			product.ID, product.Title, product.Description, product.Brand, product.Type, product.Category,
			product.Material, product.BaseCost.StringFixed(2), product.Currency, product.Country, product.MainImage,
			pq.Array(stringsOrEmpty(product.Colors)), sizes, pq.Array(stringsOrEmpty(product.Tags)), metadata,
			product.CreatedAt, product.UpdatedAt,
		))
		if err != nil {
			return err
		}

		created.PrintAreas, err = insertPrintAreas(ctx, tx, created.ID, product.PrintAreas, now)
		return err
	})
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return created, nil
}

func insertPrintAreas(ctx context.Context, tx pgx.Tx, productID string, areas []models.PrintArea, now time.Time) ([]models.PrintArea, error) {
	query := `
		INSERT INTO print_areas (id, product_id, name, x, y, width, height, mockup_url, dpi, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING ` + printAreaColumns

	inserted := make([]models.PrintArea, 0, len(areas))
	for i, area := range areas {
		if area.DPI <= 0 {
			area.DPI = models.DefaultDPI
		}

		var a models.PrintArea
		err := tx.QueryRow(ctx, query,
			uuid.New().String(), productID, area.Name, area.X, area.Y, area.Width, area.Height,
			area.MockupURL, area.DPI, i, now,
		).Scan(&a.ID, &a.ProductID, &a.Name, &a.X, &a.Y, &a.Width, &a.Height, &a.MockupURL, &a.DPI,
			&a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, database.MapPostgresError(err)
		}
		inserted = append(inserted, a)
	}

	return inserted, nil
}

// GetByID returns a non-deleted product with its print areas.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`

	product, err := scanProductRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.attachPrintAreas(ctx, []*models.Product{product}); err != nil {
		return nil, err
	}

	return product, nil
}

// FindByTitleBrand looks up a product by its unique pair, soft-deleted rows included.
func (r *ProductRepository) FindByTitleBrand(ctx context.Context, title, brand string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE title = $1 AND brand = $2`

	return scanProductRow(r.pool.QueryRow(ctx, query, title, brand))
}

// Update applies the patch to a non-deleted product. When the patch carries print areas
// they replace the existing ones wholesale.
func (r *ProductRepository) Update(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	sets := []string{}
	args := []interface{}{id}
	argIndex := 2

	set := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Brand != nil {
		set("brand", *patch.Brand)
	}
	if patch.Type != nil {
		set("type", *patch.Type)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Material != nil {
		set("material", *patch.Material)
	}
	if patch.BaseCost != nil {
		set("base_cost", patch.BaseCost.StringFixed(2))
	}
	if patch.Currency != nil {
		set("currency", *patch.Currency)
	}
	if patch.Country != nil {
		set("country", *patch.Country)
	}
	if patch.MainImage != nil {
		set("main_image", *patch.MainImage)
	}
	if patch.Colors != nil {
		set("colors", pq.Array(patch.Colors))
	}
	if patch.AvailableSizes != nil {
		sizes, err := json.Marshal(patch.AvailableSizes)
		if err != nil {
			return nil, fmt.Errorf("failed to encode available sizes: %w", err)
		}
		set("available_sizes", sizes)
	}
	if patch.Tags != nil {
		set("tags", pq.Array(patch.Tags))
	}
	if patch.Metadata != nil {
		metadata, err := json.Marshal(patch.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		set("metadata", metadata)
	}

	now := time.Now().UTC()
	set("updated_at", now)

	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s`,
		strings.Join(sets, ", "), productColumns)

	var updated *models.Product
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		updated, err = scanProductRow(tx.QueryRow(ctx, query, args...))
		if err != nil {
			return err
		}

		if patch.PrintAreas != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM print_areas WHERE product_id = $1`, id); err != nil {
				return err
			}
			updated.PrintAreas, err = insertPrintAreas(ctx, tx, id, patch.PrintAreas, now)
			return err
		}

		rows, err := tx.Query(ctx, `SELECT `+printAreaColumns+` FROM print_areas WHERE product_id = $1 ORDER BY position, created_at`, id)
		if err != nil {
			return err
		}
		updated.PrintAreas, err = scanPrintAreaRows(rows)
		return err
	})
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return updated, nil
}

// SoftDelete marks an active product deleted.
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	return r.execOne(ctx, `UPDATE products SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

// HardDelete removes the product row, deleted or not; print areas cascade.
func (r *ProductRepository) HardDelete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM products WHERE id = $1`, id)
}

// Restore clears the deletion mark. Products that are not soft-deleted report ErrNotFound.
func (r *ProductRepository) Restore(ctx context.Context, id string) (*models.Product, error) {
	if err := r.execOne(ctx, `UPDATE products SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ProductRepository) execOne(ctx context.Context, query, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// PurgeDeletedBefore hard-deletes products soft-deleted before the cutoff and returns how many went.
func (r *ProductRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM products WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// buildProductWhere assembles the conjunctive filter over active products.
func buildProductWhere(filter *models.ProductFilter) (string, []interface{}) {
	conditions := []string{"deleted_at IS NULL"}
	var args []interface{}
	argIndex := 1

	add := func(format string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(format, argIndex))
		args = append(args, value)
		argIndex++
	}

	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, pattern)
		argIndex++
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Brand != "" {
		add("brand = $%d", filter.Brand)
	}
	if filter.Color != "" {
		add("$%d = ANY(colors)", filter.Color)
	}
	if filter.Size != "" {
		// available_sizes is either ["S","M"] or {"S": 10}; ? matches an element or a key.
		add("available_sizes ? $%d", filter.Size)
	}
	if filter.MinPrice != nil {
		add("base_cost >= $%d", filter.MinPrice.String())
	}
	if filter.MaxPrice != nil {
		add("base_cost <= $%d", filter.MaxPrice.String())
	}
	if filter.Country != "" {
		add("country = $%d", filter.Country)
	}
	if m := strings.TrimSpace(filter.Material); m != "" {
		add("material ILIKE $%d", "%"+escapeLike(m)+"%")
	}
	if len(filter.Tags) > 0 {
		add("tags && $%d", pq.Array(filter.Tags))
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func productOrderBy(sortBy, sortOrder string) string {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", column, direction, direction)
}

// List returns one page of active products matching the filter with the total match count.
func (r *ProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int64, error) {
	where, args := buildProductWhere(&filter)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page := filter.PageRequest.Normalize()
	query := fmt.Sprintf("SELECT %s FROM products%s%s LIMIT $%d OFFSET $%d",
		productColumns, where, productOrderBy(filter.SortBy, filter.SortOrder), len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}

	products, err := scanProductRows(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := r.attachPrintAreas(ctx, products); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// attachPrintAreas loads the print areas of all given products in one query.
func (r *ProductRepository) attachPrintAreas(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	byID := make(map[string]*models.Product, len(products))
	for i, p := range products {
		ids[i] = p.ID
		p.PrintAreas = []models.PrintArea{}
		byID[p.ID] = p
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+printAreaColumns+` FROM print_areas WHERE product_id::text = ANY($1) ORDER BY product_id, position, created_at`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query print areas: %w", err)
	}

	areas, err := scanPrintAreaRows(rows)
	if err != nil {
		return err
	}

	for _, a := range areas {
		if p, ok := byID[a.ProductID]; ok {
			p.PrintAreas = append(p.PrintAreas, a)
		}
	}

	return nil
}

// Stats summarises active products; deleted products are only counted.
func (r *ProductRepository) Stats(ctx context.Context) (*models.CatalogStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE deleted_at IS NULL),
			COUNT(*) FILTER (WHERE deleted_at IS NOT NULL),
			COUNT(DISTINCT category) FILTER (WHERE deleted_at IS NULL),
			COUNT(DISTINCT brand) FILTER (WHERE deleted_at IS NULL),
			COALESCE(ROUND(AVG(base_cost) FILTER (WHERE deleted_at IS NULL), 2), 0)::text,
			COALESCE(MIN(base_cost) FILTER (WHERE deleted_at IS NULL), 0)::text,
			COALESCE(MAX(base_cost) FILTER (WHERE deleted_at IS NULL), 0)::text
		FROM products`

	var stats models.CatalogStats
	var avg, minPrice, maxPrice string
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalProducts, &stats.DeletedProducts, &stats.CategoriesCount, &stats.BrandsCount,
		&avg, &minPrice, &maxPrice,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	for _, f := range []struct {
		raw  string
		dest *decimal.Decimal
	}{{avg, &stats.AveragePrice}, {minPrice, &stats.MinPrice}, {maxPrice, &stats.MaxPrice}} {
		if *f.dest, err = decimal.NewFromString(f.raw); err != nil {
			return nil, fmt.Errorf("invalid price aggregate %q: %w", f.raw, err)
		}
	}

	return &stats, nil
}

// Breakdown counts active products per category and per brand.
func (r *ProductRepository) Breakdown(ctx context.Context) (*models.CatalogBreakdown, error) {
	var breakdown models.CatalogBreakdown

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE deleted_at IS NULL`).Scan(&breakdown.TotalProducts); err != nil {
		return nil, database.MapPostgresError(err)
	}

	var err error
	if breakdown.ByCategory, err = r.groupCounts(ctx, "category"); err != nil {
		return nil, err
	}
	if breakdown.ByBrand, err = r.groupCounts(ctx, "brand"); err != nil {
		return nil, err
	}

	return &breakdown, nil
}

// groupCounts is only called with fixed column names.
func (r *ProductRepository) groupCounts(ctx context.Context, column string) ([]models.GroupCount, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) FROM products
		WHERE deleted_at IS NULL
		GROUP BY %[1]s ORDER BY COUNT(*) DESC, %[1]s`, column)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to group products by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make([]models.GroupCount, 0)
	for rows.Next() {
		var gc models.GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		counts = append(counts, gc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}
