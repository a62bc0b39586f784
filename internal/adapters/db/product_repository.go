// internal/adapters/db/product_repository.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
)

const pgUniqueViolation = "23505"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const productColumns = `id, owner_id, supplier_id, gtin, name, brand, category, image_url,
	sale_price_cents, cost_price_cents, stock, active, created_at, updated_at, deleted_at`

// productRepository implements ports.ProductRepository
type productRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewProductRepository creates a new catalog repository
func NewProductRepository(db *Database, logger *slog.Logger) ports.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "product")),
	}
}

var _ ports.ProductRepository = (*productRepository)(nil)

// Save inserts a new product. A (owner, gtin, supplier) collision maps the
// unique violation to domain.ErrDuplicateGTIN.
func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (
			id, owner_id, supplier_id, gtin, name, brand, category, image_url,
			sale_price_cents, cost_price_cents, stock, active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		product.ID, product.OwnerID, product.SupplierID, product.GTIN,
		product.Name, product.Brand, product.Category, product.ImageURL,
		int64(product.SalePrice), int64(product.CostPrice), product.Stock,
		product.Active, product.CreatedAt, product.UpdatedAt,
	).Scan(&product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: gtin %s", domain.ErrDuplicateGTIN, product.GTIN)
		}
		return fmt.Errorf("%w: save product: %v", domain.ErrPersistence, err)
	}

	r.logger.DebugContext(ctx, "product saved",
		slog.String("product_id", product.ID.String()),
		slog.String("gtin", product.GTIN))

	return nil
}

// Update rewrites the mutable fields of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products SET
			name = $1, brand = $2, category = $3, image_url = $4,
			sale_price_cents = $5, cost_price_cents = $6, stock = $7,
			active = $8, updated_at = now()
		WHERE id = $9 AND owner_id = $10 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		product.Name, product.Brand, product.Category, product.ImageURL,
		int64(product.SalePrice), int64(product.CostPrice), product.Stock,
		product.Active, product.ID, product.OwnerID,
	).Scan(&product.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, product.ID)
	}
	if err != nil {
		return fmt.Errorf("%w: update product: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`, productColumns)

	product, err := scanProduct(r.db.QueryRow(ctx, query, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find product: %v", domain.ErrPersistence, err)
	}
	return product, nil
}

// FindActiveByGTIN returns active candidates cheapest-first. Ordering is done
// in SQL so a single-code resolve and the bulk path agree.
func (r *productRepository) FindActiveByGTIN(ctx context.Context, ownerID uuid.UUID, code string) ([]domain.Product, error) {
	grouped, err := r.FindActiveByGTINs(ctx, ownerID, []string{code})
	if err != nil {
		return nil, err
	}
	return grouped[code], nil
}

// FindActiveByGTINs resolves all codes in one round trip.
func (r *productRepository) FindActiveByGTINs(ctx context.Context, ownerID uuid.UUID, codes []string) (map[string][]domain.Product, error) {
	if len(codes) == 0 {
		return map[string][]domain.Product{}, nil
	}
	if len(codes) > domain.MaxBatchRows {
		return nil, fmt.Errorf("%w: %d codes exceed the lookup limit of %d",
			domain.ErrValidation, len(codes), domain.MaxBatchRows)
	}

	query, args, err := psql.
		Select(productColumns).
		From("products").
		Where(squirrel.Eq{"owner_id": ownerID, "gtin": codes, "active": true}).
		Where("deleted_at IS NULL").
		OrderBy("gtin", "sale_price_cents ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build gtin query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: gtin lookup: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	grouped := make(map[string][]domain.Product)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan product: %v", domain.ErrPersistence, err)
		}
		grouped[product.GTIN] = append(grouped[product.GTIN], *product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: gtin lookup: %v", domain.ErrPersistence, err)
	}

	r.logger.DebugContext(ctx, "bulk gtin lookup",
		slog.Int("codes", len(codes)),
		slog.Int("matched", len(grouped)))

	return grouped, nil
}

func (r *productRepository) List(ctx context.Context, ownerID uuid.UUID, params ports.ProductListParams) ([]domain.Product, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 500 {
		params.PageSize = 50
	}

	builder := psql.
		Select(productColumns+", COUNT(*) OVER() AS total_count").
		From("products").
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where("deleted_at IS NULL")

	if params.ActiveOnly {
		builder = builder.Where(squirrel.Eq{"active": true})
	}
	if params.Category != "" {
		builder = builder.Where(squirrel.Eq{"category": params.Category})
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		builder = builder.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"brand": pattern},
			squirrel.Eq{"gtin": params.Search},
		})
	}

	query, args, err := builder.
		OrderBy("name ASC", "id ASC").
		Limit(uint64(params.PageSize)).
		Offset(uint64((params.Page - 1) * params.PageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list products: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var products []domain.Product
	var total int64
	for rows.Next() {
		var p domain.Product
		var supplierID *uuid.UUID
		var salePrice, costPrice int64
		var deletedAt *time.Time
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &supplierID, &p.GTIN, &p.Name, &p.Brand,
			&p.Category, &p.ImageURL, &salePrice, &costPrice, &p.Stock,
			&p.Active, &p.CreatedAt, &p.UpdatedAt, &deletedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scan product: %v", domain.ErrPersistence, err)
		}
		p.SupplierID = supplierID
		p.SalePrice = domain.Money(salePrice)
		p.CostPrice = domain.Money(costPrice)
		p.DeletedAt = deletedAt
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: list products: %v", domain.ErrPersistence, err)
	}

	return products, total, nil
}

func (r *productRepository) HasSaleHistory(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sale_line_items WHERE product_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: sale history check: %v", domain.ErrPersistence, err)
	}
	return exists, nil
}

// SoftDelete deactivates a product referenced by the ledger: it disappears
// from resolution but its sale lines keep a valid target.
func (r *productRepository) SoftDelete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET active = FALSE, stock = 0, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("%w: soft delete product: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM products WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("%w: delete product: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return nil
}

// scanProduct reads one product row in productColumns order
func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var supplierID *uuid.UUID
	var salePrice, costPrice int64
	var deletedAt *time.Time

	err := row.Scan(
		&p.ID, &p.OwnerID, &supplierID, &p.GTIN, &p.Name, &p.Brand,
		&p.Category, &p.ImageURL, &salePrice, &costPrice, &p.Stock,
		&p.Active, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SupplierID = supplierID
	p.SalePrice = domain.Money(salePrice)
	p.CostPrice = domain.Money(costPrice)
	p.DeletedAt = deletedAt
	return &p, nil
}
