// internal/adapters/db/sale_repository.go
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

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
)

// saleRepository implements ports.SaleRepository
type saleRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewSaleRepository creates a new sale ledger repository
func NewSaleRepository(db *Database, logger *slog.Logger) ports.SaleRepository {
	return &saleRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "sale")),
	}
}

var _ ports.SaleRepository = (*saleRepository)(nil)

// CreateSale writes header, lines and stock decrements in one transaction.
//
// Products are locked FOR UPDATE while ownership and active state are
// re-validated, then each decrement is conditional on sufficient stock
// (zero rows affected aborts). Either the whole sale lands or nothing does.
func (r *saleRepository) CreateSale(ctx context.Context, sale *domain.SaleRecord) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		productIDs := make([]uuid.UUID, 0, len(sale.Lines))
		for _, line := range sale.Lines {
			productIDs = append(productIDs, line.ProductID)
		}

		rows, err := tx.Query(ctx, `
			SELECT id, owner_id, active, deleted_at IS NOT NULL, name
			FROM products
			WHERE id = ANY($1)
			FOR UPDATE`, productIDs)
		if err != nil {
			return fmt.Errorf("%w: lock products: %v", domain.ErrPersistence, err)
		}

		type lockedProduct struct {
			ownerID uuid.UUID
			active  bool
			deleted bool
			name    string
		}
		locked := make(map[uuid.UUID]lockedProduct, len(productIDs))
		for rows.Next() {
			var id uuid.UUID
			var p lockedProduct
			if err := rows.Scan(&id, &p.ownerID, &p.active, &p.deleted, &p.name); err != nil {
				rows.Close()
				return fmt.Errorf("%w: scan locked product: %v", domain.ErrPersistence, err)
			}
			locked[id] = p
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: lock products: %v", domain.ErrPersistence, err)
		}

		for _, line := range sale.Lines {
			p, ok := locked[line.ProductID]
			if !ok {
				return fmt.Errorf("%w: product %s does not exist", domain.ErrOwnershipViolation, line.ProductID)
			}
			if p.ownerID != sale.OwnerID || !p.active || p.deleted {
				return fmt.Errorf("%w: product %s", domain.ErrOwnershipViolation, line.ProductID)
			}
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO sales (id, owner_id, status, total_amount_cents, line_count, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at`,
			sale.ID, sale.OwnerID, sale.Status, int64(sale.TotalAmount),
			sale.LineCount, sale.Notes, sale.CreatedAt,
		).Scan(&sale.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: insert sale header: %v", domain.ErrPersistence, err)
		}

		batch := &pgx.Batch{}
		for _, line := range sale.Lines {
			batch.Queue(`
				INSERT INTO sale_line_items (id, sale_id, product_id, quantity, unit_price_cents, subtotal_cents)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				line.ID, line.SaleID, line.ProductID, line.Quantity,
				int64(line.UnitPrice), int64(line.Subtotal))
		}
		results := tx.SendBatch(ctx, batch)
		for range sale.Lines {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("%w: insert sale line: %v", domain.ErrPersistence, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("%w: close line batch: %v", domain.ErrPersistence, err)
		}

		for _, line := range sale.Lines {
			tag, err := tx.Exec(ctx, `
				UPDATE products
				SET stock = stock - $1, updated_at = now()
				WHERE id = $2 AND stock >= $1`,
				line.Quantity, line.ProductID)
			if err != nil {
				return fmt.Errorf("%w: decrement stock: %v", domain.ErrPersistence, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: insufficient stock for %s",
					domain.ErrOutOfStock, locked[line.ProductID].name)
			}
		}

		r.logger.DebugContext(ctx, "sale persisted",
			slog.String("sale_id", sale.ID.String()),
			slog.Int("lines", len(sale.Lines)))

		return nil
	})
}

func (r *saleRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.SaleRecord, error) {
	sale := &domain.SaleRecord{}
	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT id, owner_id, status, total_amount_cents, line_count, notes, created_at
		FROM sales
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&sale.ID, &sale.OwnerID, &sale.Status, &total, &sale.LineCount, &sale.Notes, &sale.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find sale: %v", domain.ErrPersistence, err)
	}
	sale.TotalAmount = domain.Money(total)

	rows, err := r.db.Query(ctx, `
		SELECT id, sale_id, product_id, quantity, unit_price_cents, subtotal_cents
		FROM sale_line_items
		WHERE sale_id = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load sale lines: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.SaleLineItem
		var unitPrice, subtotal int64
		if err := rows.Scan(&line.ID, &line.SaleID, &line.ProductID,
			&line.Quantity, &unitPrice, &subtotal); err != nil {
			return nil, fmt.Errorf("%w: scan sale line: %v", domain.ErrPersistence, err)
		}
		line.UnitPrice = domain.Money(unitPrice)
		line.Subtotal = domain.Money(subtotal)
		sale.Lines = append(sale.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load sale lines: %v", domain.ErrPersistence, err)
	}

	return sale, nil
}

func (r *saleRepository) List(ctx context.Context, ownerID uuid.UUID, params ports.SaleListParams) ([]domain.SaleRecord, int64, error) {
	builder := psql.
		Select("id, owner_id, status, total_amount_cents, line_count, notes, created_at, COUNT(*) OVER() AS total_count").
		From("sales").
		Where(squirrel.Eq{"owner_id": ownerID})

	if params.Status != "" {
		builder = builder.Where(squirrel.Eq{"status": params.Status})
	}
	if params.From != nil {
		builder = builder.Where(squirrel.GtOrEq{"created_at": *params.From})
	}
	if params.To != nil {
		builder = builder.Where(squirrel.Lt{"created_at": *params.To})
	}

	query, args, err := builder.
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(params.PageSize)).
		Offset(uint64((params.Page - 1) * params.PageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build sale list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list sales: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var sales []domain.SaleRecord
	var total int64
	for rows.Next() {
		var sale domain.SaleRecord
		var amount int64
		if err := rows.Scan(&sale.ID, &sale.OwnerID, &sale.Status, &amount,
			&sale.LineCount, &sale.Notes, &sale.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("%w: scan sale: %v", domain.ErrPersistence, err)
		}
		sale.TotalAmount = domain.Money(amount)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: list sales: %v", domain.ErrPersistence, err)
	}

	return sales, total, nil
}

func (r *saleRepository) UpdateStatus(ctx context.Context, ownerID, id uuid.UUID, status domain.SaleStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sales SET status = $1 WHERE id = $2 AND owner_id = $3`,
		status, id, ownerID)
	if err != nil {
		return fmt.Errorf("%w: update sale status: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	return nil
}

// DeleteAbandonedBefore purges pending sales older than cutoff. Used by the
// cleanup worker; completed and cancelled sales are never touched.
func (r *saleRepository) DeleteAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sales WHERE status = 'pending' AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: purge abandoned sales: %v", domain.ErrPersistence, err)
	}
	return tag.RowsAffected(), nil
}
