// internal/core/services/reconciler.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
)

// Reconciler matches bulk sale rows against the seller's catalog. It is the
// offline counterpart of the resolver: same deterministic cheapest-first
// selection, but strictly local — reconciliation never consults the external
// metadata provider because a sold batch refers to goods the seller already
// handled.
type Reconciler struct {
	products ports.ProductRepository
	logger   *slog.Logger
}

func NewReconciler(products ports.ProductRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		products: products,
		logger:   logger.With(slog.String("service", "reconciler")),
	}
}

// Reconcile classifies every row as valid, no_stock or not_found. All codes
// are resolved with ONE bulk catalog lookup; output order matches input
// order so results line back up with the source file. Rows without an
// explicit price inherit the matched product's sale price.
func (s *Reconciler) Reconcile(ctx context.Context, ownerID uuid.UUID, rows []domain.RawRow) ([]domain.ReconciledRow, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: batch has no rows", domain.ErrValidation)
	}
	if len(rows) > domain.MaxBatchRows {
		return nil, fmt.Errorf("%w: batch has %d rows, limit is %d",
			domain.ErrValidation, len(rows), domain.MaxBatchRows)
	}

	codes := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		code := domain.NormalizeGTIN(row.Code)
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}

	byCode, err := s.products.FindActiveByGTINs(ctx, ownerID, codes)
	if err != nil {
		return nil, fmt.Errorf("bulk catalog lookup: %w", err)
	}

	out := make([]domain.ReconciledRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.classify(row, byCode[domain.NormalizeGTIN(row.Code)]))
	}

	s.logger.InfoContext(ctx, "batch reconciled",
		slog.String("owner_id", ownerID.String()),
		slog.Int("rows", len(rows)),
		slog.Int("distinct_codes", len(codes)))

	return out, nil
}

func (s *Reconciler) classify(row domain.RawRow, candidates []domain.Product) domain.ReconciledRow {
	rec := domain.ReconciledRow{RawRow: row}

	if err := domain.ValidateGTIN(domain.NormalizeGTIN(row.Code)); err != nil {
		rec.Status = domain.RowNotFound
		rec.Reason = err.Error()
		return rec
	}
	if row.Quantity <= 0 {
		rec.Status = domain.RowNotFound
		rec.Reason = "quantity must be positive"
		return rec
	}

	product := domain.SelectCheapest(candidates)
	if product == nil {
		rec.Status = domain.RowNotFound
		rec.Reason = "no catalog entry for code"
		return rec
	}
	if product.Stock < row.Quantity {
		rec.Status = domain.RowNoStock
		rec.Product = product
		rec.Reason = fmt.Sprintf("%d requested, %d available", row.Quantity, product.Stock)
		return rec
	}

	rec.Status = domain.RowValid
	rec.Product = product
	rec.UnitPrice = product.SalePrice
	if row.Price != nil {
		rec.UnitPrice = *row.Price
	}
	return rec
}
