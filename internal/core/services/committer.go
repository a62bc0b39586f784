// internal/core/services/committer.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
)

// Committer is the single write path that turns approved lines into a
// ledger entry. Both the cart flow and the batch flow converge here, so
// every financial guarantee is enforced in exactly one place.
type Committer struct {
	sales  ports.SaleRepository
	logger *slog.Logger
}

func NewCommitter(sales ports.SaleRepository, logger *slog.Logger) *Committer {
	return &Committer{
		sales:  sales,
		logger: logger.With(slog.String("service", "committer")),
	}
}

// Commit validates the lines, rebuilds the sale with server-side totals and
// persists it atomically. Ownership, active state and stock are re-checked
// inside the repository transaction; any violation aborts the whole sale.
func (s *Committer) Commit(ctx context.Context, ownerID uuid.UUID,
	lines []domain.SaleLineInput, notes string) (*domain.SaleRecord, error) {

	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner_id is required", domain.ErrValidation)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: sale has no lines", domain.ErrValidation)
	}
	for i, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	sale := domain.NewSaleRecord(ownerID, lines, notes)
	if err := s.sales.CreateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("commit sale: %w", err)
	}

	s.logger.InfoContext(ctx, "sale committed",
		slog.String("sale_id", sale.ID.String()),
		slog.String("owner_id", ownerID.String()),
		slog.Int("line_count", sale.LineCount),
		slog.String("total_amount", sale.TotalAmount.String()))

	return sale, nil
}

// CommitReconciled commits the valid rows of a reconciled batch, skipping
// rows that did not reconcile. Returns the sale plus the count of skipped
// rows so import results can report both.
func (s *Committer) CommitReconciled(ctx context.Context, ownerID uuid.UUID,
	rows []domain.ReconciledRow, notes string) (*domain.SaleRecord, int, error) {

	var lines []domain.SaleLineInput
	skipped := 0
	for _, row := range rows {
		if row.Status != domain.RowValid {
			skipped++
			continue
		}
		lines = append(lines, domain.SaleLineInput{
			ProductID: row.Product.ID,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
		})
	}
	if len(lines) == 0 {
		return nil, skipped, fmt.Errorf("%w: no valid rows to commit", domain.ErrValidation)
	}

	sale, err := s.Commit(ctx, ownerID, lines, notes)
	if err != nil {
		return nil, skipped, err
	}
	return sale, skipped, nil
}
