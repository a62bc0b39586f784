// internal/core/services/ledger.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
)

// Ledger exposes read access to committed sales plus the one status
// transition the ledger allows. Sale lines themselves are immutable.
type Ledger struct {
	sales  ports.SaleRepository
	logger *slog.Logger
}

func NewLedger(sales ports.SaleRepository, logger *slog.Logger) *Ledger {
	return &Ledger{
		sales:  sales,
		logger: logger.With(slog.String("service", "ledger")),
	}
}

func (s *Ledger) Get(ctx context.Context, ownerID, saleID uuid.UUID) (*domain.SaleRecord, error) {
	sale, err := s.sales.FindByID(ctx, ownerID, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale %s: %w", saleID, err)
	}
	return sale, nil
}

func (s *Ledger) List(ctx context.Context, ownerID uuid.UUID, params ports.SaleListParams) ([]domain.SaleRecord, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 500 {
		params.PageSize = 50
	}
	sales, total, err := s.sales.List(ctx, ownerID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	return sales, total, nil
}

// Cancel marks a completed sale cancelled. Stock is not restored; returns
// are a catalog adjustment, not a ledger rewrite.
func (s *Ledger) Cancel(ctx context.Context, ownerID, saleID uuid.UUID) error {
	if err := s.sales.UpdateStatus(ctx, ownerID, saleID, domain.SaleCancelled); err != nil {
		return fmt.Errorf("cancel sale %s: %w", saleID, err)
	}
	s.logger.InfoContext(ctx, "sale cancelled",
		slog.String("sale_id", saleID.String()),
		slog.String("owner_id", ownerID.String()))
	return nil
}
