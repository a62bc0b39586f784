// internal/core/ports/sale_repository.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
)

// SaleListParams filters and paginates the sale ledger.
type SaleListParams struct {
	Status   domain.SaleStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// SaleRepository is the persistence port for the immutable sale ledger.
//
// CreateSale is the single write path that turns a cart or batch into a
// sale. The implementation must run header insert, line inserts and stock
// decrements in one transaction, re-validating inside it that every product
// exists, is active and belongs to sale.OwnerID (domain.ErrOwnershipViolation
// otherwise) and that stock suffices (domain.ErrOutOfStock otherwise). Any
// failure rolls back the whole commit.
type SaleRepository interface {
	CreateSale(ctx context.Context, sale *domain.SaleRecord) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.SaleRecord, error)
	List(ctx context.Context, ownerID uuid.UUID, params SaleListParams) ([]domain.SaleRecord, int64, error)
	UpdateStatus(ctx context.Context, ownerID, id uuid.UUID, status domain.SaleStatus) error
	DeleteAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
