// internal/core/ports/product_repository.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
)

// ProductListParams filters and paginates catalog listings.
type ProductListParams struct {
	Search     string
	Category   string
	ActiveOnly bool
	Page       int
	PageSize   int
}

// ProductRepository is the persistence port for the seller catalog.
// Implemented by the database adapter.
type ProductRepository interface {
	Save(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Product, error)

	// FindActiveByGTIN returns all active, non-deleted catalog entries of one
	// seller for a code, ordered cheapest-first (sale price, then id).
	FindActiveByGTIN(ctx context.Context, ownerID uuid.UUID, code string) ([]domain.Product, error)

	// FindActiveByGTINs resolves up to domain.MaxBatchRows codes in a single
	// round trip, grouping candidates by code with the same ordering as
	// FindActiveByGTIN. Codes with no match are absent from the map.
	FindActiveByGTINs(ctx context.Context, ownerID uuid.UUID, codes []string) (map[string][]domain.Product, error)

	List(ctx context.Context, ownerID uuid.UUID, params ProductListParams) ([]domain.Product, int64, error)

	// HasSaleHistory reports whether any sale line references the product;
	// referenced products are soft-deleted, unreferenced ones hard-deleted.
	HasSaleHistory(ctx context.Context, id uuid.UUID) (bool, error)
	SoftDelete(ctx context.Context, ownerID, id uuid.UUID) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}
