// internal/core/services/quick_register.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
)

// QuickRegisterInput is the minimal data needed to register an unknown code
// at the counter without leaving the sale flow.
type QuickRegisterInput struct {
	GTIN         string
	Name         string
	Brand        string
	Category     string
	ImageURL     string
	SalePrice    domain.Money
	CostPrice    domain.Money
	InitialStock int
	SupplierID   *uuid.UUID
}

// QuickRegister creates catalog entries inline during a sale, typically
// pre-filled from an external metadata match.
type QuickRegister struct {
	products ports.ProductRepository
	cache    ports.CacheRepository
	logger   *slog.Logger
}

func NewQuickRegister(products ports.ProductRepository, cache ports.CacheRepository,
	logger *slog.Logger) *QuickRegister {
	return &QuickRegister{
		products: products,
		cache:    cache,
		logger:   logger.With(slog.String("service", "quick_register")),
	}
}

// Register validates the input, persists the product and returns it in the
// same shape the resolver's local-hit path produces, so the caller can drop
// it straight into a cart. A (owner, gtin, supplier) collision surfaces as
// domain.ErrDuplicateGTIN from the repository.
func (s *QuickRegister) Register(ctx context.Context, ownerID uuid.UUID, input QuickRegisterInput) (*domain.Product, error) {
	product := &domain.Product{
		OwnerID:    ownerID,
		SupplierID: input.SupplierID,
		GTIN:       domain.NormalizeGTIN(input.GTIN),
		Name:       input.Name,
		Brand:      input.Brand,
		Category:   input.Category,
		ImageURL:   input.ImageURL,
		SalePrice:  input.SalePrice,
		CostPrice:  input.CostPrice,
		Stock:      input.InitialStock,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	product.PrepareForStorage()
	if err := s.products.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("save product %s: %w", product.GTIN, err)
	}

	// The code may have a cached external miss from the scan that triggered
	// this registration; drop it so the next resolve sees the local hit.
	if err := s.cache.Delete(ctx, externalMetadataKey(product.GTIN)); err != nil {
		s.logger.DebugContext(ctx, "metadata cache invalidation failed",
			slog.String("gtin", product.GTIN),
			slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "product quick-registered",
		slog.String("product_id", product.ID.String()),
		slog.String("gtin", product.GTIN),
		slog.Int("initial_stock", product.Stock))

	return product, nil
}
