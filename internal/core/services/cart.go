// internal/core/services/cart.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
)

// DefaultCartTTL is how long an untouched cart survives in redis. Carts are
// working state, not records; abandoning one must cost nothing.
const DefaultCartTTL = 12 * time.Hour

// CartService keeps one ephemeral cart per seller in redis. Every mutation
// re-reads the product from the catalog so the stock ceiling is enforced
// against current stock, not the stock at scan time.
type CartService struct {
	products ports.ProductRepository
	cache    ports.CacheRepository
	ttl      time.Duration
	logger   *slog.Logger
}

func NewCartService(products ports.ProductRepository, cache ports.CacheRepository,
	ttl time.Duration, logger *slog.Logger) *CartService {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartService{
		products: products,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.With(slog.String("service", "cart")),
	}
}

// Get loads the seller's cart, returning an empty one when none exists.
func (s *CartService) Get(ctx context.Context, ownerID uuid.UUID) (*domain.Cart, error) {
	cart := domain.NewCart(ownerID)
	err := s.cache.Get(ctx, cartKey(ownerID), cart)
	if err != nil && !errors.Is(err, ports.ErrCacheMiss) {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// AddItem adds quantity of a catalog product to the cart. A nil unitPrice
// uses the product's sale price.
func (s *CartService) AddItem(ctx context.Context, ownerID, productID uuid.UUID,
	quantity int, unitPrice *domain.Money) (*domain.Cart, error) {
	return s.mutate(ctx, ownerID, productID, func(cart *domain.Cart, p *domain.Product) error {
		return cart.Add(p, quantity, unitPrice)
	})
}

// SetQuantity replaces a line's quantity; zero removes the line.
func (s *CartService) SetQuantity(ctx context.Context, ownerID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, ownerID, productID, func(cart *domain.Cart, p *domain.Product) error {
		return cart.SetQuantity(p, quantity)
	})
}

// RemoveItem drops a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, ownerID, productID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := cart.Remove(productID); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear discards the seller's cart entirely.
func (s *CartService) Clear(ctx context.Context, ownerID uuid.UUID) error {
	if err := s.cache.Delete(ctx, cartKey(ownerID)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// mutate runs one cart operation against the freshly loaded product and
// persists the result. The product must be active and owned by the caller.
func (s *CartService) mutate(ctx context.Context, ownerID, productID uuid.UUID,
	op func(*domain.Cart, *domain.Product) error) (*domain.Cart, error) {

	product, err := s.products.FindByID(ctx, ownerID, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}
	if !product.Active || product.DeletedAt != nil {
		return nil, fmt.Errorf("%w: product %s is inactive", domain.ErrNotFound, productID)
	}

	cart, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := op(cart, product); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) persist(ctx context.Context, cart *domain.Cart) error {
	if cart.IsEmpty() {
		return s.Clear(ctx, cart.OwnerID)
	}
	if err := s.cache.SetWithTTL(ctx, cartKey(cart.OwnerID), cart, s.ttl); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func cartKey(ownerID uuid.UUID) string {
	return "cart:" + ownerID.String()
}
