// internal/core/services/resolver.go
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

// externalCacheTTL bounds how long a provider answer (match or miss) is
// reused. Provider data is descriptive and changes rarely.
const externalCacheTTL = time.Hour

// Resolver turns a scanned code into a sellable product, a descriptive
// external match, or a miss. It is read-only: resolving never mutates the
// catalog, so repeated scans of the same code are idempotent.
type Resolver struct {
	products ports.ProductRepository
	metadata ports.MetadataClient
	cache    ports.CacheRepository
	logger   *slog.Logger
}

func NewResolver(products ports.ProductRepository, metadata ports.MetadataClient,
	cache ports.CacheRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		products: products,
		metadata: metadata,
		cache:    cache,
		logger:   logger.With(slog.String("service", "resolver")),
	}
}

// Resolve maps a code to a resolution variant:
//
//  1. Format check first; malformed codes never reach a lookup.
//  2. Local catalog hit wins. Ambiguous codes (same GTIN from several
//     suppliers) pick the cheapest sale price, ties broken by lowest id.
//  3. A local hit with no stock reports out_of_stock rather than falling
//     through to the external provider.
//  4. Local miss consults the metadata provider; transport failure degrades
//     to not_found so the counter flow never blocks on a third party.
func (s *Resolver) Resolve(ctx context.Context, ownerID uuid.UUID, code string) (domain.Resolution, error) {
	code = domain.NormalizeGTIN(code)
	if err := domain.ValidateGTIN(code); err != nil {
		return domain.InvalidResolution(code, err.Error()), nil
	}

	candidates, err := s.products.FindActiveByGTIN(ctx, ownerID, code)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("catalog lookup for %s: %w", code, err)
	}

	if winner := domain.SelectCheapest(candidates); winner != nil {
		if winner.Stock <= 0 {
			return domain.OutOfStockResolution(code, winner.Name), nil
		}
		return domain.FoundResolution(code, winner), nil
	}

	return s.resolveExternal(ctx, code), nil
}

// resolveExternal consults the metadata provider, caching both matches and
// misses. Failures are logged and reported as not_found.
func (s *Resolver) resolveExternal(ctx context.Context, code string) domain.Resolution {
	cacheKey := externalMetadataKey(code)

	var cached domain.Resolution
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached
	}

	ext, err := s.metadata.Lookup(ctx, code)
	switch {
	case err == nil:
		res := domain.ExternalMatchResolution(code, ext)
		s.cacheResolution(ctx, cacheKey, res)
		return res
	case errors.Is(err, domain.ErrNotFound):
		res := domain.NotFoundResolution(code)
		s.cacheResolution(ctx, cacheKey, res)
		return res
	default:
		s.logger.WarnContext(ctx, "external metadata lookup degraded to not_found",
			slog.String("code", code),
			slog.String("error", err.Error()))
		return domain.NotFoundResolution(code)
	}
}

func (s *Resolver) cacheResolution(ctx context.Context, key string, res domain.Resolution) {
	if err := s.cache.SetWithTTL(ctx, key, res, externalCacheTTL); err != nil {
		s.logger.DebugContext(ctx, "metadata cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func externalMetadataKey(code string) string {
	return "gtin:meta:" + code
}
