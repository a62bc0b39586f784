// internal/core/ports/metadata.go
package ports

import (
	"context"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
)

// MetadataClient is the port for the public GTIN metadata provider.
//
// Lookup returns domain.ErrNotFound when the provider has no record for the
// code, and wraps domain.ErrExternalLookup for transport failures, timeouts
// and unexpected statuses. Only descriptive fields flow back; callers decide
// how to degrade on failure.
type MetadataClient interface {
	Lookup(ctx context.Context, code string) (*domain.ExternalProduct, error)
}
