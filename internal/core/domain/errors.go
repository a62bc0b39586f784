// internal/core/domain/errors.go
package domain

import "errors"

// Sentinel errors for the catalog and sale flows. Callers classify with
// errors.Is; handlers translate kinds into HTTP status codes.
var (
	ErrInvalidGTIN        = errors.New("invalid gtin")
	ErrNotFound           = errors.New("not found")
	ErrOutOfStock         = errors.New("out of stock")
	ErrExternalLookup     = errors.New("external lookup failed")
	ErrDuplicateGTIN      = errors.New("gtin already registered for this supplier")
	ErrOwnershipViolation = errors.New("product does not belong to caller")
	ErrValidation         = errors.New("validation failed")
	ErrPersistence        = errors.New("persistence failure")
	ErrDuplicateScan      = errors.New("duplicate scan suppressed")
)

// ErrorKind returns the stable machine-readable kind for a domain error,
// or "internal" for anything outside the taxonomy.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidGTIN):
		return "invalid_gtin"
	case errors.Is(err, ErrDuplicateScan):
		return "duplicate_scan"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrDuplicateGTIN):
		return "duplicate_gtin"
	case errors.Is(err, ErrOwnershipViolation):
		return "ownership_violation"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrExternalLookup):
		return "external_lookup_failed"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	default:
		return "internal"
	}
}
