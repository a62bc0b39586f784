// internal/core/domain/product.go
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry owned by a single seller. The same GTIN may
// exist several times for one seller when sourced from different suppliers;
// (owner_id, gtin, supplier_id) is unique.
type Product struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	SupplierID *uuid.UUID `json:"supplier_id,omitempty"`
	GTIN       string     `json:"gtin"`
	Name       string     `json:"name"`
	Brand      string     `json:"brand,omitempty"`
	Category   string     `json:"category,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	SalePrice  Money      `json:"sale_price"`
	CostPrice  Money      `json:"cost_price"`
	Stock      int        `json:"stock"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// ExternalProduct carries the descriptive fields returned by the public GTIN
// metadata provider. Commercial fields (price, stock) never come from there.
type ExternalProduct struct {
	GTIN     string `json:"gtin"`
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ValidGTINLengths are the accepted GTIN families (GTIN-8/12/13/14).
var ValidGTINLengths = map[int]bool{8: true, 12: true, 13: true, 14: true}

// NormalizeGTIN trims surrounding whitespace from a scanned code.
func NormalizeGTIN(code string) string {
	return strings.TrimSpace(code)
}

// ValidateGTIN rejects codes that are not 8, 12, 13 or 14 numeric digits.
// Validation happens before any lookup so garbage reads from the scanner
// never reach the database or the external provider.
func ValidateGTIN(code string) error {
	if code == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidGTIN)
	}
	if !ValidGTINLengths[len(code)] {
		return fmt.Errorf("%w: length %d, want 8, 12, 13 or 14 digits", ErrInvalidGTIN, len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: non-numeric character", ErrInvalidGTIN)
		}
	}
	return nil
}

// Validate checks the invariants of a product before it is persisted.
func (p *Product) Validate() error {
	if err := ValidateGTIN(p.GTIN); err != nil {
		return err
	}
	if p.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: owner_id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.SalePrice <= 0 {
		return fmt.Errorf("%w: sale_price must be positive", ErrValidation)
	}
	if p.CostPrice < 0 {
		return fmt.Errorf("%w: cost_price cannot be negative", ErrValidation)
	}
	if p.CostPrice > 0 && p.CostPrice > p.SalePrice {
		return fmt.Errorf("%w: cost_price cannot exceed sale_price", ErrValidation)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	return nil
}

// PrepareForStorage assigns an id and timestamps ahead of the first insert.
func (p *Product) PrepareForStorage() {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Active = true
}

// SortCheapestFirst orders candidates by lowest sale price, ties broken by
// lowest id, so repeated scans of an ambiguous code always pick the same
// product.
func SortCheapestFirst(products []Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].SalePrice != products[j].SalePrice {
			return products[i].SalePrice < products[j].SalePrice
		}
		return products[i].ID.String() < products[j].ID.String()
	})
}

// SelectCheapest returns the deterministic winner among candidates for one
// code, or nil when the slice is empty.
func SelectCheapest(products []Product) *Product {
	if len(products) == 0 {
		return nil
	}
	best := &products[0]
	for i := 1; i < len(products); i++ {
		p := &products[i]
		if p.SalePrice < best.SalePrice ||
			(p.SalePrice == best.SalePrice && p.ID.String() < best.ID.String()) {
			best = p
		}
	}
	return best
}
