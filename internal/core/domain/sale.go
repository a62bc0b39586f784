// internal/core/domain/sale.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaleStatus is the lifecycle state of a committed sale.
type SaleStatus string

const (
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
	SalePending   SaleStatus = "pending"
)

// SaleLineInput is one requested line of a sale commit. The caller supplies
// quantity and the price charged at the counter; totals are always
// recomputed server-side.
type SaleLineInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice Money     `json:"unit_price"`
}

// Validate checks a single commit line.
func (l SaleLineInput) Validate() error {
	if l.ProductID == uuid.Nil {
		return fmt.Errorf("%w: product_id is required", ErrValidation)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if l.UnitPrice < 0 {
		return fmt.Errorf("%w: unit_price cannot be negative", ErrValidation)
	}
	return nil
}

// SaleLineItem is a persisted line of the immutable sale ledger.
type SaleLineItem struct {
	ID        uuid.UUID `json:"id"`
	SaleID    uuid.UUID `json:"sale_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice Money     `json:"unit_price"`
	Subtotal  Money     `json:"subtotal"`
}

// SaleRecord is the sale header plus its lines.
type SaleRecord struct {
	ID          uuid.UUID      `json:"id"`
	OwnerID     uuid.UUID      `json:"owner_id"`
	Status      SaleStatus     `json:"status"`
	TotalAmount Money          `json:"total_amount"`
	LineCount   int            `json:"line_count"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Lines       []SaleLineItem `json:"lines,omitempty"`
}

// NewSaleRecord builds a completed sale from validated lines, deriving
// total_amount and line_count from the lines themselves. Client-supplied
// totals are never trusted. line_count is the number of units sold, the
// sum of the line quantities, not the number of distinct lines.
func NewSaleRecord(ownerID uuid.UUID, lines []SaleLineInput, notes string) *SaleRecord {
	sale := &SaleRecord{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Status:    SaleCompleted,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}
	for _, in := range lines {
		subtotal := in.UnitPrice.MulInt(in.Quantity)
		sale.Lines = append(sale.Lines, SaleLineItem{
			ID:        uuid.New(),
			SaleID:    sale.ID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Subtotal:  subtotal,
		})
		sale.LineCount += in.Quantity
		sale.TotalAmount += subtotal
	}
	return sale
}
