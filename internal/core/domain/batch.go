// internal/core/domain/batch.go
package domain

// MaxBatchRows caps a reconciliation batch so the bulk catalog lookup stays
// a single cheap round trip.
const MaxBatchRows = 100

// RawRow is one unvalidated row of a bulk sale batch, as parsed from CSV or
// received as JSON. Line is 1-based and refers to the source file (the
// header is line 1).
type RawRow struct {
	Line     int    `json:"line"`
	Code     string `json:"gtin"`
	Quantity int    `json:"quantity"`
	Price    *Money `json:"unit_price,omitempty"`
}

// RowStatus classifies a reconciled batch row.
type RowStatus string

const (
	RowValid    RowStatus = "valid"
	RowNoStock  RowStatus = "no_stock"
	RowNotFound RowStatus = "not_found"
)

// ReconciledRow is a batch row after catalog reconciliation. Product is set
// only for valid rows; Reason explains no_stock and not_found rows.
type ReconciledRow struct {
	RawRow
	Status    RowStatus `json:"status"`
	Product   *Product  `json:"product,omitempty"`
	UnitPrice Money     `json:"unit_price_resolved"`
	Reason    string    `json:"reason,omitempty"`
}

// Subtotal of a valid row; zero otherwise.
func (r ReconciledRow) Subtotal() Money {
	if r.Status != RowValid {
		return 0
	}
	return r.UnitPrice.MulInt(r.Quantity)
}
