// internal/core/domain/resolution.go
package domain

// ResolutionStatus tags the outcome of a barcode resolution.
type ResolutionStatus string

const (
	ResolutionFound         ResolutionStatus = "found"
	ResolutionOutOfStock    ResolutionStatus = "out_of_stock"
	ResolutionExternalMatch ResolutionStatus = "external_match"
	ResolutionNotFound      ResolutionStatus = "not_found"
	ResolutionInvalid       ResolutionStatus = "invalid"
)

// Resolution is the tagged result of resolving a scanned code. Exactly one
// of Product and External is set, depending on Status:
//
//	found          → Product (sellable local hit)
//	out_of_stock   → Name carries the known product's name
//	external_match → External (descriptive data only, nothing sellable)
//	not_found      → neither
//	invalid        → Reason explains the format rejection
type Resolution struct {
	Status   ResolutionStatus `json:"status"`
	Code     string           `json:"code"`
	Product  *Product         `json:"product,omitempty"`
	External *ExternalProduct `json:"external,omitempty"`
	Name     string           `json:"name,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

// Sellable reports whether the resolution can flow into a cart line.
func (r Resolution) Sellable() bool {
	return r.Status == ResolutionFound && r.Product != nil
}

func FoundResolution(code string, p *Product) Resolution {
	return Resolution{Status: ResolutionFound, Code: code, Product: p}
}

func OutOfStockResolution(code, name string) Resolution {
	return Resolution{Status: ResolutionOutOfStock, Code: code, Name: name}
}

func ExternalMatchResolution(code string, ext *ExternalProduct) Resolution {
	return Resolution{Status: ResolutionExternalMatch, Code: code, External: ext}
}

func NotFoundResolution(code string) Resolution {
	return Resolution{Status: ResolutionNotFound, Code: code}
}

func InvalidResolution(code, reason string) Resolution {
	return Resolution{Status: ResolutionInvalid, Code: code, Reason: reason}
}
