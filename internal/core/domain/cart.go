// internal/core/domain/cart.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CartLine is one product inside a seller's working cart.
type CartLine struct {
	ProductID uuid.UUID `json:"product_id"`
	GTIN      string    `json:"gtin"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice Money     `json:"unit_price"`
}

// Subtotal is quantity times unit price.
func (l CartLine) Subtotal() Money {
	return l.UnitPrice.MulInt(l.Quantity)
}

// Cart is the ephemeral pre-sale aggregate for one seller. It is never
// persisted to the ledger; committing a sale consumes it.
//
// Every mutation takes the freshly loaded catalog product so the stock
// ceiling reflects the catalog at mutation time, not at scan time. Exceeding
// the ceiling rejects the mutation; quantities are never silently clamped.
type Cart struct {
	OwnerID   uuid.UUID  `json:"owner_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCart returns an empty cart for a seller.
func NewCart(ownerID uuid.UUID) *Cart {
	return &Cart{OwnerID: ownerID, UpdatedAt: time.Now().UTC()}
}

// Add appends quantity of product to the cart, merging into an existing line
// for the same product. unitPrice overrides the catalog sale price when the
// seller negotiated a different value at the counter.
func (c *Cart) Add(product *Product, quantity int, unitPrice *Money) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	price := product.SalePrice
	if unitPrice != nil {
		if *unitPrice < 0 {
			return fmt.Errorf("%w: unit_price cannot be negative", ErrValidation)
		}
		price = *unitPrice
	}

	for i := range c.Lines {
		if c.Lines[i].ProductID == product.ID {
			next := c.Lines[i].Quantity + quantity
			if next > product.Stock {
				return fmt.Errorf("%w: %d requested, %d available for %s",
					ErrOutOfStock, next, product.Stock, product.Name)
			}
			c.Lines[i].Quantity = next
			c.Lines[i].UnitPrice = price
			c.touch()
			return nil
		}
	}

	if quantity > product.Stock {
		return fmt.Errorf("%w: %d requested, %d available for %s",
			ErrOutOfStock, quantity, product.Stock, product.Name)
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID: product.ID,
		GTIN:      product.GTIN,
		Name:      product.Name,
		Quantity:  quantity,
		UnitPrice: price,
	})
	c.touch()
	return nil
}

// SetQuantity replaces the quantity of the line holding product. Zero
// removes the line.
func (c *Cart) SetQuantity(product *Product, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
	}
	idx := c.lineIndex(product.ID)
	if idx < 0 {
		return fmt.Errorf("%w: product %s not in cart", ErrNotFound, product.ID)
	}
	if quantity == 0 {
		c.removeAt(idx)
		return nil
	}
	if quantity > product.Stock {
		return fmt.Errorf("%w: %d requested, %d available for %s",
			ErrOutOfStock, quantity, product.Stock, product.Name)
	}
	c.Lines[idx].Quantity = quantity
	c.touch()
	return nil
}

// Remove drops the line holding productID, if present.
func (c *Cart) Remove(productID uuid.UUID) error {
	idx := c.lineIndex(productID)
	if idx < 0 {
		return fmt.Errorf("%w: product %s not in cart", ErrNotFound, productID)
	}
	c.removeAt(idx)
	return nil
}

// Total sums subtotals in cents; exact by construction.
func (c *Cart) Total() Money {
	var total Money
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) lineIndex(productID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	c.touch()
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
