// internal/core/domain/cart_test.go
package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartProduct(stock int) *Product {
	return &Product{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		GTIN:      "7894900011517",
		Name:      "Cola 2L",
		SalePrice: 999,
		Stock:     stock,
		Active:    true,
	}
}

func TestCart_Add(t *testing.T) {
	t.Run("appends_new_line_at_catalog_price", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(10)

		require.NoError(t, cart.Add(p, 2, nil))

		require.Len(t, cart.Lines, 1)
		assert.Equal(t, p.ID, cart.Lines[0].ProductID)
		assert.Equal(t, 2, cart.Lines[0].Quantity)
		assert.Equal(t, Money(999), cart.Lines[0].UnitPrice)
	})

	t.Run("merges_into_existing_line", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(10)

		require.NoError(t, cart.Add(p, 2, nil))
		require.NoError(t, cart.Add(p, 3, nil))

		require.Len(t, cart.Lines, 1)
		assert.Equal(t, 5, cart.Lines[0].Quantity)
	})

	t.Run("negotiated_price_overrides_catalog", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(10)
		negotiated := Money(850)

		require.NoError(t, cart.Add(p, 1, &negotiated))

		assert.Equal(t, Money(850), cart.Lines[0].UnitPrice)
	})

	t.Run("rejects_quantity_above_stock", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(3)

		err := cart.Add(p, 4, nil)

		assert.ErrorIs(t, err, ErrOutOfStock)
		assert.Empty(t, cart.Lines)
	})

	t.Run("merge_exceeding_stock_rejects_never_clamps", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(5)

		require.NoError(t, cart.Add(p, 3, nil))
		err := cart.Add(p, 3, nil)

		assert.ErrorIs(t, err, ErrOutOfStock)
		assert.Equal(t, 3, cart.Lines[0].Quantity)
	})

	t.Run("rejects_non_positive_quantity", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(10)

		assert.ErrorIs(t, cart.Add(p, 0, nil), ErrValidation)
		assert.ErrorIs(t, cart.Add(p, -1, nil), ErrValidation)
	})

	t.Run("rejects_negative_unit_price", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(10)
		bad := Money(-1)

		assert.ErrorIs(t, cart.Add(p, 1, &bad), ErrValidation)
	})
}

func TestCart_SetQuantity(t *testing.T) {
	t.Run("replaces_quantity", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(10)
		require.NoError(t, cart.Add(p, 2, nil))

		require.NoError(t, cart.SetQuantity(p, 7))

		assert.Equal(t, 7, cart.Lines[0].Quantity)
	})

	t.Run("zero_removes_line", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(10)
		require.NoError(t, cart.Add(p, 2, nil))

		require.NoError(t, cart.SetQuantity(p, 0))

		assert.True(t, cart.IsEmpty())
	})

	t.Run("rejects_quantity_above_stock", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(5)
		require.NoError(t, cart.Add(p, 2, nil))

		err := cart.SetQuantity(p, 6)

		assert.ErrorIs(t, err, ErrOutOfStock)
		assert.Equal(t, 2, cart.Lines[0].Quantity)
	})

	t.Run("missing_line_is_not_found", func(t *testing.T) {
		cart := NewCart(uuid.New())

		err := cart.SetQuantity(cartProduct(10), 1)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects_negative_quantity", func(t *testing.T) {
		cart := NewCart(uuid.New())
		p := cartProduct(10)
		require.NoError(t, cart.Add(p, 2, nil))

		assert.ErrorIs(t, cart.SetQuantity(p, -1), ErrValidation)
	})
}

func TestCart_Remove(t *testing.T) {
	cart := NewCart(uuid.New())
	first := cartProduct(10)
	second := cartProduct(10)
	second.GTIN = "7891000100103"

	require.NoError(t, cart.Add(first, 1, nil))
	require.NoError(t, cart.Add(second, 2, nil))

	require.NoError(t, cart.Remove(first.ID))

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, second.ID, cart.Lines[0].ProductID)

	assert.ErrorIs(t, cart.Remove(first.ID), ErrNotFound)
}

func TestCart_Total(t *testing.T) {
	cart := NewCart(uuid.New())
	assert.Equal(t, Money(0), cart.Total())

	cola := cartProduct(10)
	chips := cartProduct(10)
	chips.GTIN = "7891000100103"
	chips.SalePrice = 450

	require.NoError(t, cart.Add(cola, 2, nil))  // 2 x 9.99
	require.NoError(t, cart.Add(chips, 3, nil)) // 3 x 4.50

	assert.Equal(t, Money(3348), cart.Total())
	assert.Equal(t, "33.48", cart.Total().String())
}
