// internal/handlers/cart_test.go
package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	redis_a "github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/redis_adapter"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/services"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers"
	"github.com/Gepetto-FIAP/tradebox-sub000/test/helpers"
	"github.com/Gepetto-FIAP/tradebox-sub000/test/mocks"
)

type cartHandlerFixture struct {
	products *mocks.MockProductRepository
	handler  http.Handler
}

func newCartHandlerFixture(t *testing.T) *cartHandlerFixture {
	ctrl := gomock.NewController(t)
	logger := helpers.TestLogger()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := redis_a.NewCache(client, time.Hour, logger)

	f := &cartHandlerFixture{products: mocks.NewMockProductRepository(ctrl)}
	cartService := services.NewCartService(f.products, cache, time.Hour, logger)
	cart := handlers.NewCartHandler(cartService, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/cart", cart.GetCart)
	mux.HandleFunc("DELETE /api/v1/cart", cart.ClearCart)
	mux.HandleFunc("POST /api/v1/cart/items", cart.AddItem)
	mux.HandleFunc("PUT /api/v1/cart/items/{productId}", cart.UpdateItem)
	mux.HandleFunc("DELETE /api/v1/cart/items/{productId}", cart.RemoveItem)
	f.handler = owned(mux)

	return f
}

func (f *cartHandlerFixture) stubProduct(ownerID uuid.UUID, stock int) *domain.Product {
	p := &domain.Product{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		GTIN:      "7894900011517",
		Name:      "Cola 2L",
		SalePrice: 999,
		Stock:     stock,
		Active:    true,
	}
	f.products.EXPECT().
		FindByID(gomock.Any(), ownerID, p.ID).
		Return(p, nil).
		AnyTimes()
	return p
}

func TestCartHandler_GetCart_Empty(t *testing.T) {
	f := newCartHandlerFixture(t)
	ownerID := uuid.New()

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/cart", ownerID, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 0, body["line_count"])
	assert.EqualValues(t, 0, body["total"])
}

func TestCartHandler_AddItem(t *testing.T) {
	f := newCartHandlerFixture(t)
	ownerID := uuid.New()
	p := f.stubProduct(ownerID, 10)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/cart/items", ownerID,
		map[string]any{"product_id": p.ID, "quantity": 2})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["line_count"])
	assert.EqualValues(t, 19.98, body["total"], "response carries the derived total")
}

func TestCartHandler_AddItem_NegotiatedPrice(t *testing.T) {
	f := newCartHandlerFixture(t)
	ownerID := uuid.New()
	p := f.stubProduct(ownerID, 10)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/cart/items", ownerID,
		map[string]any{"product_id": p.ID, "quantity": 2, "unit_price": 8.50})

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 17.00, decodeBody(t, w)["total"])
}

func TestCartHandler_AddItem_Rejections(t *testing.T) {
	f := newCartHandlerFixture(t)
	ownerID := uuid.New()

	t.Run("missing_product_id", func(t *testing.T) {
		w := doJSON(t, f.handler, http.MethodPost, "/api/v1/cart/items", ownerID,
			map[string]any{"quantity": 2})

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_failed", decodeBody(t, w)["kind"])
	})

	t.Run("exceeds_stock", func(t *testing.T) {
		p := f.stubProduct(ownerID, 1)

		w := doJSON(t, f.handler, http.MethodPost, "/api/v1/cart/items", ownerID,
			map[string]any{"product_id": p.ID, "quantity": 5})

		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "out_of_stock", decodeBody(t, w)["kind"])
	})

	t.Run("unknown_product", func(t *testing.T) {
		productID := uuid.New()
		f.products.EXPECT().
			FindByID(gomock.Any(), ownerID, productID).
			Return(nil, domain.ErrNotFound)

		w := doJSON(t, f.handler, http.MethodPost, "/api/v1/cart/items", ownerID,
			map[string]any{"product_id": productID, "quantity": 1})

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCartHandler_UpdateItem(t *testing.T) {
	f := newCartHandlerFixture(t)
	ownerID := uuid.New()
	p := f.stubProduct(ownerID, 10)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/cart/items", ownerID,
		map[string]any{"product_id": p.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, f.handler, http.MethodPut, "/api/v1/cart/items/"+p.ID.String(), ownerID,
		map[string]any{"quantity": 5})

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 49.95, decodeBody(t, w)["total"])
}

func TestCartHandler_UpdateItem_ZeroRemovesLine(t *testing.T) {
	f := newCartHandlerFixture(t)
	ownerID := uuid.New()
	p := f.stubProduct(ownerID, 10)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/cart/items", ownerID,
		map[string]any{"product_id": p.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, f.handler, http.MethodPut, "/api/v1/cart/items/"+p.ID.String(), ownerID,
		map[string]any{"quantity": 0})

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decodeBody(t, w)["line_count"])
}

func TestCartHandler_UpdateItem_MalformedID(t *testing.T) {
	f := newCartHandlerFixture(t)

	w := doJSON(t, f.handler, http.MethodPut, "/api/v1/cart/items/nope", uuid.New(),
		map[string]any{"quantity": 1})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartHandler_RemoveItem(t *testing.T) {
	f := newCartHandlerFixture(t)
	ownerID := uuid.New()
	p := f.stubProduct(ownerID, 10)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/cart/items", ownerID,
		map[string]any{"product_id": p.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, f.handler, http.MethodDelete, "/api/v1/cart/items/"+p.ID.String(), ownerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decodeBody(t, w)["line_count"])

	w = doJSON(t, f.handler, http.MethodDelete, "/api/v1/cart/items/"+p.ID.String(), ownerID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartHandler_ClearCart(t *testing.T) {
	f := newCartHandlerFixture(t)
	ownerID := uuid.New()
	p := f.stubProduct(ownerID, 10)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/cart/items", ownerID,
		map[string]any{"product_id": p.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, f.handler, http.MethodDelete, "/api/v1/cart", ownerID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, f.handler, http.MethodGet, "/api/v1/cart", ownerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decodeBody(t, w)["line_count"])
}
