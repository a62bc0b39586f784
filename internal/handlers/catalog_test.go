// internal/handlers/catalog_test.go
package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/services"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers"
	"github.com/Gepetto-FIAP/tradebox-sub000/test/helpers"
	"github.com/Gepetto-FIAP/tradebox-sub000/test/mocks"
)

type catalogFixture struct {
	products *mocks.MockProductRepository
	metadata *mocks.MockMetadataClient
	cache    *mocks.MockCacheRepository
	handler  http.Handler
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	ctrl := gomock.NewController(t)
	logger := helpers.TestLogger()

	f := &catalogFixture{
		products: mocks.NewMockProductRepository(ctrl),
		metadata: mocks.NewMockMetadataClient(ctrl),
		cache:    mocks.NewMockCacheRepository(ctrl),
	}

	resolver := services.NewResolver(f.products, f.metadata, f.cache, logger)
	debouncer := services.NewScanDebouncer(time.Minute)
	quick := services.NewQuickRegister(f.products, f.cache, logger)
	catalog := handlers.NewCatalogHandler(resolver, debouncer, quick, f.products, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/catalog/scan", catalog.Scan)
	mux.HandleFunc("DELETE /api/v1/catalog/scan/{gtin}", catalog.ClearScan)
	mux.HandleFunc("POST /api/v1/catalog/resolve", catalog.Resolve)
	mux.HandleFunc("POST /api/v1/catalog/resolve/batch", catalog.ResolveBatch)
	mux.HandleFunc("POST /api/v1/catalog/products", catalog.QuickRegister)
	mux.HandleFunc("GET /api/v1/catalog/products", catalog.ListProducts)
	mux.HandleFunc("GET /api/v1/catalog/products/{id}", catalog.GetProduct)
	mux.HandleFunc("PUT /api/v1/catalog/products/{id}", catalog.UpdateProduct)
	mux.HandleFunc("DELETE /api/v1/catalog/products/{id}", catalog.DeleteProduct)
	f.handler = owned(mux)

	return f
}

func TestCatalogHandler_Scan(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()
	code := "7894900011517"

	product := domain.Product{ID: uuid.New(), OwnerID: ownerID, GTIN: code, Name: "Cola 2L", SalePrice: 999, Stock: 10, Active: true}
	f.products.EXPECT().
		FindActiveByGTIN(gomock.Any(), ownerID, code).
		Return([]domain.Product{product}, nil)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/scan", ownerID,
		map[string]string{"gtin": code})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "found", body["status"])
	assert.Equal(t, code, body["code"])
}

func TestCatalogHandler_Scan_RepeatIsDebounced(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()
	code := "7894900011517"

	product := domain.Product{ID: uuid.New(), OwnerID: ownerID, GTIN: code, Name: "Cola 2L", SalePrice: 999, Stock: 10, Active: true}
	// Resolution happens exactly once; the repeat never reaches the resolver.
	f.products.EXPECT().
		FindActiveByGTIN(gomock.Any(), ownerID, code).
		Return([]domain.Product{product}, nil).
		Times(1)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/scan", ownerID,
		map[string]string{"gtin": code})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/scan", ownerID,
		map[string]string{"gtin": code})

	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "duplicate_scan", body["kind"])
}

func TestCatalogHandler_ClearScanLiftsDebounce(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()
	code := "7894900011517"

	product := domain.Product{ID: uuid.New(), OwnerID: ownerID, GTIN: code, Name: "Cola 2L", SalePrice: 999, Stock: 10, Active: true}
	f.products.EXPECT().
		FindActiveByGTIN(gomock.Any(), ownerID, code).
		Return([]domain.Product{product}, nil).
		Times(2)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/scan", ownerID,
		map[string]string{"gtin": code})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, f.handler, http.MethodDelete, "/api/v1/catalog/scan/"+code, ownerID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/scan", ownerID,
		map[string]string{"gtin": code})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogHandler_Scan_MalformedCode(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()

	// A garbage read resolves to status invalid; it is not an HTTP error.
	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/scan", ownerID,
		map[string]string{"gtin": "###"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "invalid", body["status"])
	assert.NotEmpty(t, body["reason"])
}

func TestCatalogHandler_Scan_InvalidBody(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/scan", ownerID, "not an object")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", decodeBody(t, w)["kind"])
}

func TestCatalogHandler_Resolve_IsIdempotent(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()
	code := "7894900011517"

	product := domain.Product{ID: uuid.New(), OwnerID: ownerID, GTIN: code, Name: "Cola 2L", SalePrice: 999, Stock: 10, Active: true}
	f.products.EXPECT().
		FindActiveByGTIN(gomock.Any(), ownerID, code).
		Return([]domain.Product{product}, nil).
		Times(3)

	// Unlike scan, resolve never debounces.
	for i := 0; i < 3; i++ {
		w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/resolve", ownerID,
			map[string]string{"gtin": code})
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestCatalogHandler_ResolveBatch(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()

	cheap := domain.Product{ID: uuid.New(), OwnerID: ownerID, GTIN: "7894900011517", Name: "Cola 2L", SalePrice: 899, Stock: 10, Active: true}
	dear := domain.Product{ID: uuid.New(), OwnerID: ownerID, GTIN: "7894900011517", Name: "Cola 2L", SalePrice: 999, Stock: 3, Active: true}

	// The whole batch is one catalog round trip; duplicates collapse, the
	// invalid code never reaches the repository, and the external provider
	// is not consulted (no metadata or cache expectations).
	f.products.EXPECT().
		FindActiveByGTINs(gomock.Any(), ownerID, []string{"7894900011517", "7891000100103"}).
		Return(map[string][]domain.Product{"7894900011517": {cheap, dear}}, nil).
		Times(1)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/resolve/batch", ownerID,
		map[string]any{"gtins": []string{"7894900011517", "7894900011517", "7891000100103", "###"}})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 3, body["total"], "distinct codes after dedup")

	results := body["results"].(map[string]any)
	require.Len(t, results, 1)
	candidates := results["7894900011517"].([]any)
	require.Len(t, candidates, 2, "ambiguous codes return every candidate")

	notFound := body["not_found"].([]any)
	assert.ElementsMatch(t, []any{"7891000100103", "###"}, notFound)
}

func TestCatalogHandler_ResolveBatch_Rejections(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()

	codes := make([]string, domain.MaxBatchRows+1)
	for i := range codes {
		codes[i] = "7894900011517"
	}

	tests := []struct {
		name string
		body any
	}{
		{name: "empty_list", body: map[string]any{"gtins": []string{}}},
		{name: "missing_field", body: map[string]any{}},
		{name: "over_limit", body: map[string]any{"gtins": codes}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/resolve/batch", ownerID, tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation_failed", decodeBody(t, w)["kind"])
		})
	}
}

func TestCatalogHandler_QuickRegister(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()

	f.products.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		Return(nil)
	f.cache.EXPECT().
		Delete(gomock.Any(), gomock.Any()).
		Return(nil)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/products", ownerID,
		map[string]any{
			"gtin":          "7891000100103",
			"name":          "Leite Condensado 395g",
			"brand":         "Moça",
			"sale_price":    7.90,
			"cost_price":    5.20,
			"initial_stock": 24,
		})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "7891000100103", body["gtin"])
	assert.EqualValues(t, 7.90, body["sale_price"])
	assert.EqualValues(t, 24, body["stock"])
	assert.Equal(t, true, body["active"])
}

func TestCatalogHandler_QuickRegister_DuplicateGTIN(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()

	f.products.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		Return(domain.ErrDuplicateGTIN)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/products", ownerID,
		map[string]any{"gtin": "7891000100103", "name": "Leite", "sale_price": 7.90})

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_gtin", decodeBody(t, w)["kind"])
}

func TestCatalogHandler_GetProduct(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()
	product := &domain.Product{ID: uuid.New(), OwnerID: ownerID, GTIN: "7894900011517", Name: "Cola 2L", SalePrice: 999, Stock: 10, Active: true}

	f.products.EXPECT().
		FindByID(gomock.Any(), ownerID, product.ID).
		Return(product, nil)

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/catalog/products/"+product.ID.String(), ownerID, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, product.ID.String(), decodeBody(t, w)["id"])
}

func TestCatalogHandler_GetProduct_Errors(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()

	t.Run("malformed_id", func(t *testing.T) {
		w := doJSON(t, f.handler, http.MethodGet, "/api/v1/catalog/products/not-a-uuid", ownerID, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other_owners_product_is_not_found", func(t *testing.T) {
		productID := uuid.New()
		f.products.EXPECT().
			FindByID(gomock.Any(), ownerID, productID).
			Return(nil, domain.ErrNotFound)

		w := doJSON(t, f.handler, http.MethodGet, "/api/v1/catalog/products/"+productID.String(), ownerID, nil)

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeBody(t, w)["kind"])
	})
}

func TestCatalogHandler_ListProducts(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()

	f.products.EXPECT().
		List(gomock.Any(), ownerID, ports.ProductListParams{
			Search:     "cola",
			Category:   "beverages",
			ActiveOnly: true,
			Page:       2,
			PageSize:   10,
		}).
		Return([]domain.Product{}, int64(35), nil)

	w := doJSON(t, f.handler, http.MethodGet,
		"/api/v1/catalog/products?search=cola&category=beverages&page=2&limit=10", ownerID, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 35, body["total"])
	assert.EqualValues(t, 2, body["page"])
	assert.EqualValues(t, 10, body["page_size"])
}

func TestCatalogHandler_UpdateProduct(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()
	product := &domain.Product{ID: uuid.New(), OwnerID: ownerID, GTIN: "7894900011517", Name: "Cola 2L", SalePrice: 999, CostPrice: 650, Stock: 10, Active: true}

	f.products.EXPECT().
		FindByID(gomock.Any(), ownerID, product.ID).
		Return(product, nil)
	f.products.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		Return(nil)

	w := doJSON(t, f.handler, http.MethodPut, "/api/v1/catalog/products/"+product.ID.String(), ownerID,
		map[string]any{"sale_price": 10.49, "stock": 36})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 10.49, body["sale_price"])
	assert.EqualValues(t, 36, body["stock"])
	assert.Equal(t, "Cola 2L", body["name"], "fields absent from the request stay untouched")
}

func TestCatalogHandler_UpdateProduct_RejectsInvalidResult(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()
	product := &domain.Product{ID: uuid.New(), OwnerID: ownerID, GTIN: "7894900011517", Name: "Cola 2L", SalePrice: 999, Stock: 10, Active: true}

	f.products.EXPECT().
		FindByID(gomock.Any(), ownerID, product.ID).
		Return(product, nil)
	// No Update expectation: the invalid patch never persists.

	w := doJSON(t, f.handler, http.MethodPut, "/api/v1/catalog/products/"+product.ID.String(), ownerID,
		map[string]any{"stock": -5})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", decodeBody(t, w)["kind"])
}

func TestCatalogHandler_DeleteProduct(t *testing.T) {
	f := newCatalogFixture(t)
	ownerID := uuid.New()

	t.Run("soft_deletes_with_sale_history", func(t *testing.T) {
		productID := uuid.New()
		f.products.EXPECT().HasSaleHistory(gomock.Any(), productID).Return(true, nil)
		f.products.EXPECT().SoftDelete(gomock.Any(), ownerID, productID).Return(nil)

		w := doJSON(t, f.handler, http.MethodDelete, "/api/v1/catalog/products/"+productID.String(), ownerID, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["soft"])
	})

	t.Run("hard_deletes_without_history", func(t *testing.T) {
		productID := uuid.New()
		f.products.EXPECT().HasSaleHistory(gomock.Any(), productID).Return(false, nil)
		f.products.EXPECT().Delete(gomock.Any(), ownerID, productID).Return(nil)

		w := doJSON(t, f.handler, http.MethodDelete, "/api/v1/catalog/products/"+productID.String(), ownerID, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["soft"])
	})
}

func TestCatalogHandler_RequiresOwnerHeader(t *testing.T) {
	f := newCatalogFixture(t)

	w := doJSON(t, f.handler, http.MethodPost, "/api/v1/catalog/scan", uuid.Nil,
		map[string]string{"gtin": "7894900011517"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeBody(t, w)["kind"])
}
