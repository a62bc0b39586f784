//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/db"
	redis_a "github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/redis_adapter"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/services"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers/middleware"
	"github.com/Gepetto-FIAP/tradebox-sub000/test/helpers"
)

// notFoundMetadata stands in for the external GTIN provider; every lookup
// misses so resolutions degrade to not_found instead of external_match.
type notFoundMetadata struct{}

func (notFoundMetadata) Lookup(ctx context.Context, code string) (*domain.ExternalProduct, error) {
	return nil, fmt.Errorf("lookup %s: %w", code, domain.ErrNotFound)
}

type POSWorkflowE2ESuite struct {
	suite.Suite
	server    *httptest.Server
	client    *http.Client
	baseURL   string
	ownerID   uuid.UUID
	testDB    *helpers.TestDB
	testRedis *helpers.TestRedis
}

func (s *POSWorkflowE2ESuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.testRedis = helpers.SetupTestRedis(s.T())
	s.ownerID = uuid.New()

	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + "/api/v1"
}

func (s *POSWorkflowE2ESuite) TearDownSuite() {
	s.server.Close()
}

func (s *POSWorkflowE2ESuite) TestCompleteSaleWorkflow() {
	// 1. Register a product at the counter
	registerReq := map[string]interface{}{
		"gtin":          "7894900011517",
		"name":          "E2E Cola 2L",
		"brand":         "Premium Cola",
		"category":      "beverages",
		"sale_price":    9.99,
		"cost_price":    6.50,
		"initial_stock": 10,
	}

	resp := s.makeRequest("POST", "/catalog/products", registerReq)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var product map[string]interface{}
	s.decodeResponse(resp, &product)
	productID := product["id"].(string)
	s.NotEmpty(productID)

	// 2. Scan the barcode
	resp = s.makeRequest("POST", "/catalog/scan", map[string]interface{}{"gtin": "7894900011517"})
	s.Equal(http.StatusOK, resp.StatusCode)

	var resolution map[string]interface{}
	s.decodeResponse(resp, &resolution)
	s.Equal("found", resolution["status"])

	// 3. A repeated scan inside the debounce window is rejected
	resp = s.makeRequest("POST", "/catalog/scan", map[string]interface{}{"gtin": "7894900011517"})
	s.Equal(http.StatusConflict, resp.StatusCode)

	var dupErr map[string]interface{}
	s.decodeResponse(resp, &dupErr)
	s.Equal("duplicate_scan", dupErr["kind"])

	// 4. Resolve stays idempotent
	resp = s.makeRequest("POST", "/catalog/resolve", map[string]interface{}{"gtin": "7894900011517"})
	s.Equal(http.StatusOK, resp.StatusCode)

	// 5. Add to cart and check the total
	resp = s.makeRequest("POST", "/cart/items", map[string]interface{}{
		"product_id": productID,
		"quantity":   2,
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	var cart map[string]interface{}
	s.decodeResponse(resp, &cart)
	s.EqualValues(19.98, cart["total"])

	// 6. Checkout turns the cart into a sale
	resp = s.makeRequest("POST", "/sales/checkout", map[string]interface{}{"notes": "e2e checkout"})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var sale map[string]interface{}
	s.decodeResponse(resp, &sale)
	saleID := sale["id"].(string)
	s.Equal("completed", sale["status"])
	s.EqualValues(19.98, sale["total_amount"])

	// 7. The cart is empty afterwards
	resp = s.makeRequest("GET", "/cart", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decodeResponse(resp, &cart)
	s.EqualValues(0, cart["line_count"])

	// 8. Stock was decremented atomically with the sale
	resp = s.makeRequest("GET", fmt.Sprintf("/catalog/products/%s", productID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decodeResponse(resp, &product)
	s.EqualValues(8, product["stock"])

	// 9. The sale shows up in the ledger
	resp = s.makeRequest("GET", fmt.Sprintf("/sales/%s", saleID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.makeRequest("GET", "/sales?status=completed", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var list map[string]interface{}
	s.decodeResponse(resp, &list)
	s.GreaterOrEqual(len(list["sales"].([]interface{})), 1)

	// 10. Excel export of the ledger
	resp = s.makeRequest("GET", "/export/sales.xlsx", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
}

func (s *POSWorkflowE2ESuite) TestBatchReconcileWorkflow() {
	registerReq := map[string]interface{}{
		"gtin":          "7891000100103",
		"name":          "E2E Condensed Milk",
		"sale_price":    7.49,
		"initial_stock": 5,
	}
	resp := s.makeRequest("POST", "/catalog/products", registerReq)
	s.Equal(http.StatusCreated, resp.StatusCode)

	batchReq := map[string]interface{}{
		"rows": []map[string]interface{}{
			{"line": 2, "gtin": "7891000100103", "quantity": 3},
			{"line": 3, "gtin": "7898357410015", "quantity": 1},
		},
	}

	// Dry-run reconciliation commits nothing
	resp = s.makeRequest("POST", "/batch/reconcile", batchReq)
	s.Equal(http.StatusOK, resp.StatusCode)

	var report map[string]interface{}
	s.decodeResponse(resp, &report)
	summary := report["summary"].(map[string]interface{})
	s.EqualValues(2, summary["total"])
	s.EqualValues(1, summary["valid"])
	s.EqualValues(1, summary["not_found"])

	// Commit turns the valid rows into a sale, skipping the rest
	resp = s.makeRequest("POST", "/batch/commit", batchReq)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var committed map[string]interface{}
	s.decodeResponse(resp, &committed)
	s.EqualValues(1, committed["skipped"])
	s.NotEmpty(committed["sale"].(map[string]interface{})["id"])
}

func (s *POSWorkflowE2ESuite) TestOwnerHeaderRequired() {
	req, err := http.NewRequest("GET", s.baseURL+"/cart", nil)
	s.NoError(err)

	resp, err := s.client.Do(req)
	s.NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *POSWorkflowE2ESuite) TestOwnersAreIsolated() {
	registerReq := map[string]interface{}{
		"gtin":          "7896102500127",
		"name":          "E2E Coffee 500g",
		"sale_price":    16.90,
		"initial_stock": 3,
	}
	resp := s.makeRequest("POST", "/catalog/products", registerReq)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var product map[string]interface{}
	s.decodeResponse(resp, &product)
	productID := product["id"].(string)

	// Another seller never sees this product
	req, err := http.NewRequest("GET", s.baseURL+"/catalog/products/"+productID, nil)
	s.NoError(err)
	req.Header.Set("X-Owner-ID", uuid.NewString())

	otherResp, err := s.client.Do(req)
	s.NoError(err)
	defer otherResp.Body.Close()
	s.Equal(http.StatusNotFound, otherResp.StatusCode)
}

func (s *POSWorkflowE2ESuite) TestHealthCheck() {
	resp, err := s.client.Get(s.server.URL + "/health")
	s.NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&health)
	s.NoError(err)
	s.Equal("healthy", health["status"])

	components := health["components"].(map[string]interface{})
	s.Contains(components, "database")
	s.Contains(components, "redis")
	s.True(components["database"].(map[string]interface{})["ok"].(bool))
}

// Helper methods

func (s *POSWorkflowE2ESuite) startTestServer() *httptest.Server {
	logger := helpers.TestLogger()
	cfg := helpers.LoadTestConfig()

	cache := redis_a.NewCache(s.testRedis.Client, time.Hour, logger)
	productRepo := db.NewProductRepository(s.testDB.Database, logger)
	saleRepo := db.NewSaleRepository(s.testDB.Database, logger)

	resolver := services.NewResolver(productRepo, notFoundMetadata{}, cache, logger)
	debouncer := services.NewScanDebouncer(time.Minute)
	quick := services.NewQuickRegister(productRepo, cache, logger)
	cartService := services.NewCartService(productRepo, cache, 24*time.Hour, logger)
	reconciler := services.NewReconciler(productRepo, logger)
	committer := services.NewCommitter(saleRepo, logger)
	ledger := services.NewLedger(saleRepo, logger)

	catalogHandler := handlers.NewCatalogHandler(resolver, debouncer, quick, productRepo, logger)
	cartHandler := handlers.NewCartHandler(cartService, logger)
	salesHandler := handlers.NewSalesHandler(committer, ledger, cartService, logger)
	batchHandler := handlers.NewBatchHandler(reconciler, committer, logger)
	exportHandler := handlers.NewExportHandler(saleRepo, cache, logger)
	healthHandler := handlers.NewHealthHandler(s.testDB.Database, s.testRedis.Client, nil, cfg, logger)

	const apiV1 = "/api/v1"

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Readiness)

	owned := http.NewServeMux()
	owned.HandleFunc("POST "+apiV1+"/catalog/scan", catalogHandler.Scan)
	owned.HandleFunc("DELETE "+apiV1+"/catalog/scan/{gtin}", catalogHandler.ClearScan)
	owned.HandleFunc("POST "+apiV1+"/catalog/resolve", catalogHandler.Resolve)
	owned.HandleFunc("POST "+apiV1+"/catalog/resolve/batch", catalogHandler.ResolveBatch)
	owned.HandleFunc("POST "+apiV1+"/catalog/products", catalogHandler.QuickRegister)
	owned.HandleFunc("GET "+apiV1+"/catalog/products", catalogHandler.ListProducts)
	owned.HandleFunc("GET "+apiV1+"/catalog/products/{id}", catalogHandler.GetProduct)
	owned.HandleFunc("PUT "+apiV1+"/catalog/products/{id}", catalogHandler.UpdateProduct)
	owned.HandleFunc("DELETE "+apiV1+"/catalog/products/{id}", catalogHandler.DeleteProduct)
	owned.HandleFunc("GET "+apiV1+"/cart", cartHandler.GetCart)
	owned.HandleFunc("DELETE "+apiV1+"/cart", cartHandler.ClearCart)
	owned.HandleFunc("POST "+apiV1+"/cart/items", cartHandler.AddItem)
	owned.HandleFunc("PUT "+apiV1+"/cart/items/{productId}", cartHandler.UpdateItem)
	owned.HandleFunc("DELETE "+apiV1+"/cart/items/{productId}", cartHandler.RemoveItem)
	owned.HandleFunc("POST "+apiV1+"/sales", salesHandler.CreateSale)
	owned.HandleFunc("POST "+apiV1+"/sales/checkout", salesHandler.Checkout)
	owned.HandleFunc("GET "+apiV1+"/sales", salesHandler.ListSales)
	owned.HandleFunc("GET "+apiV1+"/sales/{id}", salesHandler.GetSale)
	owned.HandleFunc("POST "+apiV1+"/sales/{id}/cancel", salesHandler.CancelSale)
	owned.HandleFunc("POST "+apiV1+"/batch/reconcile", batchHandler.Reconcile)
	owned.HandleFunc("POST "+apiV1+"/batch/commit", batchHandler.CommitBatch)
	owned.HandleFunc("GET "+apiV1+"/export/sales.xlsx", exportHandler.ExportExcel)
	owned.HandleFunc("GET "+apiV1+"/export/sales.json", exportHandler.ExportJSON)

	mux.Handle(apiV1+"/", middleware.OwnerID("X-Owner-ID")(owned))

	return httptest.NewServer(mux)
}

func (s *POSWorkflowE2ESuite) makeRequest(method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		s.NoError(err)
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	s.NoError(err)

	req.Header.Set("X-Owner-ID", s.ownerID.String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	s.NoError(err)

	return resp
}

func (s *POSWorkflowE2ESuite) decodeResponse(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	err := json.NewDecoder(resp.Body).Decode(v)
	s.NoError(err)
}

func TestPOSWorkflowE2ESuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(POSWorkflowE2ESuite))
}
