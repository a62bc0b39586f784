// internal/handlers/catalog.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/services"
)

// CatalogHandler serves the scan/resolve flow and catalog CRUD.
type CatalogHandler struct {
	resolver  *services.Resolver
	debouncer *services.ScanDebouncer
	quick     *services.QuickRegister
	products  ports.ProductRepository
	logger    *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(
	resolver *services.Resolver,
	debouncer *services.ScanDebouncer,
	quick *services.QuickRegister,
	products ports.ProductRepository,
	logger *slog.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		resolver:  resolver,
		debouncer: debouncer,
		quick:     quick,
		products:  products,
		logger:    logger.With(slog.String("handler", "catalog")),
	}
}

// ScanRequest carries a single scanned code.
type ScanRequest struct {
	GTIN string `json:"gtin"`
}

// Scan handles POST /api/v1/catalog/scan
//
// This is the barcode-reader entrypoint: repeats of the same code from the
// same seller inside the debounce window are rejected as duplicate_scan so
// a trigger-happy scanner cannot double-add items. Use Resolve for
// idempotent lookups.
func (h *CatalogHandler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
		return
	}

	code := domain.NormalizeGTIN(req.GTIN)
	if !h.debouncer.Observe(ownerID, code) {
		respondDomainError(w, h.logger,
			fmt.Errorf("%w: code %s repeated inside debounce window", domain.ErrDuplicateScan, code))
		return
	}

	resolution, err := h.resolver.Resolve(ctx, ownerID, req.GTIN)
	if err != nil {
		h.logger.ErrorContext(ctx, "scan resolution failed",
			slog.String("code", code),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, resolution)
}

// ClearScan handles DELETE /api/v1/catalog/scan/{gtin}
//
// Lifts the debounce suppression for a code, for when the operator really
// does want to scan the same item twice in quick succession.
func (h *CatalogHandler) ClearScan(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	h.debouncer.Clear(ownerID, domain.NormalizeGTIN(r.PathValue("gtin")))
	w.WriteHeader(http.StatusNoContent)
}

// Resolve handles POST /api/v1/catalog/resolve
func (h *CatalogHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
		return
	}

	resolution, err := h.resolver.Resolve(ctx, ownerID, req.GTIN)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, resolution)
}

// ResolveBatchRequest carries up to domain.MaxBatchRows codes.
type ResolveBatchRequest struct {
	GTINs []string `json:"gtins"`
}

// ResolveBatch handles POST /api/v1/catalog/resolve/batch
//
// Bulk lookups hit the catalog in a single round trip and never consult
// the external provider: invalid and unknown codes land in not_found for
// the operator to resolve one by one.
func (h *CatalogHandler) ResolveBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req ResolveBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
		return
	}

	if len(req.GTINs) == 0 {
		respondError(w, h.logger, http.StatusBadRequest, "gtins is required", "validation_failed")
		return
	}
	if len(req.GTINs) > domain.MaxBatchRows {
		respondError(w, h.logger, http.StatusBadRequest,
			fmt.Sprintf("at most %d codes per request", domain.MaxBatchRows), "validation_failed")
		return
	}

	seen := make(map[string]struct{}, len(req.GTINs))
	codes := make([]string, 0, len(req.GTINs))
	notFound := make([]string, 0)
	for _, raw := range req.GTINs {
		code := domain.NormalizeGTIN(raw)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if err := domain.ValidateGTIN(code); err != nil {
			notFound = append(notFound, code)
			continue
		}
		codes = append(codes, code)
	}

	results := make(map[string][]domain.Product, len(codes))
	if len(codes) > 0 {
		grouped, err := h.products.FindActiveByGTINs(ctx, ownerID, codes)
		if err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
		for _, code := range codes {
			if candidates := grouped[code]; len(candidates) > 0 {
				results[code] = candidates
			} else {
				notFound = append(notFound, code)
			}
		}
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"results":   results,
		"not_found": notFound,
		"total":     len(seen),
	})
}

// QuickRegisterRequest is the request body for inline product registration.
type QuickRegisterRequest struct {
	GTIN         string       `json:"gtin"`
	Name         string       `json:"name"`
	Brand        string       `json:"brand,omitempty"`
	Category     string       `json:"category,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	SalePrice    domain.Money `json:"sale_price"`
	CostPrice    domain.Money `json:"cost_price,omitempty"`
	InitialStock int          `json:"initial_stock"`
	SupplierID   *uuid.UUID   `json:"supplier_id,omitempty"`
}

// QuickRegister handles POST /api/v1/catalog/products
func (h *CatalogHandler) QuickRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req QuickRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
		return
	}

	product, err := h.quick.Register(ctx, ownerID, services.QuickRegisterInput{
		GTIN:         req.GTIN,
		Name:         req.Name,
		Brand:        req.Brand,
		Category:     req.Category,
		ImageURL:     req.ImageURL,
		SalePrice:    req.SalePrice,
		CostPrice:    req.CostPrice,
		InitialStock: req.InitialStock,
		SupplierID:   req.SupplierID,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, product)
}

// GetProduct handles GET /api/v1/catalog/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid product ID format", "validation_failed")
		return
	}

	product, err := h.products.FindByID(ctx, ownerID, productID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, product)
}

// ListProducts handles GET /api/v1/catalog/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	params := parseProductListParams(r)
	products, total, err := h.products.List(ctx, ownerID, params)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"products":  products,
		"total":     total,
		"page":      params.Page,
		"page_size": params.PageSize,
	})
}

// UpdateProductRequest is the request body for catalog updates. Nil fields
// are left untouched.
type UpdateProductRequest struct {
	Name      *string       `json:"name,omitempty"`
	Brand     *string       `json:"brand,omitempty"`
	Category  *string       `json:"category,omitempty"`
	ImageURL  *string       `json:"image_url,omitempty"`
	SalePrice *domain.Money `json:"sale_price,omitempty"`
	CostPrice *domain.Money `json:"cost_price,omitempty"`
	Stock     *int          `json:"stock,omitempty"`
	Active    *bool         `json:"active,omitempty"`
}

// UpdateProduct handles PUT /api/v1/catalog/products/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid product ID format", "validation_failed")
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
		return
	}

	product, err := h.products.FindByID(ctx, ownerID, productID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	req.apply(product)
	if err := product.Validate(); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	if err := h.products.Update(ctx, product); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", productID.String()))

	respondJSON(w, h.logger, http.StatusOK, product)
}

func (req *UpdateProductRequest) apply(p *domain.Product) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.ImageURL != nil {
		p.ImageURL = *req.ImageURL
	}
	if req.SalePrice != nil {
		p.SalePrice = *req.SalePrice
	}
	if req.CostPrice != nil {
		p.CostPrice = *req.CostPrice
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
}

// DeleteProduct handles DELETE /api/v1/catalog/products/{id}
//
// Products referenced by sale lines are soft-deleted so the ledger keeps
// resolving; unreferenced ones are removed outright.
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid product ID format", "validation_failed")
		return
	}

	hasHistory, err := h.products.HasSaleHistory(ctx, productID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	if hasHistory {
		err = h.products.SoftDelete(ctx, ownerID, productID)
	} else {
		err = h.products.Delete(ctx, ownerID, productID)
	}
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", productID.String()),
		slog.Bool("soft", hasHistory))

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"product_id": productID.String(),
		"deleted":    true,
		"soft":       hasHistory,
	})
}

func parseProductListParams(r *http.Request) ports.ProductListParams {
	params := ports.ProductListParams{
		ActiveOnly: r.URL.Query().Get("include_inactive") != "true",
		Page:       1,
		PageSize:   50,
	}

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > 100 {
				params.PageSize = 100
			} else {
				params.PageSize = l
			}
		}
	}

	params.Search = r.URL.Query().Get("search")
	params.Category = r.URL.Query().Get("category")

	return params
}
