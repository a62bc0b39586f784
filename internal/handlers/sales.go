// internal/handlers/sales.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/services"
)

// SalesHandler serves sale commits and the sale ledger.
type SalesHandler struct {
	committer *services.Committer
	ledger    *services.Ledger
	cart      *services.CartService
	logger    *slog.Logger
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(
	committer *services.Committer,
	ledger *services.Ledger,
	cart *services.CartService,
	logger *slog.Logger,
) *SalesHandler {
	return &SalesHandler{
		committer: committer,
		ledger:    ledger,
		cart:      cart,
		logger:    logger.With(slog.String("handler", "sales")),
	}
}

// CreateSaleRequest commits explicit lines, bypassing the session cart.
type CreateSaleRequest struct {
	Lines []domain.SaleLineInput `json:"lines"`
	Notes string                 `json:"notes,omitempty"`
}

// CreateSale handles POST /api/v1/sales
func (h *SalesHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
		return
	}

	sale, err := h.committer.Commit(ctx, ownerID, req.Lines, req.Notes)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, sale)
}

// CheckoutRequest carries optional notes for a cart checkout.
type CheckoutRequest struct {
	Notes string `json:"notes,omitempty"`
}

// Checkout handles POST /api/v1/sales/checkout
//
// Commits the seller's session cart as one atomic sale and clears the cart
// on success. The cart survives untouched when the commit rolls back, so
// the operator can fix the offending line and retry.
func (h *SalesHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req CheckoutRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
			return
		}
	}

	cart, err := h.cart.Get(ctx, ownerID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if cart.IsEmpty() {
		respondError(w, h.logger, http.StatusBadRequest, "cart is empty", "validation_failed")
		return
	}

	lines := make([]domain.SaleLineInput, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, domain.SaleLineInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	sale, err := h.committer.Commit(ctx, ownerID, lines, req.Notes)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	if err := h.cart.Clear(ctx, ownerID); err != nil {
		// The sale is already durable; a stale cart only inconveniences
		// the next request.
		h.logger.WarnContext(ctx, "failed to clear cart after checkout",
			slog.String("sale_id", sale.ID.String()),
			slog.String("error", err.Error()))
	}

	respondJSON(w, h.logger, http.StatusCreated, sale)
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SalesHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid sale ID format", "validation_failed")
		return
	}

	sale, err := h.ledger.Get(ctx, ownerID, saleID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, sale)
}

// ListSales handles GET /api/v1/sales
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	params := parseSaleListParams(r)
	sales, total, err := h.ledger.List(ctx, ownerID, params)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"sales":     sales,
		"total":     total,
		"page":      params.Page,
		"page_size": params.PageSize,
	})
}

// CancelSale handles POST /api/v1/sales/{id}/cancel
func (h *SalesHandler) CancelSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid sale ID format", "validation_failed")
		return
	}

	if err := h.ledger.Cancel(ctx, ownerID, saleID); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"sale_id": saleID.String(),
		"status":  domain.SaleCancelled,
	})
}

func parseSaleListParams(r *http.Request) ports.SaleListParams {
	params := ports.SaleListParams{
		Page:     1,
		PageSize: 50,
	}

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > 500 {
				params.PageSize = 500
			} else {
				params.PageSize = l
			}
		}
	}

	if status := r.URL.Query().Get("status"); status != "" {
		params.Status = domain.SaleStatus(status)
	}

	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			params.From = &t
		}
	}

	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			params.To = &t
		}
	}

	return params
}
