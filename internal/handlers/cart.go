// internal/handlers/cart.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/services"
)

// CartHandler serves the redis-backed session cart.
type CartHandler struct {
	cart   *services.CartService
	logger *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cart *services.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:   cart,
		logger: logger.With(slog.String("handler", "cart")),
	}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.cart.Get(ctx, ownerID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, cartResponse(cart))
}

// AddItemRequest is the request body for adding a cart line. A nil
// unit_price charges the product's current sale price.
type AddItemRequest struct {
	ProductID uuid.UUID     `json:"product_id"`
	Quantity  int           `json:"quantity"`
	UnitPrice *domain.Money `json:"unit_price,omitempty"`
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
		return
	}
	if req.ProductID == uuid.Nil {
		respondError(w, h.logger, http.StatusBadRequest, "product_id is required", "validation_failed")
		return
	}

	cart, err := h.cart.AddItem(ctx, ownerID, req.ProductID, req.Quantity, req.UnitPrice)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, cartResponse(cart))
}

// UpdateItemRequest replaces a line's quantity; zero removes the line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	productID, err := uuid.Parse(r.PathValue("productId"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid product ID format", "validation_failed")
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
		return
	}

	cart, err := h.cart.SetQuantity(ctx, ownerID, productID, req.Quantity)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, cartResponse(cart))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	productID, err := uuid.Parse(r.PathValue("productId"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid product ID format", "validation_failed")
		return
	}

	cart, err := h.cart.RemoveItem(ctx, ownerID, productID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, cartResponse(cart))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.cart.Clear(ctx, ownerID); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// cartResponse augments the stored cart with its derived total so clients
// never recompute money.
func cartResponse(cart *domain.Cart) map[string]interface{} {
	return map[string]interface{}{
		"owner_id":   cart.OwnerID,
		"lines":      cart.Lines,
		"total":      cart.Total(),
		"line_count": len(cart.Lines),
		"updated_at": cart.UpdatedAt,
	}
}
