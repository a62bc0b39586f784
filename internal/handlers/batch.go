// internal/handlers/batch.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/services"
)

// BatchHandler serves synchronous batch reconciliation and commit. Larger
// CSV uploads go through the async import flow instead.
type BatchHandler struct {
	reconciler *services.Reconciler
	committer  *services.Committer
	logger     *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(
	reconciler *services.Reconciler,
	committer *services.Committer,
	logger *slog.Logger,
) *BatchHandler {
	return &BatchHandler{
		reconciler: reconciler,
		committer:  committer,
		logger:     logger.With(slog.String("handler", "batch")),
	}
}

// BatchRequest carries the raw rows of a batch, already parsed to JSON by
// the client (CSV files use the import endpoint).
type BatchRequest struct {
	Rows  []domain.RawRow `json:"rows"`
	Notes string          `json:"notes,omitempty"`
}

// BatchSummary aggregates a reconciliation result.
type BatchSummary struct {
	Total    int          `json:"total"`
	Valid    int          `json:"valid"`
	NoStock  int          `json:"no_stock"`
	NotFound int          `json:"not_found"`
	Amount   domain.Money `json:"amount"`
}

// Reconcile handles POST /api/v1/batch/reconcile
//
// Dry run: classifies every row against the catalog without touching stock,
// so the operator can review before committing.
func (h *BatchHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	req, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}

	rows, err := h.reconciler.Reconcile(ctx, ownerID, req.Rows)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"rows":    rows,
		"summary": summarize(rows),
	})
}

// CommitBatch handles POST /api/v1/batch/commit
//
// Reconciles and commits the valid rows as one atomic sale. Rows that fail
// reconciliation are skipped and reported, never partially sold.
func (h *BatchHandler) CommitBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	req, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}

	rows, err := h.reconciler.Reconcile(ctx, ownerID, req.Rows)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	sale, skipped, err := h.committer.CommitReconciled(ctx, ownerID, rows, req.Notes)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "batch committed",
		slog.String("sale_id", sale.ID.String()),
		slog.Int("lines", sale.LineCount),
		slog.Int("skipped", skipped))

	respondJSON(w, h.logger, http.StatusCreated, map[string]interface{}{
		"sale":    sale,
		"skipped": skipped,
		"rows":    rows,
	})
}

func (h *BatchHandler) decodeBatch(w http.ResponseWriter, r *http.Request) (BatchRequest, bool) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_failed")
		return req, false
	}
	if len(req.Rows) == 0 {
		respondError(w, h.logger, http.StatusBadRequest, "rows is required", "validation_failed")
		return req, false
	}
	if len(req.Rows) > domain.MaxBatchRows {
		respondError(w, h.logger, http.StatusBadRequest,
			fmt.Sprintf("at most %d rows per batch", domain.MaxBatchRows), "validation_failed")
		return req, false
	}
	return req, true
}

func summarize(rows []domain.ReconciledRow) BatchSummary {
	summary := BatchSummary{Total: len(rows)}
	for _, row := range rows {
		switch row.Status {
		case domain.RowValid:
			summary.Valid++
			summary.Amount += row.Subtotal()
		case domain.RowNoStock:
			summary.NoStock++
		case domain.RowNotFound:
			summary.NotFound++
		}
	}
	return summary
}
