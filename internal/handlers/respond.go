// internal/handlers/respond.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers/middleware"
)

// errorResponse is the JSON error envelope shared by all handlers. Kind is
// a stable machine-readable discriminator so the POS client can branch on
// it without parsing messages.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, message, kind string) {
	respondJSON(w, logger, status, errorResponse{Error: message, Kind: kind})
}

// respondDomainError maps a service error to an HTTP status via its kind.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := domain.ErrorKind(err)
	respondError(w, logger, statusForKind(kind), err.Error(), kind)
}

func statusForKind(kind string) int {
	switch kind {
	case "invalid_gtin", "validation_failed":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "duplicate_scan", "duplicate_gtin", "out_of_stock":
		return http.StatusConflict
	case "ownership_violation":
		return http.StatusForbidden
	case "external_lookup_failed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requireOwner pulls the seller identity that the OwnerID middleware put on
// the context. Routes behind that middleware always have it; the guard
// covers handlers mounted without it by mistake.
func requireOwner(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	ownerID, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		respondError(w, logger, http.StatusUnauthorized, "owner identity missing", "unauthorized")
		return uuid.Nil, false
	}
	return ownerID, true
}
