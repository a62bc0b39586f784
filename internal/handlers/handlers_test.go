// internal/handlers/handlers_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers/middleware"
)

// ownerHeader is the seller identity header used throughout the tests.
const ownerHeader = "X-Owner-ID"

// owned mounts a mux behind the OwnerID middleware, the way registerRoutes
// mounts the authenticated API surface.
func owned(mux *http.ServeMux) http.Handler {
	return middleware.OwnerID(ownerHeader)(mux)
}

// doJSON performs a request with an optional JSON body and the owner header.
func doJSON(t *testing.T, handler http.Handler, method, target string, ownerID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ownerID != uuid.Nil {
		req.Header.Set(ownerHeader, ownerID.String())
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a JSON response body into a generic map.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
