// internal/handlers/import_test.go
package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/workers"
	"github.com/Gepetto-FIAP/tradebox-sub000/test/helpers"
	"github.com/Gepetto-FIAP/tradebox-sub000/test/mocks"
)

type importFixture struct {
	cache   *mocks.MockCacheRepository
	handler http.Handler
}

// newImportFixture covers the status endpoint; the upload path needs a live
// asynq broker and is exercised by the worker tests and the e2e suite.
func newImportFixture(t *testing.T) *importFixture {
	ctrl := gomock.NewController(t)
	f := &importFixture{cache: mocks.NewMockCacheRepository(ctrl)}

	imp := handlers.NewImportHandler(nil, f.cache, helpers.TestLogger(), 10<<20, t.TempDir())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/import/status/{jobId}", imp.ImportStatus)
	f.handler = owned(mux)

	return f
}

func TestImportHandler_ImportStatus(t *testing.T) {
	f := newImportFixture(t)
	ownerID := uuid.New()
	jobID := uuid.New().String()

	saleID := uuid.New()
	stored := workers.ImportJobStatus{
		JobID:    jobID,
		OwnerID:  ownerID,
		FileName: "vendas.csv",
		Status:   workers.JobCompleted,
		Summary:  &workers.ImportSummary{Total: 3, Valid: 2, NotFound: 1, Amount: 2448},
		SaleID:   &saleID,
		Skipped:  1,
		QueuedAt: time.Now().UTC(),
	}

	f.cache.EXPECT().
		Get(gomock.Any(), workers.ImportJobKey(jobID), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, dest any) error {
			*dest.(*workers.ImportJobStatus) = stored
			return nil
		})

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/import/status/"+jobID, ownerID, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, jobID, body["job_id"])
	assert.Equal(t, "completed", body["status"])
	assert.EqualValues(t, 1, body["skipped"])
	assert.Equal(t, saleID.String(), body["sale_id"])
}

func TestImportHandler_ImportStatus_NotFound(t *testing.T) {
	f := newImportFixture(t)
	ownerID := uuid.New()
	jobID := uuid.New().String()

	f.cache.EXPECT().
		Get(gomock.Any(), workers.ImportJobKey(jobID), gomock.Any()).
		Return(ports.ErrCacheMiss)

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/import/status/"+jobID, ownerID, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["kind"])
}

func TestImportHandler_ImportStatus_OtherOwnersJobIsNotFound(t *testing.T) {
	f := newImportFixture(t)
	jobID := uuid.New().String()

	stored := workers.ImportJobStatus{
		JobID:   jobID,
		OwnerID: uuid.New(),
		Status:  workers.JobCompleted,
	}
	f.cache.EXPECT().
		Get(gomock.Any(), workers.ImportJobKey(jobID), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, dest any) error {
			*dest.(*workers.ImportJobStatus) = stored
			return nil
		})

	// Job existence must not leak across owners.
	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/import/status/"+jobID, uuid.New(), nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["kind"])
}

func TestImportHandler_ImportStatus_MalformedJobID(t *testing.T) {
	f := newImportFixture(t)

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/import/status/not-a-uuid", uuid.New(), nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", decodeBody(t, w)["kind"])
}
