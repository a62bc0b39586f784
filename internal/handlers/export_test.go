// internal/handlers/export_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
	"go.uber.org/mock/gomock"

	redis_a "github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/redis_adapter"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers"
	"github.com/Gepetto-FIAP/tradebox-sub000/test/helpers"
	"github.com/Gepetto-FIAP/tradebox-sub000/test/mocks"
)

type exportFixture struct {
	sales   *mocks.MockSaleRepository
	handler http.Handler
}

func newExportFixture(t *testing.T) *exportFixture {
	ctrl := gomock.NewController(t)
	logger := helpers.TestLogger()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := redis_a.NewCache(client, time.Hour, logger)

	f := &exportFixture{sales: mocks.NewMockSaleRepository(ctrl)}
	export := handlers.NewExportHandler(f.sales, cache, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/export/sales.xlsx", export.ExportExcel)
	mux.HandleFunc("GET /api/v1/export/sales.json", export.ExportJSON)
	f.handler = owned(mux)

	return f
}

func exportSales(ownerID uuid.UUID, count int) []domain.SaleRecord {
	sales := make([]domain.SaleRecord, count)
	for i := range sales {
		sales[i] = *domain.NewSaleRecord(ownerID, []domain.SaleLineInput{
			{ProductID: uuid.New(), Quantity: 2, UnitPrice: 999},
		}, "")
	}
	return sales
}

func TestExportHandler_ExportExcel(t *testing.T) {
	f := newExportFixture(t)
	ownerID := uuid.New()
	sales := exportSales(ownerID, 3)

	f.sales.EXPECT().
		List(gomock.Any(), ownerID, gomock.Any()).
		Return(sales, int64(len(sales)), nil)

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/export/sales.xlsx", ownerID, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sales_export_")

	// The payload must open as a real workbook with both sheets populated.
	file, err := xlsx.OpenReaderAt(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)

	salesSheet, ok := file.Sheet["Sales"]
	require.True(t, ok)
	assert.Equal(t, len(sales)+1, salesSheet.MaxRow, "header plus one row per sale")

	linesSheet, ok := file.Sheet["Lines"]
	require.True(t, ok)
	assert.Equal(t, len(sales)+1, linesSheet.MaxRow)
}

func TestExportHandler_ExportExcel_DrainsAllPages(t *testing.T) {
	f := newExportFixture(t)
	ownerID := uuid.New()

	first := exportSales(ownerID, 500)
	second := exportSales(ownerID, 120)

	f.sales.EXPECT().
		List(gomock.Any(), ownerID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, params ports.SaleListParams) ([]domain.SaleRecord, int64, error) {
			assert.Equal(t, 1, params.Page)
			assert.Equal(t, 500, params.PageSize)
			return first, 620, nil
		})
	f.sales.EXPECT().
		List(gomock.Any(), ownerID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, params ports.SaleListParams) ([]domain.SaleRecord, int64, error) {
			assert.Equal(t, 2, params.Page)
			return second, 620, nil
		})

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/export/sales.xlsx", ownerID, nil)

	require.Equal(t, http.StatusOK, w.Code)

	file, err := xlsx.OpenReaderAt(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	assert.Equal(t, 621, file.Sheet["Sales"].MaxRow)
}

func TestExportHandler_ExportJSON(t *testing.T) {
	f := newExportFixture(t)
	ownerID := uuid.New()
	sales := exportSales(ownerID, 2)

	f.sales.EXPECT().
		List(gomock.Any(), ownerID, gomock.Any()).
		Return(sales, int64(len(sales)), nil)

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/export/sales.json", ownerID, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	var export handlers.SalesJSONExport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
	assert.Len(t, export.Sales, 2)
	assert.Equal(t, 2, export.Metadata.TotalSales)
}

func TestExportHandler_ExportJSON_FiltersInMetadata(t *testing.T) {
	f := newExportFixture(t)
	ownerID := uuid.New()

	f.sales.EXPECT().
		List(gomock.Any(), ownerID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, params ports.SaleListParams) ([]domain.SaleRecord, int64, error) {
			assert.Equal(t, domain.SaleCompleted, params.Status)
			return nil, 0, nil
		})

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/export/sales.json?status=completed&from=2026-08-01", ownerID, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var export handlers.SalesJSONExport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
	assert.Equal(t, "completed", export.Metadata.Status)
	require.NotNil(t, export.Metadata.From)
	assert.Equal(t, "2026-08-01", export.Metadata.From.Format("2006-01-02"))
}

func TestExportHandler_ExportJSON_EmptyLedger(t *testing.T) {
	f := newExportFixture(t)
	ownerID := uuid.New()

	f.sales.EXPECT().
		List(gomock.Any(), ownerID, gomock.Any()).
		Return(nil, int64(0), nil)

	w := doJSON(t, f.handler, http.MethodGet, "/api/v1/export/sales.json", ownerID, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var export handlers.SalesJSONExport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
	assert.Equal(t, 0, export.Metadata.TotalSales)
}
