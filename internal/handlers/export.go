// internal/handlers/export.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx/v3"

	redis_a "github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/redis_adapter"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
)

// exportPageSize is the ledger page size used when draining all sales for
// an export.
const exportPageSize = 500

// ExportHandler produces spreadsheet and JSON dumps of the sale ledger.
type ExportHandler struct {
	sales  ports.SaleRepository
	cache  ports.CacheRepository
	logger *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(sales ports.SaleRepository, cache ports.CacheRepository, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		sales:  sales,
		cache:  cache,
		logger: logger.With(slog.String("handler", "export")),
	}
}

// SalesExportMetadata describes one export run.
type SalesExportMetadata struct {
	ExportDate time.Time  `json:"export_date"`
	TotalSales int        `json:"total_sales"`
	Status     string     `json:"status,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// SalesJSONExport is the JSON export envelope.
type SalesJSONExport struct {
	Sales    []domain.SaleRecord `json:"sales"`
	Metadata SalesExportMetadata `json:"metadata"`
}

// ExportExcel handles GET /api/v1/export/sales.xlsx
func (h *ExportHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	params := parseSaleListParams(r)
	sales, err := h.fetchAll(ctx, ownerID, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load sales for export",
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	excelData, err := h.generateExcelFile(sales)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate Excel file",
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "failed to generate Excel file", "internal")
		return
	}

	filename := fmt.Sprintf("sales_export_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(excelData)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if _, err := w.Write(excelData); err != nil {
		h.logger.ErrorContext(ctx, "failed to write Excel response",
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "Excel export completed",
		slog.Int("total_sales", len(sales)),
		slog.String("filename", filename))
}

// ExportJSON handles GET /api/v1/export/sales.json
func (h *ExportHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	params := parseSaleListParams(r)

	cacheKey := redis_a.BuildKey(redis_a.PrefixExport, "sales", ownerID.String(), exportCacheKey(params))
	var cachedData []byte
	if err := h.cache.Get(ctx, cacheKey, &cachedData); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Length", strconv.Itoa(len(cachedData)))
		w.Write(cachedData)
		return
	}

	sales, err := h.fetchAll(ctx, ownerID, params)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	export := SalesJSONExport{
		Sales: sales,
		Metadata: SalesExportMetadata{
			ExportDate: time.Now().UTC(),
			TotalSales: len(sales),
			Status:     string(params.Status),
			From:       params.From,
			To:         params.To,
		},
	}

	responseData, err := json.Marshal(export)
	if err != nil {
		respondError(w, h.logger, http.StatusInternalServerError, "failed to generate JSON", "internal")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("Content-Length", strconv.Itoa(len(responseData)))
	if _, err := w.Write(responseData); err != nil {
		h.logger.ErrorContext(ctx, "failed to write JSON response",
			slog.String("error", err.Error()))
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := h.cache.SetWithTTL(cacheCtx, cacheKey, responseData, 5*time.Minute); err != nil {
			h.logger.WarnContext(cacheCtx, "failed to cache JSON export",
				slog.String("error", err.Error()))
		}
	}()

	h.logger.InfoContext(ctx, "JSON export completed",
		slog.Int("total_sales", len(sales)))
}

// fetchAll drains the ledger page by page for the given filters.
func (h *ExportHandler) fetchAll(ctx context.Context, ownerID uuid.UUID,
	params ports.SaleListParams) ([]domain.SaleRecord, error) {

	params.Page = 1
	params.PageSize = exportPageSize

	var all []domain.SaleRecord
	for {
		page, total, err := h.sales.List(ctx, ownerID, params)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if int64(len(all)) >= total || len(page) == 0 {
			return all, nil
		}
		params.Page++
	}
}

func (h *ExportHandler) generateExcelFile(sales []domain.SaleRecord) ([]byte, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	headers := []string{
		"Sale ID", "Date", "Status", "Lines", "Total", "Notes",
	}
	headerRow := sheet.AddRow()
	for _, header := range headers {
		cell := headerRow.AddCell()
		cell.Value = header
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}

	for _, sale := range sales {
		row := sheet.AddRow()
		row.AddCell().Value = sale.ID.String()
		row.AddCell().Value = sale.CreatedAt.Format("2006-01-02 15:04:05")
		row.AddCell().Value = string(sale.Status)
		row.AddCell().Value = strconv.Itoa(sale.LineCount)
		row.AddCell().Value = sale.TotalAmount.String()
		row.AddCell().Value = sale.Notes
	}

	lineSheet, err := file.AddSheet("Lines")
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	lineHeaders := []string{
		"Sale ID", "Product ID", "Quantity", "Unit Price", "Subtotal",
	}
	lineHeaderRow := lineSheet.AddRow()
	for _, header := range lineHeaders {
		cell := lineHeaderRow.AddCell()
		cell.Value = header
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}

	for _, sale := range sales {
		for _, line := range sale.Lines {
			row := lineSheet.AddRow()
			row.AddCell().Value = line.SaleID.String()
			row.AddCell().Value = line.ProductID.String()
			row.AddCell().Value = strconv.Itoa(line.Quantity)
			row.AddCell().Value = line.UnitPrice.String()
			row.AddCell().Value = line.Subtotal.String()
		}
	}

	for i := 0; i < len(headers); i++ {
		sheet.SetColWidth(i, i, 20)
	}
	for i := 0; i < len(lineHeaders); i++ {
		lineSheet.SetColWidth(i, i, 20)
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		return nil, fmt.Errorf("failed to write Excel file to buffer: %w", err)
	}

	return buffer.Bytes(), nil
}

func exportCacheKey(params ports.SaleListParams) string {
	key := "all"
	if params.Status != "" {
		key = string(params.Status)
	}
	if params.From != nil {
		key += "_from_" + params.From.Format("20060102")
	}
	if params.To != nil {
		key += "_to_" + params.To.Format("20060102")
	}
	return key
}
