// internal/core/services/batch_csv.go
package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
)

// CSV batch layout: header row with GTIN, QUANTIDADE and optionally
// PRECO_UNITARIO, matched case-insensitively in any column order. Parsing is
// all-or-nothing: any malformed row aborts the whole upload with a
// line-numbered error, and per-row business outcomes (no stock, unknown
// code) are left to reconciliation.

type csvColumns struct {
	gtin     int
	quantity int
	price    int // -1 when the column is absent
}

// ParseBatchCSV reads a bulk sale CSV into raw rows. Row line numbers are
// 1-based file positions (header is line 1) so parse and reconciliation
// errors point at the exact source line.
func ParseBatchCSV(r io.Reader) ([]domain.RawRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", domain.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: line 1: %v", domain.ErrValidation, err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.RawRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrValidation, line, err)
		}
		if isBlank(record) {
			continue
		}

		row, err := parseRow(record, cols, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file has a header but no data rows", domain.ErrValidation)
	}
	return rows, nil
}

func mapColumns(header []string) (csvColumns, error) {
	cols := csvColumns{gtin: -1, quantity: -1, price: -1}
	for i, name := range header {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "GTIN":
			cols.gtin = i
		case "QUANTIDADE":
			cols.quantity = i
		case "PRECO_UNITARIO":
			cols.price = i
		}
	}
	if cols.gtin < 0 || cols.quantity < 0 {
		return cols, fmt.Errorf("%w: line 1: header must contain GTIN and QUANTIDADE columns", domain.ErrValidation)
	}
	return cols, nil
}

func parseRow(record []string, cols csvColumns, line int) (domain.RawRow, error) {
	row := domain.RawRow{Line: line}

	if cols.gtin >= len(record) || cols.quantity >= len(record) {
		return row, fmt.Errorf("%w: line %d: missing columns", domain.ErrValidation, line)
	}

	row.Code = domain.NormalizeGTIN(record[cols.gtin])
	if row.Code == "" {
		return row, fmt.Errorf("%w: line %d: empty GTIN", domain.ErrValidation, line)
	}

	qty, err := strconv.Atoi(strings.TrimSpace(record[cols.quantity]))
	if err != nil {
		return row, fmt.Errorf("%w: line %d: invalid QUANTIDADE %q", domain.ErrValidation, line, record[cols.quantity])
	}
	if qty <= 0 {
		return row, fmt.Errorf("%w: line %d: QUANTIDADE must be positive", domain.ErrValidation, line)
	}
	row.Quantity = qty

	if cols.price >= 0 && cols.price < len(record) {
		raw := strings.TrimSpace(record[cols.price])
		if raw != "" {
			price, err := domain.ParseMoney(raw)
			if err != nil {
				return row, fmt.Errorf("%w: line %d: invalid PRECO_UNITARIO %q", domain.ErrValidation, line, raw)
			}
			if price <= 0 {
				return row, fmt.Errorf("%w: line %d: PRECO_UNITARIO must be positive", domain.ErrValidation, line)
			}
			row.Price = &price
		}
	}
	return row, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
