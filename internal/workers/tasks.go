// internal/workers/tasks.go
package workers

import (
	"time"

	"github.com/google/uuid"

	redis_a "github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/redis_adapter"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
)

// Task type identifiers
const (
	TypeCSVImport            = "csv:import"
	TypeCleanupTempFiles     = "cleanup:temp_files"
	TypeCleanupAbandonedSale = "cleanup:abandoned_sales"
)

// ImportStatusTTL is how long import job results stay queryable in redis.
const ImportStatusTTL = 24 * time.Hour

// Import job lifecycle states
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// CSVJobPayload is the asynq payload for a queued CSV import.
type CSVJobPayload struct {
	JobID    string    `json:"job_id"`
	OwnerID  uuid.UUID `json:"owner_id"`
	FilePath string    `json:"file_path"`
	FileName string    `json:"file_name"`
	Commit   bool      `json:"commit"`
	Notes    string    `json:"notes,omitempty"`
}

// ImportSummary aggregates the reconciliation outcome of an import.
type ImportSummary struct {
	Total    int          `json:"total"`
	Valid    int          `json:"valid"`
	NoStock  int          `json:"no_stock"`
	NotFound int          `json:"not_found"`
	Amount   domain.Money `json:"amount"`
}

// ImportJobStatus is the redis-stored state of an import job, served by the
// import status endpoint.
type ImportJobStatus struct {
	JobID      string                 `json:"job_id"`
	OwnerID    uuid.UUID              `json:"owner_id"`
	FileName   string                 `json:"file_name,omitempty"`
	Status     string                 `json:"status"`
	Error      string                 `json:"error,omitempty"`
	Rows       []domain.ReconciledRow `json:"rows,omitempty"`
	Summary    *ImportSummary         `json:"summary,omitempty"`
	SaleID     *uuid.UUID             `json:"sale_id,omitempty"`
	Skipped    int                    `json:"skipped,omitempty"`
	ArchiveURL string                 `json:"archive_url,omitempty"`
	QueuedAt   time.Time              `json:"queued_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

// ImportJobKey is the redis key the status of one import job lives under.
func ImportJobKey(jobID string) string {
	return redis_a.BuildKey(redis_a.PrefixImport, "job", jobID)
}

func summarizeRows(rows []domain.ReconciledRow) *ImportSummary {
	summary := &ImportSummary{Total: len(rows)}
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
