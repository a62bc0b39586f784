// internal/workers/csv_processor.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/storage"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/services"
)

// CSVProcessor handles queued CSV batch imports. Each job parses the
// uploaded file, reconciles its rows against the owner's catalog and,
// when requested, commits the valid rows as one atomic sale. The outcome
// lands in redis where the status endpoint can find it.
type CSVProcessor struct {
	reconciler *services.Reconciler
	committer  *services.Committer
	cache      ports.CacheRepository
	storage    storage.StorageClient // nil disables archival
	archive    bool
	logger     *slog.Logger
}

// NewCSVProcessor creates a new CSV import processor
func NewCSVProcessor(
	reconciler *services.Reconciler,
	committer *services.Committer,
	cache ports.CacheRepository,
	storageClient storage.StorageClient,
	archive bool,
	logger *slog.Logger,
) *CSVProcessor {
	return &CSVProcessor{
		reconciler: reconciler,
		committer:  committer,
		cache:      cache,
		storage:    storageClient,
		archive:    archive,
		logger:     logger.With(slog.String("processor", "csv")),
	}
}

// ProcessCSV handles csv:import tasks.
func (p *CSVProcessor) ProcessCSV(ctx context.Context, t *asynq.Task) error {
	var payload CSVJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "processing CSV import",
		slog.String("job_id", payload.JobID),
		slog.String("owner_id", payload.OwnerID.String()),
		slog.Bool("commit", payload.Commit))

	status := &ImportJobStatus{
		JobID:    payload.JobID,
		OwnerID:  payload.OwnerID,
		FileName: payload.FileName,
		Status:   JobProcessing,
		QueuedAt: time.Now().UTC(),
	}
	p.saveStatus(ctx, status)

	data, err := os.ReadFile(payload.FilePath)
	if err != nil {
		return p.fail(ctx, status, fmt.Errorf("read upload: %w", err))
	}
	defer os.Remove(payload.FilePath)

	rawRows, err := services.ParseBatchCSV(bytes.NewReader(data))
	if err != nil {
		return p.fail(ctx, status, err)
	}

	rows, err := p.reconciler.Reconcile(ctx, payload.OwnerID, rawRows)
	if err != nil {
		return p.fail(ctx, status, err)
	}

	status.Rows = rows
	status.Summary = summarizeRows(rows)

	if payload.Commit {
		sale, skipped, err := p.committer.CommitReconciled(ctx, payload.OwnerID, rows, payload.Notes)
		if err != nil {
			return p.fail(ctx, status, err)
		}
		status.SaleID = &sale.ID
		status.Skipped = skipped
	}

	if p.archive && p.storage != nil {
		p.archiveUpload(ctx, status, payload, data)
	}

	now := time.Now().UTC()
	status.Status = JobCompleted
	status.FinishedAt = &now
	p.saveStatus(ctx, status)

	p.logger.InfoContext(ctx, "CSV import completed",
		slog.String("job_id", payload.JobID),
		slog.Int("rows", len(rows)),
		slog.Int("valid", status.Summary.Valid))

	return nil
}

// fail records the failure in redis. Validation and domain failures are
// terminal: retrying the same file yields the same outcome, so the task
// is not requeued. Infrastructure errors bubble up for asynq to retry.
func (p *CSVProcessor) fail(ctx context.Context, status *ImportJobStatus, cause error) error {
	now := time.Now().UTC()
	status.Status = JobFailed
	status.Error = cause.Error()
	status.FinishedAt = &now
	p.saveStatus(ctx, status)

	p.logger.ErrorContext(ctx, "CSV import failed",
		slog.String("job_id", status.JobID),
		slog.String("error", cause.Error()))

	if errors.Is(cause, domain.ErrValidation) || errors.Is(cause, domain.ErrOutOfStock) ||
		errors.Is(cause, domain.ErrOwnershipViolation) {
		return fmt.Errorf("%v: %w", cause, asynq.SkipRetry)
	}
	return cause
}

func (p *CSVProcessor) saveStatus(ctx context.Context, status *ImportJobStatus) {
	if err := p.cache.SetWithTTL(ctx, ImportJobKey(status.JobID), status, ImportStatusTTL); err != nil {
		p.logger.WarnContext(ctx, "failed to save import job status",
			slog.String("job_id", status.JobID),
			slog.String("error", err.Error()))
	}
}

// archiveUpload keeps the original file in object storage for audits.
// Best-effort: a failed archive never fails the import.
func (p *CSVProcessor) archiveUpload(ctx context.Context, status *ImportJobStatus,
	payload CSVJobPayload, data []byte) {

	key := storage.BatchArchiveKey(payload.OwnerID.String(), payload.JobID)
	url, err := p.storage.Upload(ctx, key, bytes.NewReader(data), "text/csv")
	if err != nil {
		p.logger.WarnContext(ctx, "failed to archive CSV upload",
			slog.String("job_id", payload.JobID),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}
	status.ArchiveURL = url
}
