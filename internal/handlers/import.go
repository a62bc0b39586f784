// internal/handlers/import.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/workers"
)

// ImportHandler accepts CSV batch uploads and queues them for async
// processing. Results are polled through ImportStatus.
type ImportHandler struct {
	asynqClient *asynq.Client
	cache       ports.CacheRepository
	logger      *slog.Logger
	maxFileSize int64
	uploadDir   string
}

// NewImportHandler creates a new import handler
func NewImportHandler(
	asynqClient *asynq.Client,
	cache ports.CacheRepository,
	logger *slog.Logger,
	maxFileSize int64,
	uploadDir string,
) *ImportHandler {
	return &ImportHandler{
		asynqClient: asynqClient,
		cache:       cache,
		logger:      logger.With(slog.String("handler", "import")),
		maxFileSize: maxFileSize,
		uploadDir:   uploadDir,
	}
}

// ImportCSV handles POST /api/v1/import/csv
//
// Multipart form fields:
//
//	file   - the CSV upload (required)
//	commit - "true" commits valid rows as a sale after reconciliation;
//	         otherwise the job only produces a reconciliation report
//	notes  - free-form notes attached to the committed sale
func (h *ImportHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		respondError(w, h.logger, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", h.maxFileSize), "validation_failed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "file is required", "validation_failed")
		return
	}
	defer file.Close()

	if !isCSVUpload(header.Filename, header.Header.Get("Content-Type")) {
		respondError(w, h.logger, http.StatusBadRequest, "only CSV files are allowed", "validation_failed")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.ErrorContext(ctx, "failed to create upload directory",
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "failed to prepare upload", "internal")
		return
	}

	jobID := uuid.New().String()
	tempFile := filepath.Join(h.uploadDir, fmt.Sprintf("%s.csv", jobID))
	dst, err := os.Create(tempFile)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create temp file",
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "failed to save upload", "internal")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to save upload",
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "failed to save upload", "internal")
		return
	}

	payload := workers.CSVJobPayload{
		JobID:    jobID,
		OwnerID:  ownerID,
		FilePath: tempFile,
		FileName: header.Filename,
		Commit:   r.FormValue("commit") == "true",
		Notes:    r.FormValue("notes"),
	}

	// Record the job before enqueueing so a status poll racing the worker
	// still finds it.
	queued := workers.ImportJobStatus{
		JobID:    jobID,
		OwnerID:  ownerID,
		FileName: header.Filename,
		Status:   workers.JobQueued,
		QueuedAt: time.Now().UTC(),
	}
	if err := h.cache.SetWithTTL(ctx, workers.ImportJobKey(jobID), queued, workers.ImportStatusTTL); err != nil {
		h.logger.WarnContext(ctx, "failed to record queued job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}

	b, err := json.Marshal(payload)
	if err != nil {
		os.Remove(tempFile)
		respondError(w, h.logger, http.StatusInternalServerError, "failed to queue import job", "internal")
		return
	}

	info, err := h.asynqClient.Enqueue(asynq.NewTask(workers.TypeCSVImport, b),
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour))
	if err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to enqueue task",
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "failed to queue import job", "internal")
		return
	}

	h.logger.InfoContext(ctx, "CSV import queued",
		slog.String("job_id", jobID),
		slog.String("task_id", info.ID),
		slog.String("file_name", header.Filename),
		slog.Bool("commit", payload.Commit))

	respondJSON(w, h.logger, http.StatusAccepted, map[string]interface{}{
		"job_id":  jobID,
		"status":  workers.JobQueued,
		"message": "CSV import has been queued for processing",
	})
}

// ImportStatus handles GET /api/v1/import/status/{jobId}
func (h *ImportHandler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := requireOwner(w, r, h.logger)
	if !ok {
		return
	}

	jobID := r.PathValue("jobId")
	if _, err := uuid.Parse(jobID); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid job ID format", "validation_failed")
		return
	}

	var status workers.ImportJobStatus
	if err := h.cache.Get(ctx, workers.ImportJobKey(jobID), &status); err != nil {
		if errors.Is(err, ports.ErrCacheMiss) {
			respondError(w, h.logger, http.StatusNotFound, "job not found", "not_found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "failed to get job status", "internal")
		return
	}

	// Jobs are owner-scoped like everything else
	if status.OwnerID != ownerID {
		respondError(w, h.logger, http.StatusNotFound, "job not found", "not_found")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, status)
}

func isCSVUpload(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return true
	}
	switch contentType {
	case "text/csv", "application/csv", "application/vnd.ms-excel":
		return true
	}
	return false
}
