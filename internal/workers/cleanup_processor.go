// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/pkg/config"
)

// CleanupProcessor handles periodic housekeeping tasks
type CleanupProcessor struct {
	sales  ports.SaleRepository
	config *config.Config
	logger *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(sales ports.SaleRepository, cfg *config.Config, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		sales:  sales,
		config: cfg,
		logger: logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupAbandonedSales removes pending sales that never completed. Stock
// was never decremented for them, so deletion is safe.
func (p *CleanupProcessor) CleanupAbandonedSales(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-24 * time.Hour)

	deleted, err := p.sales.DeleteAbandonedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup abandoned sales: %w", err)
	}

	p.logger.InfoContext(ctx, "abandoned sales cleaned up",
		slog.Int64("rows_deleted", deleted))

	return nil
}

// CleanupTempFiles removes stale CSV uploads that a crashed worker never
// deleted.
func (p *CleanupProcessor) CleanupTempFiles(ctx context.Context, t *asynq.Task) error {
	tempDir := p.config.FileProcessing.TempDir
	maxAge := 24 * time.Hour

	var deletedCount int
	err := filepath.Walk(tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err != nil {
				p.logger.WarnContext(ctx, "failed to delete temp file",
					slog.String("file", path),
					slog.String("error", err.Error()))
			} else {
				deletedCount++
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to walk temp directory: %w", err)
	}

	p.logger.InfoContext(ctx, "temp files cleaned up",
		slog.Int("files_deleted", deletedCount))

	return nil
}
