// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/db"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/pkg/config"
)

// HealthHandler reports liveness and readiness for the POS backend and its
// backing stores.
type HealthHandler struct {
	db        *db.Database
	redis     *redis.Client
	asynq     *asynq.Inspector
	config    *config.Config
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	database *db.Database,
	redisClient *redis.Client,
	asynqInspector *asynq.Inspector,
	cfg *config.Config,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:        database,
		redis:     redisClient,
		asynq:     asynqInspector,
		config:    cfg,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
}

type componentStatus struct {
	OK      bool           `json:"ok"`
	Latency string         `json:"latency,omitempty"`
	Error   string         `json:"error,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
}

type healthReport struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Env        string                     `json:"environment"`
	Uptime     string                     `json:"uptime"`
	CheckedAt  time.Time                  `json:"checked_at"`
	Components map[string]componentStatus `json:"components"`
	Runtime    runtimeStats               `json:"runtime"`
}

type runtimeStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	HeapMB     uint64 `json:"heap_mb"`
}

// Health handles the /health endpoint. Any failing component degrades the
// overall status to 503 so load balancers rotate the instance out.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]func(context.Context) componentStatus{
		"database": h.pingDatabase,
		"redis":    h.pingRedis,
	}
	if h.asynq != nil {
		checks["asynq"] = h.pingQueues
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	report := healthReport{
		Status:     "healthy",
		Version:    h.config.App.Version,
		Env:        h.config.App.Environment,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		CheckedAt:  time.Now().UTC(),
		Components: make(map[string]componentStatus, len(checks)),
		Runtime: runtimeStats{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			HeapMB:     memStats.Alloc / 1024 / 1024,
		},
	}

	for name, check := range checks {
		status := check(ctx)
		report.Components[name] = status
		if !status.OK {
			report.Status = "degraded"
		}
	}

	code := http.StatusOK
	if report.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	h.write(ctx, w, code, report)
}

// Readiness handles the /ready endpoint. Only the stores a request cannot be
// served without are consulted; the worker queue is a liveness concern.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failing := []string{}
	if err := h.db.Ping(ctx); err != nil {
		failing = append(failing, "database")
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		failing = append(failing, "redis")
	}

	code := http.StatusOK
	if len(failing) > 0 {
		code = http.StatusServiceUnavailable
	}
	h.write(ctx, w, code, map[string]any{
		"ready":   len(failing) == 0,
		"failing": failing,
	})
}

func (h *HealthHandler) pingDatabase(ctx context.Context) componentStatus {
	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "database health check failed",
			slog.String("error", err.Error()))
		return componentStatus{Error: err.Error()}
	}

	detail := make(map[string]any)
	for k, v := range h.db.Health(ctx) {
		detail[k] = v
	}
	return componentStatus{OK: true, Latency: time.Since(start).String(), Detail: detail}
}

func (h *HealthHandler) pingRedis(ctx context.Context) componentStatus {
	start := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		h.logger.ErrorContext(ctx, "redis health check failed",
			slog.String("error", err.Error()))
		return componentStatus{Error: err.Error()}
	}

	pool := h.redis.PoolStats()
	return componentStatus{
		OK:      true,
		Latency: time.Since(start).String(),
		Detail: map[string]any{
			"conns_total": pool.TotalConns,
			"conns_idle":  pool.IdleConns,
		},
	}
}

func (h *HealthHandler) pingQueues(ctx context.Context) componentStatus {
	start := time.Now()
	queues, err := h.asynq.Queues()
	if err != nil {
		h.logger.ErrorContext(ctx, "asynq health check failed",
			slog.String("error", err.Error()))
		return componentStatus{Error: err.Error()}
	}

	backlog := make(map[string]any, len(queues))
	for _, queue := range queues {
		if info, err := h.asynq.GetQueueInfo(queue); err == nil {
			backlog[queue] = map[string]any{
				"pending": info.Pending,
				"active":  info.Active,
				"retry":   info.Retry,
			}
		}
	}
	return componentStatus{
		OK:      true,
		Latency: time.Since(start).String(),
		Detail:  map[string]any{"queues": backlog},
	}
}

func (h *HealthHandler) write(ctx context.Context, w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode health response",
			slog.String("error", err.Error()))
	}
}
