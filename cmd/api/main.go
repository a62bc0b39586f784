// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/db"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/gtin"
	redis_a "github.com/Gepetto-FIAP/tradebox-sub000/internal/adapters/redis_adapter"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/services"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/handlers/middleware"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/pkg/config"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/pkg/logger"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	appLogger := logger.SetupLogger("debug", "json")
	slogger := appLogger.Logger

	slogger.Info("starting tradebox POS companion",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	appLogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger = appLogger.Logger
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
	)

	ctx := context.Background()

	// Production database credentials come from Secrets Manager, never env
	if cfg.Database.SecretName != "" {
		sm, err := config.NewAWSSecretsManager(cfg.AWS.Region, cfg.Database.SecretName, slogger)
		if err != nil {
			slogger.Error("failed to initialize secrets manager", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := cfg.ApplyDatabaseSecrets(ctx, sm); err != nil {
			slogger.Error("failed to resolve database secrets", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	deps, err := initializeDependencies(ctx, cfg, appLogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	if !cfg.IsProduction() {
		if err := runMigrations(ctx, cfg, slogger); err != nil {
			slogger.Error("failed to run migrations", slog.String("error", err.Error()))
			// Keep serving in development; the schema may already be current
		}
	}

	server := setupHTTPServer(cfg, deps, appLogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received",
			slog.String("signal", sig.String()),
		)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	database       *db.Database
	redisClient    *redis.Client
	redisCache     ports.CacheRepository
	asynqClient    *asynq.Client
	asynqInspector *asynq.Inspector

	catalogHandler *handlers.CatalogHandler
	cartHandler    *handlers.CartHandler
	salesHandler   *handlers.SalesHandler
	batchHandler   *handlers.BatchHandler
	importHandler  *handlers.ImportHandler
	exportHandler  *handlers.ExportHandler
	healthHandler  *handlers.HealthHandler
}

func (d *dependencies) cleanup() {
	if d.database != nil {
		d.database.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*dependencies, error) {
	deps := &dependencies{}
	slogger := appLogger.Logger

	slogger.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}, slogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.database = database

	slogger.Info("connecting to Redis",
		slog.String("host", cfg.Redis.Host),
		slog.String("port", cfg.Redis.Port),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		PoolTimeout:     cfg.Redis.PoolTimeout,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	deps.redisClient = redisClient
	deps.redisCache = redis_a.NewCache(redisClient, cfg.Redis.TTL, slogger)

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}
	deps.asynqClient = asynq.NewClient(asynqRedisOpt)
	deps.asynqInspector = asynq.NewInspector(asynqRedisOpt)

	// Repositories
	productRepo := db.NewProductRepository(database, slogger)
	saleRepo := db.NewSaleRepository(database, slogger)

	// External GTIN metadata provider
	metadataClient := gtin.NewClient(gtin.Config{
		BaseURL:      cfg.GTINAPI.BaseURL,
		ClientID:     cfg.GTINAPI.ClientID,
		ClientSecret: cfg.GTINAPI.ClientSecret,
		Timeout:      cfg.GTINAPI.Timeout,
	}, slogger)

	// Core services
	resolver := services.NewResolver(productRepo, metadataClient, deps.redisCache, slogger)
	debouncer := services.NewScanDebouncer(cfg.Security.DebounceWindow)
	quickRegister := services.NewQuickRegister(productRepo, deps.redisCache, slogger)
	cartService := services.NewCartService(productRepo, deps.redisCache, cfg.Redis.CartTTL, slogger)
	reconciler := services.NewReconciler(productRepo, slogger)
	committer := services.NewCommitter(saleRepo, slogger)
	ledger := services.NewLedger(saleRepo, slogger)

	// Handlers
	deps.catalogHandler = handlers.NewCatalogHandler(resolver, debouncer, quickRegister, productRepo, slogger)
	deps.cartHandler = handlers.NewCartHandler(cartService, slogger)
	deps.salesHandler = handlers.NewSalesHandler(committer, ledger, cartService, slogger)
	deps.batchHandler = handlers.NewBatchHandler(reconciler, committer, slogger)
	deps.exportHandler = handlers.NewExportHandler(saleRepo, deps.redisCache, slogger)
	deps.healthHandler = handlers.NewHealthHandler(database, redisClient, deps.asynqInspector, cfg, slogger)

	maxFileSize := int64(cfg.FileProcessing.CSVMaxSizeMB) * 1024 * 1024
	deps.importHandler = handlers.NewImportHandler(deps.asynqClient, deps.redisCache, slogger,
		maxFileSize, cfg.FileProcessing.TempDir)

	slogger.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, appLogger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	slogger := appLogger.Logger

	registerRoutes(mux, deps, cfg)

	// Apply middleware in reverse order (innermost first)
	var handler http.Handler = mux
	handler = middleware.RequestID(handler)
	handler = middleware.Logger(appLogger)(handler)
	handler = middleware.Recovery(slogger)(handler)

	if cfg.Security.RateLimitRequests > 0 {
		handler = middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)(handler)
	}

	if len(cfg.Security.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.Security.AllowedOrigins)(handler)
	}

	if cfg.Security.SecureHeaders {
		handler = middleware.SecureHeaders(handler)
	}

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slogger.Handler(), slog.LevelError),
	}
}

func registerRoutes(mux *http.ServeMux, deps *dependencies, cfg *config.Config) {
	apiV1 := "/api/v1"

	// Health and readiness endpoints are unauthenticated
	mux.HandleFunc("GET /health", deps.healthHandler.Health)
	mux.HandleFunc("GET /ready", deps.healthHandler.Readiness)
	mux.HandleFunc("GET "+apiV1+"/health", deps.healthHandler.Health)

	// Everything below is owner-scoped
	owned := http.NewServeMux()

	// Scan/resolve flow
	owned.HandleFunc("POST "+apiV1+"/catalog/scan", deps.catalogHandler.Scan)
	owned.HandleFunc("DELETE "+apiV1+"/catalog/scan/{gtin}", deps.catalogHandler.ClearScan)
	owned.HandleFunc("POST "+apiV1+"/catalog/resolve", deps.catalogHandler.Resolve)
	owned.HandleFunc("POST "+apiV1+"/catalog/resolve/batch", deps.catalogHandler.ResolveBatch)

	// Catalog management
	owned.HandleFunc("POST "+apiV1+"/catalog/products", deps.catalogHandler.QuickRegister)
	owned.HandleFunc("GET "+apiV1+"/catalog/products", deps.catalogHandler.ListProducts)
	owned.HandleFunc("GET "+apiV1+"/catalog/products/{id}", deps.catalogHandler.GetProduct)
	owned.HandleFunc("PUT "+apiV1+"/catalog/products/{id}", deps.catalogHandler.UpdateProduct)
	owned.HandleFunc("DELETE "+apiV1+"/catalog/products/{id}", deps.catalogHandler.DeleteProduct)

	// Session cart
	owned.HandleFunc("GET "+apiV1+"/cart", deps.cartHandler.GetCart)
	owned.HandleFunc("DELETE "+apiV1+"/cart", deps.cartHandler.ClearCart)
	owned.HandleFunc("POST "+apiV1+"/cart/items", deps.cartHandler.AddItem)
	owned.HandleFunc("PUT "+apiV1+"/cart/items/{productId}", deps.cartHandler.UpdateItem)
	owned.HandleFunc("DELETE "+apiV1+"/cart/items/{productId}", deps.cartHandler.RemoveItem)

	// Sales
	owned.HandleFunc("POST "+apiV1+"/sales", deps.salesHandler.CreateSale)
	owned.HandleFunc("POST "+apiV1+"/sales/checkout", deps.salesHandler.Checkout)
	owned.HandleFunc("GET "+apiV1+"/sales", deps.salesHandler.ListSales)
	owned.HandleFunc("GET "+apiV1+"/sales/{id}", deps.salesHandler.GetSale)
	owned.HandleFunc("POST "+apiV1+"/sales/{id}/cancel", deps.salesHandler.CancelSale)

	// Synchronous batch reconciliation
	owned.HandleFunc("POST "+apiV1+"/batch/reconcile", deps.batchHandler.Reconcile)
	owned.HandleFunc("POST "+apiV1+"/batch/commit", deps.batchHandler.CommitBatch)

	// Async CSV import
	owned.HandleFunc("POST "+apiV1+"/import/csv", deps.importHandler.ImportCSV)
	owned.HandleFunc("GET "+apiV1+"/import/status/{jobId}", deps.importHandler.ImportStatus)

	// Ledger exports
	owned.HandleFunc("GET "+apiV1+"/export/sales.xlsx", deps.exportHandler.ExportExcel)
	owned.HandleFunc("GET "+apiV1+"/export/sales.json", deps.exportHandler.ExportJSON)

	mux.Handle(apiV1+"/", middleware.OwnerID(cfg.Security.OwnerIDHeader)(owned))

	// pprof endpoints (development only)
	if cfg.Server.EnablePprof && cfg.IsDevelopment() {
		mux.HandleFunc("GET /debug/pprof/", http.HandlerFunc(http.DefaultServeMux.ServeHTTP))
	}
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("running database migrations")

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}

	return db.RunMigrationsWithRetry(ctx, migrationConfig, logger, 3)
}
