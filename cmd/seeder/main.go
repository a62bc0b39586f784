// cmd/seeder/main.go
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
)

// DemoOwnerID is the seller every seeded product belongs to unless -owner is
// given. The API expects the same value in the X-Owner-ID header.
const DemoOwnerID = "6f1b24d0-0000-4000-8000-000000000001"

// seedColumns is the expected CSV header, in order.
var seedColumns = []string{"gtin", "name", "brand", "category", "sale_price", "cost_price", "stock"}

// CatalogSeeder loads products from a CSV file into the catalog of one owner.
type CatalogSeeder struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewCatalogSeeder(db *pgxpool.Pool, logger *slog.Logger) *CatalogSeeder {
	return &CatalogSeeder{db: db, logger: logger}
}

// LoadProducts parses seed rows from r. Every row must carry a valid GTIN and
// a positive sale price; a bad row aborts the whole load so a partial catalog
// never reaches the database.
func (s *CatalogSeeder) LoadProducts(r io.Reader, ownerID uuid.UUID) ([]domain.Product, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var products []domain.Product
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		product, err := parseSeedRow(record, ownerID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := product.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		products = append(products, *product)
	}

	s.logger.Info("loaded seed products", slog.Int("count", len(products)))
	return products, nil
}

func checkHeader(header []string) error {
	if len(header) != len(seedColumns) {
		return fmt.Errorf("expected %d columns, got %d", len(seedColumns), len(header))
	}
	for i, want := range seedColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return fmt.Errorf("column %d: expected %q, got %q", i+1, want, header[i])
		}
	}
	return nil
}

func parseSeedRow(record []string, ownerID uuid.UUID) (*domain.Product, error) {
	if len(record) != len(seedColumns) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(seedColumns), len(record))
	}

	salePrice, err := domain.ParseMoney(strings.TrimSpace(record[4]))
	if err != nil {
		return nil, fmt.Errorf("sale_price: %w", err)
	}
	costPrice, err := domain.ParseMoney(strings.TrimSpace(record[5]))
	if err != nil {
		return nil, fmt.Errorf("cost_price: %w", err)
	}
	stock, err := strconv.Atoi(strings.TrimSpace(record[6]))
	if err != nil {
		return nil, fmt.Errorf("stock: %w", err)
	}

	product := &domain.Product{
		OwnerID:   ownerID,
		GTIN:      domain.NormalizeGTIN(record[0]),
		Name:      strings.TrimSpace(record[1]),
		Brand:     strings.TrimSpace(record[2]),
		Category:  strings.TrimSpace(record[3]),
		SalePrice: salePrice,
		CostPrice: costPrice,
		Stock:     stock,
	}
	product.PrepareForStorage()
	return product, nil
}

// SaveProducts persists the products in a single transaction. Existing
// (owner, gtin, supplier) slots are left untouched so the seeder is safe to
// re-run.
func (s *CatalogSeeder) SaveProducts(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`
			INSERT INTO products (
				id, owner_id, supplier_id, gtin, name, brand, category,
				image_url, sale_price_cents, cost_price_cents, stock, active,
				created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
			) ON CONFLICT DO NOTHING`,
			p.ID, p.OwnerID, p.SupplierID, p.GTIN, p.Name, p.Brand, p.Category,
			p.ImageURL, int64(p.SalePrice), int64(p.CostPrice), p.Stock, p.Active,
			p.CreatedAt, p.UpdatedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)

	inserted := 0
	for range products {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to insert product: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch results: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("saved products to database",
		slog.Int("inserted", inserted),
		slog.Int("skipped", len(products)-inserted))
	return inserted, nil
}

// demoCatalog is the built-in seed used when no -file is given. Prices are
// plausible grocery values; two entries share a GTIN to exercise the
// cheapest-first resolution path.
const demoCatalog = `gtin,name,brand,category,sale_price,cost_price,stock
7894900011517,Refrigerante Cola 2L,Premium Cola,beverages,9.99,6.50,48
7891000100103,Leite Condensado 395g,Milky Way,grocery,7.49,5.10,36
7891000053508,Achocolatado em Po 400g,ChocoMax,grocery,8.90,5.95,24
7896036090244,Arroz Branco Tipo 1 5kg,Graos do Sul,grocery,24.90,18.20,60
7896005800057,Feijao Carioca 1kg,Graos do Sul,grocery,8.49,5.80,52
7891910000197,Acucar Refinado 1kg,Doce Vida,grocery,4.79,3.10,80
7896004000021,Oleo de Soja 900ml,Campo Verde,grocery,7.99,5.60,44
7891149101023,Cerveja Pilsen Lata 350ml,Cervejaria Aurora,beverages,3.99,2.40,120
7891149101023,Cerveja Pilsen Lata 350ml,Cervejaria Aurora,beverages,3.49,2.10,60
7896102500127,Cafe Torrado e Moido 500g,Serra Alta,beverages,16.90,11.80,30
7898357410015,Agua Mineral 1.5L,Fonte Clara,beverages,2.99,1.40,96
78905401,Chiclete Menta,Mastiga,candy,1.50,0.70,200
`

func main() {
	var (
		filePath = flag.String("file", "", "CSV file with seed products (defaults to the built-in demo catalog)")
		ownerArg = flag.String("owner", DemoOwnerID, "Owner UUID the products belong to")
		dryRun   = flag.Bool("dry-run", false, "Parse and validate without touching the database")
		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	var slogLevel slog.Level
	switch *logLevel {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)

	ownerID, err := uuid.Parse(*ownerArg)
	if err != nil {
		logger.Error("invalid owner id", slog.String("owner", *ownerArg))
		os.Exit(1)
	}

	var source io.Reader = strings.NewReader(demoCatalog)
	sourceName := "built-in demo catalog"
	if *filePath != "" {
		f, err := os.Open(*filePath)
		if err != nil {
			logger.Error("failed to open seed file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer f.Close()
		source = f
		sourceName = *filePath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var pool *pgxpool.Pool
	if !*dryRun {
		dbURL := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
			getEnv("DB_USER", "tradebox"),
			getEnv("DB_PASSWORD", "tradebox_dev_2025"),
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_NAME", "tradebox_pos"),
			getEnv("DB_SSL_MODE", "disable"),
		)
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
	}

	seeder := NewCatalogSeeder(pool, logger)

	products, err := seeder.LoadProducts(source, ownerID)
	if err != nil {
		logger.Error("failed to load seed products",
			slog.String("source", sourceName),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *dryRun {
		logger.Info("dry run complete, no changes made",
			slog.String("source", sourceName),
			slog.Int("products", len(products)))
		return
	}

	inserted, err := seeder.SaveProducts(ctx, products)
	if err != nil {
		logger.Error("failed to save products", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seed operation completed",
		slog.String("source", sourceName),
		slog.String("owner_id", ownerID.String()),
		slog.Int("inserted", inserted),
		slog.Int("skipped", len(products)-inserted))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
