package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	bq "cloud.google.com/go/bigquery"

	"github.com/betterbet/scout-analytics/internal/config"
	bqexec "github.com/betterbet/scout-analytics/internal/infrastructure/warehouse/bigquery"
	"github.com/betterbet/scout-analytics/internal/interfaces/httpapi"
	"github.com/betterbet/scout-analytics/internal/platform/cache"
	"github.com/betterbet/scout-analytics/internal/platform/resilience"
	"github.com/betterbet/scout-analytics/internal/usecase"
	"github.com/betterbet/scout-analytics/internal/warehouse"
)

// NewHTTPServer wires the warehouse data source, the BigQuery executor and
// the analytics services into a configured HTTP server. The returned cleanup
// releases the BigQuery client and must run on shutdown.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*http.Server, func() error, error) {
	ds := warehouse.DataSource{
		ProjectID:         cfg.BigQueryProjectID,
		DatasetID:         cfg.BigQueryDatasetID,
		SchedulePrefix:    cfg.ScheduleTablePrefix,
		EventsPrefix:      cfg.EventsTablePrefix,
		Years:             cfg.WarehouseYears,
		StartTimeFromYear: cfg.StartTimeFromYear,
		ScheduleOverrides: cfg.ScheduleColumnOverrides,
		EventsOverrides:   cfg.EventsColumnOverrides,
	}
	if err := ds.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validate warehouse data source: %w", err)
	}

	client, err := bq.NewClient(ctx, cfg.BigQueryProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create bigquery client: %w", err)
	}
	cleanup := client.Close

	executor := bqexec.NewExecutor(client, ds).WithCircuitBreaker(resilience.CircuitBreakerConfig{
		Enabled:          cfg.WarehouseCircuitEnabled,
		FailureThreshold: cfg.WarehouseCircuitFailures,
		OpenTimeout:      cfg.WarehouseCircuitOpenTime,
		HalfOpenMaxReq:   cfg.WarehouseCircuitHalfOpen,
	})

	var store *cache.Store
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
	}

	schemaValidator := usecase.NewSchemaValidator(ds, executor, cfg.SchemaCheckWorkers)
	if cfg.SchemaCheckEnabled {
		if err := schemaValidator.MustValidate(ctx); err != nil {
			_ = cleanup()
			return nil, nil, fmt.Errorf("startup schema check: %w", err)
		}
		logger.InfoContext(ctx, "startup schema check passed", "years", cfg.WarehouseYears)
	}

	handler := httpapi.NewHandler(
		usecase.NewRankingService(ds, executor),
		usecase.NewCatalogService(ds, executor, store),
		usecase.NewAuditService(ds, executor, int64(cfg.ExpectedMatchesPerSeason)),
		usecase.NewEventsService(ds, executor, int64(cfg.EventSearchDefaultLimit)),
		usecase.NewMatchService(ds, executor),
		schemaValidator,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		_ = cleanup()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, cleanup, nil
}
