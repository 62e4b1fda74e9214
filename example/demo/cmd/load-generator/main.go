package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/AntonStoeckl/tableservice-go/example/products"
	"github.com/AntonStoeckl/tableservice-go/example/shared/config"
	"github.com/AntonStoeckl/tableservice-go/tableservice"
	"github.com/AntonStoeckl/tableservice-go/tableservice/cacheadapters"
	"github.com/AntonStoeckl/tableservice-go/tableservice/oteladapters"
	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
)

const (
	defaultRate            = 30
	defaultInitialProducts = 200
	defaultScenarioWeights = "80,20" // browsing, catalog maintenance

	serviceName = "tableservice-load-generator"
)

type Config struct {
	ConfigFile           string
	Rate                 int
	Duration             time.Duration
	ObservabilityEnabled bool
	InitialProducts      int
	ScenarioWeights      []int
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	dbConfig, err := config.Load(cfg.ConfigFile)
	if err != nil {
		fatal("Failed to load the configuration", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: dbConfig.LogLevel}))
	slog.SetDefault(logger)

	db, dialect, err := config.OpenSQL(ctx, dbConfig)
	if err != nil {
		fatal("Failed to connect to database", err)
	}

	if _, err = db.ExecContext(ctx, products.Schema(dialect)); err != nil {
		fatal("Failed to create the product schema", err)
	}
	_ = db.Close()

	conn, closeDB, err := config.Open(ctx, dbConfig)
	if err != nil {
		fatal("Failed to connect to database", err)
	}
	defer func() { _ = closeDB() }()

	// Initialize observability (if enabled)
	serviceOptions := []sqlengine.Option{
		sqlengine.WithLogger(logger),
		sqlengine.WithBuffer(cacheadapters.NewSyncBuffer()),
		sqlengine.WithSlugCache(cacheadapters.NewSyncSlugCache()),
	}

	var metricsCollector tableservice.MetricsCollector
	var providers *config.ObservabilityProviders
	if cfg.ObservabilityEnabled {
		providers, err = config.NewObservabilityProviders(ctx, serviceName, "dev")
		if err != nil {
			fatal("Failed to create observability providers", err)
		}
		defer func() { _ = providers.Shutdown() }()

		collector := oteladapters.NewMetricsCollector(providers.MeterProvider.Meter(serviceName))
		metricsCollector = collector
		serviceOptions = append(serviceOptions,
			sqlengine.WithMetrics(collector),
			sqlengine.WithTracing(oteladapters.NewTracingCollector(providers.TracerProvider.Tracer(serviceName))),
		)
		slog.Info("Observability enabled: metrics=true, tracing=true")
	}

	service, err := products.NewProductService(conn, nil, products.Setup{}, serviceOptions...)
	if err != nil {
		fatal("Failed to create ProductService", err)
	}

	loadGen := NewLoadGenerator(service, cfg, metricsCollector)

	if err = loadGen.Seed(ctx); err != nil {
		fatal("Failed to seed products", err)
	}

	if cfg.Duration > 0 {
		var stopTimer context.CancelFunc
		ctx, stopTimer = context.WithTimeout(ctx, cfg.Duration)
		defer stopTimer()
	}

	// Start load generation in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := loadGen.Start(ctx); err != nil {
			errChan <- fmt.Errorf("load generator failed: %w", err)
		}
	}()

	slog.Info("Table service load generator started",
		"rate", cfg.Rate, "initial_products", cfg.InitialProducts, "scenario_weights", cfg.ScenarioWeights)
	slog.Info("Press Ctrl+C to stop...")

	// Wait for shutdown signal, error or the end of the run
	select {
	case sig := <-sigChan:
		slog.Info("Received signal, initiating graceful shutdown", "signal", sig.String())
	case err := <-errChan:
		slog.Info("Load generator finished", "reason", err.Error())
	case <-ctx.Done():
	}
	cancel()

	// Give some time for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := loadGen.Stop(shutdownCtx); err != nil {
		slog.Warn("Error during shutdown", "error", err.Error())
	}

	slog.Info("Load generator stopped")
}

func parseFlags() Config {
	var (
		configFile      = flag.String("config", "", "config file (environment: TABLESERVICE_*)")
		rate            = flag.Int("rate", defaultRate, "Requests per second")
		duration        = flag.Duration("duration", 0, "Stop after this duration (0: run until interrupted)")
		observability   = flag.Bool("observability-enabled", false, "Enable OpenTelemetry observability")
		initialProducts = flag.Int("initial-products", defaultInitialProducts, "Number of products to add initially")
		scenarioWeights = flag.String("scenario-weights", defaultScenarioWeights, "Comma-separated weights for browsing,catalog scenarios")
	)

	flag.Parse()

	// Parse scenario weights
	weights, err := parseScenarioWeights(*scenarioWeights)
	if err != nil {
		fatal(fmt.Sprintf("Invalid scenario weights '%s'", *scenarioWeights), err)
	}

	if *rate <= 0 {
		fatal("Invalid rate", fmt.Errorf("rate must be positive, got %d", *rate))
	}

	return Config{
		ConfigFile:           *configFile,
		Rate:                 *rate,
		Duration:             *duration,
		ObservabilityEnabled: *observability,
		InitialProducts:      *initialProducts,
		ScenarioWeights:      weights,
	}
}

func parseScenarioWeights(weightsStr string) ([]int, error) {
	parts := strings.Split(weightsStr, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected 2 weights, got %d", len(parts))
	}

	weights := make([]int, 2)
	total := 0
	for i, part := range parts {
		weight, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weight '%s': %w", part, err)
		}
		if weight < 0 || weight > 100 {
			return nil, fmt.Errorf("weight %d out of range [0, 100]", weight)
		}
		weights[i] = weight
		total += weight
	}

	if total != 100 {
		return nil, fmt.Errorf("weights must sum to 100, got %d", total)
	}

	return weights, nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err.Error())
	os.Exit(1)
}
