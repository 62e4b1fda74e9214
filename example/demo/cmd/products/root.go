package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/tableservice-go/example/products"
	"github.com/AntonStoeckl/tableservice-go/example/shared/config"
	"github.com/AntonStoeckl/tableservice-go/tableservice/cacheadapters"
	"github.com/AntonStoeckl/tableservice-go/tableservice/oteladapters"
	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
)

const (
	serviceName    = "tableservice-products"
	serviceVersion = "dev"
	slugNamespace  = "products"
)

// Global flag values.
var (
	flagConfigFile string
	flagRedisAddr  string
	flagBufferSize int
	flagCurrency   int64
	flagVAT        bool
	flagOnlyActive bool
	flagTelemetry  bool
)

// Set by PersistentPreRunE so all subcommands can use them.
var (
	appConfig config.Config
	logger    *slog.Logger
	providers *config.ObservabilityProviders
)

var rootCmd = &cobra.Command{
	Use:          "products",
	Short:        "Manage products through the table service",
	Version:      serviceVersion,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfigFile)
		if err != nil {
			return err
		}

		appConfig = cfg
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		providers = nil

		if flagTelemetry {
			providers, err = config.NewObservabilityProviders(cmd.Context(), serviceName, serviceVersion)
			if err != nil {
				return err
			}
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if providers == nil {
			return nil
		}

		if err := printTelemetry(cmd.Context(), cmd.ErrOrStderr(), providers); err != nil {
			return err
		}

		return providers.Shutdown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "config file (environment: TABLESERVICE_*)")
	rootCmd.PersistentFlags().StringVar(&flagRedisAddr, "redis-addr", "", "redis address of a shared slug cache")
	rootCmd.PersistentFlags().IntVar(&flagBufferSize, "buffer-size", 0, "bound the result buffer to this many entries (0: unbounded)")
	rootCmd.PersistentFlags().Int64Var(&flagCurrency, "currency", 0, "currency id prices are joined for (0: no prices)")
	rootCmd.PersistentFlags().BoolVar(&flagVAT, "vat", true, "show prices including VAT")
	rootCmd.PersistentFlags().BoolVar(&flagOnlyActive, "only-active", false, "list enabled products with a price only")
	rootCmd.PersistentFlags().BoolVar(&flagTelemetry, "telemetry", false, "print spans and metrics after the command")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(slugInCmd)
	rootCmd.AddCommand(slugOutCmd)
}

// openProductService opens the configured database and creates a ProductService on it.
// The returned function releases everything that was opened.
func openProductService(ctx context.Context) (*products.ProductService, func(), error) {
	conn, closeDB, err := config.Open(ctx, appConfig)
	if err != nil {
		return nil, nil, err
	}

	options, closeOptions, err := serviceOptions()
	if err != nil {
		_ = closeDB()
		return nil, nil, err
	}

	var currency *products.Currency
	if flagCurrency > 0 {
		currency = &products.Currency{ID: flagCurrency, HasVAT: flagVAT}
	}

	service, err := products.NewProductService(conn, currency, products.Setup{OnlyActive: flagOnlyActive}, options...)
	if err != nil {
		closeOptions()
		_ = closeDB()
		return nil, nil, err
	}

	cleanup := func() {
		closeOptions()

		if closeErr := closeDB(); closeErr != nil {
			logger.Warn("closing the database failed", "error", closeErr.Error())
		}
	}

	return service, cleanup, nil
}

func serviceOptions() ([]sqlengine.Option, func(), error) {
	options := []sqlengine.Option{sqlengine.WithLogger(logger)}
	closeOptions := func() {}

	if flagBufferSize > 0 {
		buffer, err := cacheadapters.NewLRUBuffer(flagBufferSize)
		if err != nil {
			return nil, nil, err
		}

		options = append(options, sqlengine.WithBuffer(buffer))
	} else {
		options = append(options, sqlengine.WithBuffer(cacheadapters.NewSyncBuffer()))
	}

	if flagRedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: flagRedisAddr})
		options = append(options, sqlengine.WithSlugCache(cacheadapters.NewRedisSlugCache(client, slugNamespace)))
		closeOptions = func() { _ = client.Close() }
	}

	if providers != nil {
		options = append(options,
			sqlengine.WithMetrics(oteladapters.NewMetricsCollector(providers.MeterProvider.Meter(serviceName))),
			sqlengine.WithTracing(oteladapters.NewTracingCollector(providers.TracerProvider.Tracer(serviceName))),
		)
	}

	return options, closeOptions, nil
}

var errNotFound = errors.New("not found")
