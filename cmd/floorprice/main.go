// Package main provides the floorprice command line tool.
//
//	floorprice estimate   run the estimator over the configured trade source
//	floorprice import     load a trades CSV into the configured database source
//	floorprice migrate    apply embedded PostgreSQL / ClickHouse migrations
//	floorprice report     render a persisted run to CSV and Markdown
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nft-floor-lab/internal/config"
	"nft-floor-lab/internal/logging"
	"nft-floor-lab/internal/observability"
	"nft-floor-lab/internal/orchestrator"
	"nft-floor-lab/internal/reporting"
	"nft-floor-lab/internal/storage/csvfile"
)

const version = "0.1.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "floorprice",
		Short:         "Estimate NFT collection floor prices from trade history",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addStorageFlags(root.PersistentFlags())

	root.AddCommand(newEstimateCmd(), newImportCmd(), newMigrateCmd(), newReportCmd())
	return root
}

// setup loads and validates the configuration and builds the logger.
// Nothing touches a data source before this succeeds.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the floor price of every collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			return runEstimate(cmd.Context(), cfg, logger)
		},
	}
	addEstimationFlags(cmd.Flags())
	cmd.Flags().String(flagOutputDir, "", "directory for floor_prices.csv and FLOOR_PRICE_REPORT.md")
	return cmd
}

func runEstimate(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	metrics := observability.NewMetrics("", nil)
	if cfg.Metrics.Addr != "" {
		stop := startMetricsServer(cfg.Metrics.Addr, metrics, logger)
		defer stop()
	}

	b := newBackends(cfg.Storage, logging.Component(logger, "storage"))
	defer b.Close()

	if cfg.Storage.Migrate {
		if err := b.migrate(ctx); err != nil {
			return err
		}
	}

	source, err := b.tradeSource(ctx)
	if err != nil {
		return err
	}
	sink, err := b.floorPriceStore(ctx)
	if err != nil {
		return err
	}

	orch := orchestrator.New(orchestrator.Options{
		Source:     source,
		Estimation: cfg.Estimation,
		Sink:       sink,
		SinkName:   cfg.Storage.Sink,
		ReportDir:  cfg.Report.OutputDir,
		Logger:     logger,
		Metrics:    metrics,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s completed:\n", result.RunID)
	fmt.Printf("  Trades loaded: %d (kept %d)\n", result.TradesLoaded, result.Filter.Kept)
	fmt.Printf("  Collections estimated: %d\n", len(result.Estimates))
	fmt.Printf("  Collections skipped: %d\n", len(result.Failures))
	for _, path := range result.ReportFiles {
		fmt.Printf("  - %s\n", path)
	}
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Load the trades CSV (--csv-path) into the configured --source database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.Source == config.BackendCSV {
				return fmt.Errorf("%w: import needs a database source, got %q", config.ErrInvalidConfig, cfg.Storage.Source)
			}
			if cfg.Storage.CSVPath == "" {
				return fmt.Errorf("%w: import needs --%s", config.ErrInvalidConfig, flagCSVPath)
			}

			ctx := cmd.Context()
			b := newBackends(cfg.Storage, logger)
			defer b.Close()

			trades, err := csvfile.NewSource(cfg.Storage.CSVPath).LoadTrades(ctx)
			if err != nil {
				return err
			}
			store, err := b.tradeStore(ctx)
			if err != nil {
				return err
			}
			if err := store.InsertBulk(ctx, trades); err != nil {
				return fmt.Errorf("import trades: %w", err)
			}

			logger.Info().
				Str("source", cfg.Storage.Source).
				Str("csv_path", cfg.Storage.CSVPath).
				Int("trades", len(trades)).
				Msg("trades imported")
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply migrations to the PostgreSQL / ClickHouse backends in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			b := newBackends(cfg.Storage, logger)
			defer b.Close()

			if !b.uses(config.BackendPostgres) && !b.uses(config.BackendClickhouse) {
				logger.Warn().Msg("no database backend configured, nothing to migrate")
				return nil
			}
			return b.migrate(cmd.Context())
		},
	}
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a persisted run from the configured --sink",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.Sink != config.BackendPostgres && cfg.Storage.Sink != config.BackendClickhouse {
				return fmt.Errorf("%w: report needs a database sink, got %q", config.ErrInvalidConfig, cfg.Storage.Sink)
			}
			runID, err := cmd.Flags().GetString(flagRunID)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			b := newBackends(cfg.Storage, logger)
			defer b.Close()

			store, err := b.floorPriceStore(ctx)
			if err != nil {
				return err
			}
			report, err := reporting.NewGenerator(store).Generate(ctx, runID)
			if err != nil {
				return err
			}

			if cfg.Report.OutputDir == "" {
				fmt.Print(reporting.RenderMarkdown(report))
				return nil
			}
			paths, err := reporting.WriteFiles(cfg.Report.OutputDir, report)
			if err != nil {
				return err
			}
			logger.Info().Strs("files", paths).Msg("report written")
			return nil
		},
	}
	cmd.Flags().String(flagRunID, "", "run identifier to render")
	cmd.Flags().String(flagOutputDir, "", "write files here instead of printing Markdown")
	_ = cmd.MarkFlagRequired(flagRunID)
	return cmd
}

// startMetricsServer serves /metrics and /health until the returned stop is called.
func startMetricsServer(addr string, metrics *observability.Metrics, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
