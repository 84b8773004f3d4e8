package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lokenilsson/snwk-stats/internal/competition"
	"github.com/lokenilsson/snwk-stats/internal/config"
	"github.com/lokenilsson/snwk-stats/internal/dashboard"
	"github.com/lokenilsson/snwk-stats/internal/logger"
	"github.com/lokenilsson/snwk-stats/internal/pipeline"
	"github.com/lokenilsson/snwk-stats/internal/scraper"
	"github.com/lokenilsson/snwk-stats/internal/storage"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagDataDir string
	flagVerbose bool

	flagListenAddr string
	flagExportOut  string
)

// NewRootCmd creates the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snwk-stats",
		Short: "Collect and browse SNWK competition results",
		Long: `snwk-stats incrementally collects competition results from the SNWK
results site. Each run discovers the configured years and competition types,
skips competitions already present in the local snapshot history, scrapes the
new ones and appends two timestamped JSON snapshots to the data directory.`,
		SilenceUsage: true,
		RunE:         runCollect,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory for snapshots (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the results dashboard",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&flagListenAddr, "listen", "", "Listen address (overrides config)")
	cmd.AddCommand(serveCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write flattened result rows to a JSON file",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&flagExportOut, "out", "o", "snwk_flat_rows.json", "Output file")
	cmd.AddCommand(exportCmd)

	return cmd
}

// setup loads configuration and wires the logger and storage shared by all
// commands.
func setup() (*config.Config, *logger.Logger, *storage.Storage, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}

	level := logger.LevelInfo
	if flagVerbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, os.Stdout)
	logger.SetDefault(log)

	store, err := storage.New(cfg.DataDir, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing storage: %w", err)
	}

	return cfg, log, store, nil
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, log, store, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("starting collection run", logger.Fields{
		"years":    cfg.Years,
		"types":    cfg.Types,
		"data_dir": store.DataDir(),
	})

	runner := pipeline.NewRunner(cfg, scraper.New(cfg, log), store, log)
	stats, err := runner.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("collection interrupted", logger.Fields{
				"fetched": stats.Fetched, "failed": stats.Failed,
			})
			return nil
		}
		return err
	}

	if stats.Failed > 0 {
		// Failed items stay out of the dedup index and are retried on the
		// next run; signal the operator anyway.
		return fmt.Errorf("collection finished with %d failed items", stats.Failed)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, store, err := setup()
	if err != nil {
		return err
	}
	if flagListenAddr != "" {
		cfg.ListenAddr = flagListenAddr
	}

	srv, err := dashboard.New(store, log)
	if err != nil {
		return fmt.Errorf("initializing dashboard: %w", err)
	}

	log.Info("starting dashboard", logger.Fields{"addr": cfg.ListenAddr})
	return srv.Listen(cfg.ListenAddr)
}

func runExport(cmd *cobra.Command, args []string) error {
	_, log, store, err := setup()
	if err != nil {
		return err
	}

	records, err := store.LoadResults()
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}

	rows := make([]competition.FlatRow, 0)
	for _, rec := range records {
		rows = append(rows, competition.Flatten(rec)...)
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}
	if err := os.WriteFile(flagExportOut, data, 0644); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}

	log.Info("export written", logger.Fields{
		"path":         flagExportOut,
		"competitions": len(records),
		"rows":         len(rows),
	})
	return nil
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
