package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"autoriven/scraper/internal/config"
	"autoriven/scraper/internal/container"
	"autoriven/scraper/internal/metrics"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scraper",
		Short: "Category tree and product scraper for the parts catalog",
		Long: `scraper discovers the marketplace's category tree below a root category and
scrapes the offers listed under its leaf categories.

Configuration is read from config.yaml (or --config) and SCRAPER_*, CRAWL_*,
PRODUCTS_*, DATABASE_*, REDIS_* environment variables. A .env file is loaded
when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to a config file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewCategoriesCmd())
	cmd.AddCommand(NewProductsCmd())
	cmd.AddCommand(NewRetryCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides, configures logging and
// metrics, and builds the container. The caller closes the container.
func setup(cmd *cobra.Command, override func(cfg *config.Config)) (*container.Container, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	if err := configureLogging(cfg.Log, verbose); err != nil {
		return nil, err
	}
	log.Infof("🚀 Starting scraper %s", cmd.Name())
	log.Info("Configuration loaded successfully")

	if cfg.Metrics.Addr != "" {
		metrics.Serve(cmd.Context(), cfg.Metrics.Addr)
	}

	app, err := container.New(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return app, nil
}

func configureLogging(cfg config.LogConfig, verbose bool) error {
	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
