package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/voxar-platform/spatialmetrics/pkg/config"
	"github.com/voxar-platform/spatialmetrics/pkg/metrics"
	"github.com/voxar-platform/spatialmetrics/pkg/server"
	"github.com/voxar-platform/spatialmetrics/pkg/telemetry"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	httpPort   int

	// Build info (set by build system)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "spatialmetricsd",
		Short: "Spatial platform metrics daemon",
		Long: `spatialmetricsd hosts the in-process metrics aggregation engine and
exposes its state to external scrapers: Prometheus exposition text on the
metrics path, a JSON snapshot, and a health probe.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		RunE:    runDaemon,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&logFormat, "log-format", "f", "", "log format (json, console)")
	rootCmd.PersistentFlags().IntVarP(&httpPort, "port", "p", 0, "HTTP server port")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flag overrides.
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	logger, err := setupLogging(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	logger.Info().
		Str("version", version).
		Dur("retention_window", cfg.Metrics.RetentionWindow).
		Dur("sweep_interval", cfg.Metrics.SweepInterval).
		Int("sample_cap", cfg.Metrics.SampleCap).
		Msg("Starting spatialmetricsd")

	shutdownTracing, err := telemetry.Setup(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}

	engine := metrics.NewEngine(cfg.Metrics)
	engine.SetLogger(logger)
	engine.StartRetentionLoop(cfg.Metrics.SweepInterval)
	defer engine.StopRetentionLoop()

	srv := server.New(cfg.Server, engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
		select {
		case <-time.After(10 * time.Second):
			logger.Warn().Msg("Graceful shutdown timeout, forcing exit")
		case err := <-errCh:
			if err != nil {
				logger.Error().Err(err).Msg("Server shutdown with error")
			}
		}
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("Server error")
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Tracing shutdown failed")
	}

	logger.Info().Msg("Shutdown complete")
	return nil
}

func setupLogging(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var output *os.File
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
	} else {
		output = os.Stderr
	}

	var logger zerolog.Logger
	switch cfg.Format {
	case "console":
		logger = log.Output(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339})
	default:
		logger = zerolog.New(output).With().Timestamp().Logger()
	}
	log.Logger = logger
	return logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Spatial Metrics Daemon\n")
			fmt.Printf("Version: %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
			fmt.Printf("Built: %s\n", date)
		},
	}
}

func newConfigCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if outputPath == "" {
				outputPath = "spatialmetricsd.yaml"
			}
			if err := cfg.SaveConfig(outputPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Printf("Generated default configuration: %s\n", outputPath)
			return nil
		},
	}
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Printf("Configuration is valid\n")
			fmt.Printf("Retention window: %s\n", cfg.Metrics.RetentionWindow)
			fmt.Printf("Sweep interval: %s\n", cfg.Metrics.SweepInterval)
			fmt.Printf("Sample cap: %d\n", cfg.Metrics.SampleCap)
			fmt.Printf("Listen: %s:%d%s\n", cfg.Server.Address, cfg.Server.Port, cfg.Server.MetricsPath)
			return nil
		},
	}

	cmd.AddCommand(generateCmd)
	cmd.AddCommand(validateCmd)
	return cmd
}
