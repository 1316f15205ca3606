// -----------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026 5:24:37 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/app"
	"github.com/ternarybob/macroscope/internal/common"
	"github.com/ternarybob/macroscope/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	sourcesFile  = flag.String("sources", "", "Data sources file path (overrides config)")
	windowDays   = flag.Int("days", 0, "Analysis window in days (overrides config)")
	localMode    = flag.Bool("local", false, "Print collected indicators instead of persisting")
	dryRun       = flag.Bool("dry-run", false, "Run the pipeline without writing to storage")
	onlyAnalysis = flag.Bool("only-analysis", false, "Skip collection and regenerate the analysis only")
	serveMode    = flag.Bool("serve", false, "Run the HTTP server with the collection schedule")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Macroscope version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("macroscope.toml"); err == nil {
			configFiles = append(configFiles, "macroscope.toml")
		} else if _, err := os.Stat("deployments/local/macroscope.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/macroscope.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, common.FlagOverrides{
		Port:        finalPort,
		Host:        *serverHost,
		SourcesFile: *sourcesFile,
		WindowDays:  *windowDays,
	})

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())
	common.InstallCrashHandler("./logs")
	defer common.RecoverWithCrashFile()

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("sources", config.Sources.File).
		Str("snapshot_engine", config.Snapshot.Engine).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	if *serveMode {
		runServer(application)
		return
	}
	runOnce(application)
}

// runOnce executes a single collection pass followed by analysis generation
// and exits. This is the default mode for cron-less deployments.
func runOnce(application *app.App) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("Interrupt received, cancelling run")
		cancel()
	}()

	if !*onlyAnalysis {
		result, err := application.RunCollection(ctx, *localMode, *dryRun)
		if err != nil {
			logger.Fatal().Err(err).Msg("Collection run failed")
		}
		logger.Info().
			Str("run_id", result.RunID).
			Str("date", result.Date).
			Int("sources", result.Sources).
			Int("failed", result.Failed).
			Int("indicators", result.Indicators).
			Msg("Collection complete")

		// Local mode inspects extraction output only; nothing was stored,
		// so there is no window to analyze.
		if *localMode {
			return
		}
	}

	if err := application.RunAnalysis(ctx, *dryRun); err != nil {
		logger.Fatal().Err(err).Msg("Analysis generation failed")
	}
	logger.Info().Msg("Analysis complete")
}

// runServer starts the HTTP API and, when enabled, the collection schedule,
// then blocks until an interrupt.
func runServer(application *app.App) {
	if err := application.StartSchedule(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start collection schedule")
	}

	srv := server.New(application)

	common.SafeGo(logger, "http-server", func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	})

	// Give goroutine a moment to start
	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
