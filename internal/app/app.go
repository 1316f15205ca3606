// -----------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026 5:02:41 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/common"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"github.com/ternarybob/macroscope/internal/services/analysis"
	"github.com/ternarybob/macroscope/internal/services/collector"
	"github.com/ternarybob/macroscope/internal/services/extractor"
	"github.com/ternarybob/macroscope/internal/services/history"
	"github.com/ternarybob/macroscope/internal/services/llm"
	"github.com/ternarybob/macroscope/internal/services/snapshot"
	badgerstore "github.com/ternarybob/macroscope/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc

	db              *badgerstore.BadgerDB
	MacroStorage    interfaces.MacroStorage
	AnalysisStorage interfaces.AnalysisStorage

	LLM        *llm.ProviderFactory
	Engine     snapshot.Engine
	Supervisor *snapshot.Supervisor
	Extractor  *extractor.Service
	Resolver   *history.Resolver
	Collector  *collector.Collector
	Generator  *analysis.Generator

	scheduler *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	app.ctx, app.cancelCtx = context.WithCancel(context.Background())

	db, err := badgerstore.NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db
	app.MacroStorage = badgerstore.NewMacroStorage(db, logger)
	app.AnalysisStorage = badgerstore.NewAnalysisStorage(db, logger)

	app.LLM = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, logger)
	app.Engine = app.buildEngine()
	app.Extractor = extractor.NewService(app.LLM, logger)
	app.Resolver = history.NewResolver(app.MacroStorage, logger)
	app.Collector = collector.NewCollector(app.Engine, app.Extractor, app.MacroStorage, logger)
	app.Generator = analysis.NewGenerator(app.Resolver, app.LLM, app.MacroStorage, app.AnalysisStorage, logger)

	logger.Info().
		Str("snapshot_engine", cfg.Snapshot.Engine).
		Str("default_provider", string(cfg.LLM.DefaultProvider)).
		Msg("Application initialized")

	return app, nil
}

// buildEngine selects the screenshot engine from configuration. The
// microservice engine carries a supervisor so captures can self-heal a
// stopped service; the chromedp engine captures in-process.
func (a *App) buildEngine() snapshot.Engine {
	if a.Config.Snapshot.Engine == "chromedp" {
		return snapshot.NewChromedpEngine(&a.Config.Snapshot, a.Logger)
	}
	a.Supervisor = snapshot.NewSupervisor(&a.Config.Snapshot, a.Logger)
	return snapshot.NewClient(&a.Config.Snapshot, a.Logger, snapshot.WithSupervisor(a.Supervisor))
}

// RunCollection executes one collection pass over the configured sources.
func (a *App) RunCollection(ctx context.Context, local, dryRun bool) (*collector.BatchResult, error) {
	return a.Collector.Run(ctx, collector.Options{
		SourcesFile:  a.Config.Sources.File,
		Provider:     string(a.Config.LLM.DefaultProvider),
		Local:        local,
		DryRun:       dryRun,
		SkipTestURLs: a.Config.IsProduction(),
	})
}

// RunAnalysis generates and persists the historical analysis.
func (a *App) RunAnalysis(ctx context.Context, dryRun bool) error {
	_, err := a.Generator.Generate(ctx, analysis.Options{
		WindowDays: a.Config.Analysis.WindowDays,
		Topic:      a.Config.Analysis.Topic,
		DryRun:     dryRun,
	})
	return err
}

// StartSchedule starts the cron scheduler when schedule.enabled is set.
// Each scheduled run collects from all sources and then regenerates the
// analysis; a failed collection still attempts the analysis so stale data
// keeps getting summarized.
func (a *App) StartSchedule() error {
	if !a.Config.Schedule.Enabled {
		return nil
	}

	a.scheduler = cron.New()
	_, err := a.scheduler.AddFunc(a.Config.Schedule.Cron, func() {
		a.Logger.Info().Str("cron", a.Config.Schedule.Cron).Msg("Scheduled collection starting")
		if _, err := a.RunCollection(a.ctx, false, false); err != nil {
			a.Logger.Error().Err(err).Msg("Scheduled collection failed")
		}
		if err := a.RunAnalysis(a.ctx, false); err != nil {
			a.Logger.Error().Err(err).Msg("Scheduled analysis failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register schedule %q: %w", a.Config.Schedule.Cron, err)
	}

	a.scheduler.Start()
	a.Logger.Info().Str("cron", a.Config.Schedule.Cron).Msg("Collection schedule started")
	return nil
}

// Close releases all application resources.
func (a *App) Close() {
	a.cancelCtx()

	if a.scheduler != nil {
		ctx := a.scheduler.Stop()
		<-ctx.Done()
	}
	if a.Supervisor != nil {
		a.Supervisor.Stop()
	}
	if a.LLM != nil {
		if err := a.LLM.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM clients")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
}
