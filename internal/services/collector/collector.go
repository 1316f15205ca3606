package collector

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/common"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"github.com/ternarybob/macroscope/internal/models"
	"github.com/ternarybob/macroscope/internal/services/extractor"
	"github.com/ternarybob/macroscope/internal/services/snapshot"
	badgerstore "github.com/ternarybob/macroscope/internal/storage/badger"
)

// Options control a single collection run.
type Options struct {
	SourcesFile  string
	Provider     string // suffixes the record key for non-default providers
	Local        bool   // print the result table instead of persisting
	DryRun       bool   // capture and extract, skip persistence
	SkipTestURLs bool   // drop localhost/test sources, set in production
	Out          io.Writer
}

// BatchResult summarizes one collection run.
type BatchResult struct {
	RunID      string
	Date       string
	Record     *models.DailyRecord
	Sources    int
	Failed     int
	Indicators int
}

// Collector runs batch collection: one screenshot and one extraction per
// source URL, folded into a single daily record.
type Collector struct {
	engine    snapshot.Engine
	extractor *extractor.Service
	storage   interfaces.MacroStorage
	logger    arbor.ILogger
}

// NewCollector creates a batch collector
func NewCollector(engine snapshot.Engine, ext *extractor.Service, storage interfaces.MacroStorage, logger arbor.ILogger) *Collector {
	return &Collector{
		engine:    engine,
		extractor: ext,
		storage:   storage,
		logger:    logger,
	}
}

// Run captures and extracts every source URL and stores the merged daily
// record. A capture failure abandons only that URL; extraction never fails.
// In local or dry-run mode nothing is written.
func (c *Collector) Run(ctx context.Context, opts Options) (*BatchResult, error) {
	runID := common.NewRunID()

	urls, err := ReadSources(opts.SourcesFile)
	if err != nil {
		return nil, err
	}
	if opts.SkipTestURLs {
		kept := urls[:0]
		for _, u := range urls {
			if common.IsTestURL(u) {
				c.logger.Warn().Str("url", u).Str("run_id", runID).Msg("Skipping test URL in production")
				continue
			}
			kept = append(kept, u)
		}
		urls = kept
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("sources file %s contains no URLs", opts.SourcesFile)
	}

	date := time.Now().Format("2006-01-02")
	record := &models.DailyRecord{
		Key:        badgerstore.DailyKey(date, providerSuffix(opts.Provider)),
		Date:       date,
		Timestamp:  time.Now(),
		Provider:   opts.Provider,
		Indicators: map[string]models.IndicatorValue{},
		Validation: &models.ValidationResult{SourcesQueried: len(urls)},
	}

	c.logger.Info().
		Str("run_id", runID).
		Str("key", record.Key).
		Int("sources", len(urls)).
		Msg("Starting collection run")

	for _, url := range urls {
		c.collectOne(ctx, url, record)
	}

	result := &BatchResult{
		RunID:      runID,
		Date:       date,
		Record:     record,
		Sources:    len(urls),
		Failed:     record.Validation.SourcesFailed,
		Indicators: len(record.Indicators),
	}

	if opts.Local {
		c.printTable(record, opts.Out)
	}

	if opts.Local || opts.DryRun {
		c.logger.Info().Str("run_id", runID).Msg("Skipping persistence (local/dry-run mode)")
		return result, nil
	}

	if err := c.storage.SaveDaily(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist collection run: %w", err)
	}

	c.logger.Info().
		Str("run_id", runID).
		Int("indicators", result.Indicators).
		Int("failed_sources", result.Failed).
		Msg("Collection run completed")

	return result, nil
}

// collectOne captures and extracts a single source URL into the record.
func (c *Collector) collectOne(ctx context.Context, url string, record *models.DailyRecord) {
	label := common.SourceLabel(url)

	imagePath, err := c.engine.Capture(ctx, url, label)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Capture failed, skipping source")
		record.Validation.SourcesFailed++
		record.Validation.Warnings = append(record.Validation.Warnings, fmt.Sprintf("%s: %v", label, err))
		return
	}
	defer func() {
		if err := os.Remove(imagePath); err != nil {
			c.logger.Debug().Err(err).Str("path", imagePath).Msg("Failed to delete screenshot file")
		}
	}()

	extraction := c.extractor.Extract(ctx, imagePath, label)
	for _, indicator := range extraction.Indicators {
		key := indicator.Key()
		if key == "" {
			continue
		}
		// First source to report an indicator wins for the day.
		if _, exists := record.Indicators[key]; exists {
			continue
		}
		record.Indicators[key] = models.IndicatorValue{
			Value:  indicator.Value,
			Trend:  indicator.Trend,
			Date:   indicator.Date,
			Source: label,
		}
	}
}

// printTable renders the collected indicators for local inspection.
func (c *Collector) printTable(record *models.DailyRecord, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDICATOR\tVALUE\tTREND\tSOURCE")
	for key, iv := range record.Indicators {
		trend := string(iv.Trend)
		if trend == "" {
			trend = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", key, iv.Value, trend, iv.Source)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d indicators from %d sources (%d failed)\n",
		len(record.Indicators), record.Validation.SourcesQueried, record.Validation.SourcesFailed)
}

// providerSuffix returns the record key suffix for a provider. The default
// provider writes the bare date key so older readers keep working.
func providerSuffix(provider string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" || p == "gemini" {
		return ""
	}
	return p
}
