package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"github.com/ternarybob/macroscope/internal/models"
	"github.com/ternarybob/macroscope/internal/services/history"
)

// GenerationError means the model produced nothing usable. Unlike
// extraction, this aborts the run: an empty analysis must never be written.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	return "analysis generation failed: " + e.Reason
}

// Options control a single generation run.
type Options struct {
	WindowDays int
	Topic      string
	DryRun     bool // build the prompt and call the model, skip all writes
}

// Generator produces the written macro analysis from a historical window and
// persists it next to the data it describes.
type Generator struct {
	resolver        *history.Resolver
	llm             interfaces.LLMService
	macroStorage    interfaces.MacroStorage
	analysisStorage interfaces.AnalysisStorage
	logger          arbor.ILogger
}

// NewGenerator creates an analysis generator
func NewGenerator(
	resolver *history.Resolver,
	llm interfaces.LLMService,
	macroStorage interfaces.MacroStorage,
	analysisStorage interfaces.AnalysisStorage,
	logger arbor.ILogger,
) *Generator {
	return &Generator{
		resolver:        resolver,
		llm:             llm,
		macroStorage:    macroStorage,
		analysisStorage: analysisStorage,
		logger:          logger,
	}
}

// Generate resolves the historical window, asks the model for an analysis,
// and merges the text into the anchor record, the LATEST pointer, and the
// topic document. Persistence failures are logged but do not fail the run;
// a partial write leaves the store in a usable state.
func (g *Generator) Generate(ctx context.Context, opts Options) (*models.AnalysisResult, error) {
	window, err := g.resolver.ResolveWindow(ctx, opts.WindowDays)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(window, g.logger)

	text, err := g.llm.GenerateText(ctx, prompt)
	if err != nil {
		return nil, &GenerationError{Reason: err.Error()}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &GenerationError{Reason: "model returned empty analysis"}
	}

	result := &models.AnalysisResult{
		Text:        text,
		Model:       g.llm.Model(),
		WindowDays:  opts.WindowDays,
		RecordCount: len(window.Records),
		GeneratedAt: time.Now(),
	}

	if opts.DryRun {
		g.logger.Info().Int("length", len(text)).Msg("Dry run, skipping analysis persistence")
		return result, nil
	}

	g.persist(ctx, window, result, opts.Topic)
	return result, nil
}

// persist merges the analysis into the record keyed by the window's anchor
// date, the LATEST pointer, and the topic document. Each write failure is
// logged and skipped.
func (g *Generator) persist(ctx context.Context, window *history.Window, result *models.AnalysisResult, topic string) {
	if err := g.macroStorage.MergeAnalysis(ctx, window.MostRecentDate, result.Text); err != nil {
		g.logger.Warn().Err(err).Str("key", window.MostRecentDate).Msg("Failed to merge analysis into daily record")
	}
	if err := g.macroStorage.MergeAnalysis(ctx, models.LatestRecordKey, result.Text); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to merge analysis into latest pointer")
	}

	if topic == "" {
		topic = "macro"
	}
	err := g.analysisStorage.SaveAnalysis(ctx, &models.TopicAnalysis{
		Topic:       topic,
		Text:        result.Text,
		Model:       result.Model,
		GeneratedAt: result.GeneratedAt,
	})
	if err != nil {
		g.logger.Warn().Err(err).Str("topic", topic).Msg("Failed to save analysis document")
	}
}

// BuildPrompt renders the historical window as dated numeric readings with
// an instruction block. Only values that parse as numbers make it in; a
// reading like "no data" is logged and skipped rather than fed to the model.
func BuildPrompt(window *history.Window, logger arbor.ILogger) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a macroeconomic analyst. Below are daily readings of US economic indicators covering the %d days up to %s.\n\n",
		window.Days, window.MostRecentDate)

	for _, record := range window.Records {
		readings := history.NormalizeIndicators(record)
		keys := make([]string, 0, len(readings))
		for key := range readings {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			value, ok := numericValue(readings[key])
			if !ok {
				logger.Warn().
					Str("key", key).
					Str("value", readings[key]).
					Str("date", record.Date).
					Msg("Skipping non-numeric reading in analysis prompt")
				continue
			}
			fmt.Fprintf(&b, "- %s (%s): %s\n", key, record.Date, value)
		}
	}

	b.WriteString("\nWrite a concise analysis of the current macroeconomic situation based on these readings. " +
		"Cover the direction of inflation, employment, growth, and monetary policy, and call out any notable " +
		"divergences or turning points in the data. Use plain prose in markdown, no preamble.")

	return b.String()
}

var numberPattern = regexp.MustCompile(`-?\d+(?:,\d{3})*(?:\.\d+)?`)

// numericValue extracts the numeric part of a reading. "5.25%" and "$20.8T"
// pass; text without a number does not.
func numericValue(raw string) (string, bool) {
	m := numberPattern.FindString(raw)
	if m == "" {
		return "", false
	}
	cleaned := strings.ReplaceAll(m, ",", "")
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return "", false
	}
	return cleaned, true
}
