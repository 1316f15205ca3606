package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"github.com/ternarybob/macroscope/internal/models"
	"github.com/ternarybob/macroscope/internal/services/extractor"
)

// fakeEngine writes a real temp file per capture so the collector's cleanup
// path runs, and fails for configured labels.
type fakeEngine struct {
	t        *testing.T
	failFor  map[string]bool
	captured []string
	files    []string
}

func (f *fakeEngine) Capture(ctx context.Context, url string, label string) (string, error) {
	f.captured = append(f.captured, label)
	if f.failFor[label] {
		return "", errors.New("service unreachable")
	}
	path := filepath.Join(f.t.TempDir(), label+".png")
	require.NoError(f.t, os.WriteFile(path, []byte{0x89, 0x50}, 0644))
	f.files = append(f.files, path)
	return path, nil
}

// scriptedLLM returns one canned vision response for every capture.
type scriptedLLM struct {
	next string
}

func (s *scriptedLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *scriptedLLM) GenerateVision(ctx context.Context, req interfaces.VisionRequest) (string, error) {
	return s.next, nil
}

func (s *scriptedLLM) Model() string { return "fake-model" }

type fakeStore struct {
	saved []*models.DailyRecord
}

func (f *fakeStore) SaveDaily(ctx context.Context, r *models.DailyRecord) error {
	f.saved = append(f.saved, r)
	return nil
}
func (f *fakeStore) GetDaily(ctx context.Context, key string) (*models.DailyRecord, error) {
	return nil, interfaces.ErrNotFound
}
func (f *fakeStore) FindByDate(ctx context.Context, date string) (*models.DailyRecord, error) {
	return nil, interfaces.ErrNotFound
}
func (f *fakeStore) Latest(ctx context.Context) (*models.DailyRecord, error) {
	return nil, interfaces.ErrNotFound
}
func (f *fakeStore) MostRecent(ctx context.Context) (*models.DailyRecord, error) {
	return nil, interfaces.ErrNotFound
}
func (f *fakeStore) MergeAnalysis(ctx context.Context, key string, analysis string) error {
	return nil
}
func (f *fakeStore) Count(ctx context.Context) (int, error) { return len(f.saved), nil }

func writeSources(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datasources.txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func TestReadSources(t *testing.T) {
	path := writeSources(t, `# macro data sources
https://www.tradingeconomics.com/united-states/gdp

https://fred.stlouisfed.org/series/FEDFUNDS
# commented out:
# https://example.com/ignored
`)

	urls, err := ReadSources(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.tradingeconomics.com/united-states/gdp",
		"https://fred.stlouisfed.org/series/FEDFUNDS",
	}, urls)
}

func TestReadSourcesMissingFile(t *testing.T) {
	_, err := ReadSources(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestRunCollectsAndPersists(t *testing.T) {
	engine := &fakeEngine{t: t}
	llm := &scriptedLLM{next: "```json\n" + `[{"name": "Fed Funds Rate", "value": "5.25%", "trend": "stable"}]` + "\n```"}
	store := &fakeStore{}
	logger := arbor.NewLogger()
	c := NewCollector(engine, extractor.NewService(llm, logger), store, logger)

	sources := writeSources(t, "https://fred.stlouisfed.org/series/FEDFUNDS\n")
	result, err := c.Run(context.Background(), Options{SourcesFile: sources})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sources)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Indicators)
	assert.True(t, len(result.RunID) > 4)

	require.Len(t, store.saved, 1)
	record := store.saved[0]
	assert.Equal(t, record.Date, record.Key) // default provider writes the bare date key
	iv := record.Indicators["fed_funds_rate"]
	assert.Equal(t, "5.25%", iv.Value)
	assert.Equal(t, models.TrendStable, iv.Trend)
	assert.Equal(t, "fred.stlouisfed.org", iv.Source)

	// Screenshot temp files are deleted after extraction.
	for _, path := range engine.files {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "expected %s to be deleted", path)
	}
}

func TestRunCaptureFailureAbortsSingleURL(t *testing.T) {
	engine := &fakeEngine{t: t, failFor: map[string]bool{"fred.stlouisfed.org": true}}
	llm := &scriptedLLM{next: `[{"name": "PMI", "value": "52.3"}]`}
	store := &fakeStore{}
	logger := arbor.NewLogger()
	c := NewCollector(engine, extractor.NewService(llm, logger), store, logger)

	sources := writeSources(t, "https://fred.stlouisfed.org/series/FEDFUNDS\nhttps://www.ismworld.org/pmi\n")
	result, err := c.Run(context.Background(), Options{SourcesFile: sources})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sources)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Indicators)
	require.Len(t, store.saved, 1)
	assert.Contains(t, store.saved[0].Validation.Warnings[0], "fred.stlouisfed.org")
}

func TestRunSkipsTestURLsInProduction(t *testing.T) {
	engine := &fakeEngine{t: t}
	llm := &scriptedLLM{next: `[{"name": "PMI", "value": "52.3"}]`}
	store := &fakeStore{}
	logger := arbor.NewLogger()
	c := NewCollector(engine, extractor.NewService(llm, logger), store, logger)

	sources := writeSources(t, "http://localhost:8080/fixture\nhttps://www.ismworld.org/pmi\n")
	result, err := c.Run(context.Background(), Options{SourcesFile: sources, SkipTestURLs: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sources)
	assert.Equal(t, []string{"ismworld.org"}, engine.captured)
}

func TestRunOnlyTestURLsInProduction(t *testing.T) {
	c := NewCollector(&fakeEngine{t: t}, extractor.NewService(&scriptedLLM{}, arbor.NewLogger()), &fakeStore{}, arbor.NewLogger())

	sources := writeSources(t, "http://127.0.0.1:9999/fixture\n")
	_, err := c.Run(context.Background(), Options{SourcesFile: sources, SkipTestURLs: true})
	assert.Error(t, err)
}

func TestRunEmptySources(t *testing.T) {
	c := NewCollector(&fakeEngine{t: t}, extractor.NewService(&scriptedLLM{}, arbor.NewLogger()), &fakeStore{}, arbor.NewLogger())

	sources := writeSources(t, "# only comments\n")
	_, err := c.Run(context.Background(), Options{SourcesFile: sources})
	assert.Error(t, err)
}

func TestRunLocalModeSkipsPersistence(t *testing.T) {
	engine := &fakeEngine{t: t}
	llm := &scriptedLLM{next: `[{"name": "CPI YoY", "value": "3.1%", "trend": "down"}]`}
	store := &fakeStore{}
	logger := arbor.NewLogger()
	c := NewCollector(engine, extractor.NewService(llm, logger), store, logger)

	var out bytes.Buffer
	sources := writeSources(t, "https://www.bls.gov/cpi\n")
	result, err := c.Run(context.Background(), Options{SourcesFile: sources, Local: true, Out: &out})
	require.NoError(t, err)

	assert.Empty(t, store.saved)
	assert.Equal(t, 1, result.Indicators)
	assert.Contains(t, out.String(), "cpi_yoy")
	assert.Contains(t, out.String(), "3.1%")
	assert.Contains(t, out.String(), "1 indicators from 1 sources (0 failed)")
}

func TestRunDryRunSkipsPersistence(t *testing.T) {
	engine := &fakeEngine{t: t}
	llm := &scriptedLLM{next: `[{"name": "PMI", "value": "52.3"}]`}
	store := &fakeStore{}
	logger := arbor.NewLogger()
	c := NewCollector(engine, extractor.NewService(llm, logger), store, logger)

	sources := writeSources(t, "https://www.ismworld.org/pmi\n")
	_, err := c.Run(context.Background(), Options{SourcesFile: sources, DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, store.saved)
}

func TestRunProviderSuffixedKey(t *testing.T) {
	engine := &fakeEngine{t: t}
	llm := &scriptedLLM{next: `[{"name": "PMI", "value": "52.3"}]`}
	store := &fakeStore{}
	logger := arbor.NewLogger()
	c := NewCollector(engine, extractor.NewService(llm, logger), store, logger)

	sources := writeSources(t, "https://www.ismworld.org/pmi\n")
	result, err := c.Run(context.Background(), Options{SourcesFile: sources, Provider: "claude"})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("%s_CLAUDE", result.Date), result.Record.Key)
	assert.Equal(t, "claude", result.Record.Provider)
}

func TestProviderSuffix(t *testing.T) {
	assert.Equal(t, "", providerSuffix(""))
	assert.Equal(t, "", providerSuffix("gemini"))
	assert.Equal(t, "claude", providerSuffix("Claude"))
}
