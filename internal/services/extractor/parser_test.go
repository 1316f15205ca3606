package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/macroscope/internal/models"
)

func TestParseIndicatorsFencedJSON(t *testing.T) {
	response := "Here are the indicators I can see:\n" +
		"```json\n" +
		`[{"name": "Fed Funds Rate", "value": "5.25%", "trend": "stable", "date": "2026-08-27"},` +
		` {"name": "CPI YoY", "value": "3.1%", "trend": "down"}]` +
		"\n```\nLet me know if you need more detail."

	indicators, mode := ParseIndicators(response)
	assert.Equal(t, ModeParsed, mode)
	require.Len(t, indicators, 2)

	assert.Equal(t, "Fed Funds Rate", indicators[0].Name)
	assert.Equal(t, "5.25%", indicators[0].Value)
	assert.Equal(t, models.TrendStable, indicators[0].Trend)
	assert.Equal(t, "2026-08-27", indicators[0].Date)
	assert.Equal(t, "fed_funds_rate", indicators[0].Key())

	assert.Equal(t, "cpi_yoy", indicators[1].Key())
	assert.Equal(t, models.TrendDown, indicators[1].Trend)
}

func TestParseIndicatorsBareArray(t *testing.T) {
	response := `The page shows: [{"name": "PMI", "value": 52.3}] as of today.`

	indicators, mode := ParseIndicators(response)
	assert.Equal(t, ModeParsed, mode)
	require.Len(t, indicators, 1)
	assert.Equal(t, "PMI", indicators[0].Name)
	assert.Equal(t, "52.3", indicators[0].Value) // numeric value stringified
}

func TestParseIndicatorsWholeTextJSON(t *testing.T) {
	response := `[{"name": "Unemployment", "value": "4.2%", "trend": "↑"}]`

	indicators, mode := ParseIndicators(response)
	assert.Equal(t, ModeParsed, mode)
	require.Len(t, indicators, 1)
	assert.Equal(t, models.TrendUp, indicators[0].Trend)
}

func TestParseIndicatorsPlaceholdersForMissingFields(t *testing.T) {
	response := `[{"name": "", "value": "1%"}, {"name": "GDP Growth"}, {"name": "PMI", "value": "52"}]`

	indicators, mode := ParseIndicators(response)
	assert.Equal(t, ModeParsed, mode)
	require.Len(t, indicators, 3)

	// Incomplete entries survive with placeholders, never dropped.
	assert.Equal(t, "Unknown", indicators[0].Name)
	assert.Equal(t, "1%", indicators[0].Value)
	assert.Equal(t, "GDP Growth", indicators[1].Name)
	assert.Equal(t, "N/A", indicators[1].Value)
	assert.Equal(t, "PMI", indicators[2].Name)
	assert.Equal(t, "52", indicators[2].Value)
}

func TestParseIndicatorsEmptyArray(t *testing.T) {
	indicators, mode := ParseIndicators("```json\n[]\n```")
	assert.Equal(t, ModeEmpty, mode)
	assert.Empty(t, indicators)
}

func TestParseIndicatorsFallbackFedFunds(t *testing.T) {
	response := "The Federal Funds Rate currently stands at 5.25% and has been stable since the last meeting on 2026-08-01."

	indicators, mode := ParseIndicators(response)
	assert.Equal(t, ModeFallback, mode)
	require.NotEmpty(t, indicators)

	assert.Equal(t, "Federal Funds Rate", indicators[0].Name)
	assert.Equal(t, "5.25%", indicators[0].Value)
	assert.Equal(t, models.TrendStable, indicators[0].Trend)
	assert.Equal(t, "2026-08-01", indicators[0].Date)
}

func TestParseIndicatorsFallbackFedFundsWithoutRateWord(t *testing.T) {
	response := "Federal funds currently at 5.25% per the latest FOMC decision."

	indicators, mode := ParseIndicators(response)
	assert.Equal(t, ModeFallback, mode)
	require.Len(t, indicators, 1)
	assert.Equal(t, "Federal Funds Rate", indicators[0].Name)
	assert.Equal(t, "5.25%", indicators[0].Value)
}

func TestParseIndicatorsFallbackPerLineTrends(t *testing.T) {
	response := "GDP: 2.1% and rising\nCPI: 3.2% falling fast"

	indicators, mode := ParseIndicators(response)
	assert.Equal(t, ModeFallback, mode)
	require.Len(t, indicators, 2)

	// Names stay within their line and each line keeps its own trend.
	assert.Equal(t, "gdp", indicators[0].Key())
	assert.Equal(t, models.TrendUp, indicators[0].Trend)
	assert.Equal(t, "cpi", indicators[1].Key())
	assert.Equal(t, models.TrendDown, indicators[1].Trend)
}

func TestParseIndicatorsFallbackPairs(t *testing.T) {
	response := "Unemployment Rate: 4.2%\nRetail Sales (YoY): +2.8%\nThe overall trend is down this month."

	indicators, mode := ParseIndicators(response)
	assert.Equal(t, ModeFallback, mode)
	require.Len(t, indicators, 2)

	assert.Equal(t, "4.2%", indicators[0].Value)
	// Trend lives on its own line here, so neither pair picks one up.
	assert.Equal(t, models.TrendUnknown, indicators[0].Trend)
	assert.Equal(t, "retail_sales_yoy", indicators[1].Key())
}

func TestParseIndicatorsFallbackDeduplicates(t *testing.T) {
	response := "CPI: 3.1%\nCPI: 3.1%"

	indicators, _ := ParseIndicators(response)
	require.Len(t, indicators, 1)
}

func TestParseIndicatorsUnusableText(t *testing.T) {
	indicators, mode := ParseIndicators("I could not identify any economic figures in this screenshot.")
	// "could" contains no pair shape; nothing should be invented.
	assert.Equal(t, ModeEmpty, mode)
	assert.Empty(t, indicators)
}

func TestParseIndicatorsEmptyInput(t *testing.T) {
	indicators, mode := ParseIndicators("   ")
	assert.Equal(t, ModeEmpty, mode)
	assert.Nil(t, indicators)
}

func TestDetectDateLayouts(t *testing.T) {
	assert.Equal(t, "2026-08-27", detectDate("as of 2026-08-27"))
	assert.Equal(t, "08/27/2026", detectDate("updated 08/27/2026"))
	assert.Equal(t, "Aug 27, 2026", detectDate("released Aug 27, 2026"))
	assert.Equal(t, "", detectDate("no date here"))
}
