package models

import "time"

// LatestRecordKey is the reserved key of the pointer record that mirrors the
// most recently written daily record.
const LatestRecordKey = "LATEST"

// IndicatorValue is one indicator as stored inside a daily record.
type IndicatorValue struct {
	Value  string         `json:"value"`
	Trend  TrendDirection `json:"trend,omitempty"`
	Date   string         `json:"date,omitempty"`
	Source string         `json:"source,omitempty"` // hostname label of the page it came from
}

// ValidationResult summarizes how an extraction batch went for a record.
type ValidationResult struct {
	SourcesQueried int      `json:"sources_queried"`
	SourcesFailed  int      `json:"sources_failed"`
	Warnings       []string `json:"warnings,omitempty"`
}

// DailyRecord is one day's worth of collected indicators. Key is
// "YYYY-MM-DD" or "YYYY-MM-DD_PROVIDER" when multiple model providers write
// the same day, plus the reserved LATEST pointer record.
//
// The typed legacy fields carry values written by older collectors that
// stored flat numeric columns instead of the Indicators map; the history
// resolver lifts them into the map on read.
type DailyRecord struct {
	Key       string    `json:"key" badgerhold:"key"`
	Date      string    `json:"date" badgerhold:"index"` // YYYY-MM-DD
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider,omitempty"`

	Indicators map[string]IndicatorValue `json:"indicators,omitempty"`
	Validation *ValidationResult         `json:"validation,omitempty"`

	AIDataAnalysis    string     `json:"aiDataAnalysis,omitempty"`
	AnalysisTimestamp *time.Time `json:"analysisTimestamp,omitempty"`

	// Legacy flat columns.
	PMI                  *float64 `json:"pmi,omitempty"`
	CPIYoY               *float64 `json:"cpi_yoy,omitempty"`
	Unemployment         *float64 `json:"unemployment,omitempty"`
	M2MoneySupply        *float64 `json:"m2_money_supply,omitempty"`
	M2YoY                *float64 `json:"m2_yoy,omitempty"`
	Yield10Y             *float64 `json:"yield_10y,omitempty"`
	Yield2Y              *float64 `json:"yield_2y,omitempty"`
	YieldSpread          *float64 `json:"yield_spread,omitempty"`
	FedFundsRate         *float64 `json:"fed_funds_rate,omitempty"`
	GDPGrowth            *float64 `json:"gdp_growth,omitempty"`
	RetailSalesYoY       *float64 `json:"retail_sales_yoy,omitempty"`
	IndustrialProduction *float64 `json:"industrial_production,omitempty"`
}

// IsLatest reports whether the record is the LATEST pointer.
func (r *DailyRecord) IsLatest() bool {
	return r.Key == LatestRecordKey
}

// AnalysisResult is the output of one analysis generation run.
type AnalysisResult struct {
	Text        string    `json:"text"`
	Model       string    `json:"model,omitempty"`
	WindowDays  int       `json:"window_days"`
	RecordCount int       `json:"record_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// TopicAnalysis is a stored analysis document addressed by topic,
// e.g. topic "macro" for the macroeconomic summary.
type TopicAnalysis struct {
	Topic       string    `json:"topic" badgerhold:"key"`
	Text        string    `json:"text"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
