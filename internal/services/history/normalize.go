package history

import (
	"strconv"

	"github.com/ternarybob/macroscope/internal/models"
)

// legacyFields maps the allow-listed flat columns older collectors wrote to
// their indicator keys. Anything outside this list stays dropped.
var legacyFields = []struct {
	key   string
	value func(*models.DailyRecord) *float64
}{
	{"pmi", func(r *models.DailyRecord) *float64 { return r.PMI }},
	{"cpi_yoy", func(r *models.DailyRecord) *float64 { return r.CPIYoY }},
	{"unemployment", func(r *models.DailyRecord) *float64 { return r.Unemployment }},
	{"m2_money_supply", func(r *models.DailyRecord) *float64 { return r.M2MoneySupply }},
	{"m2_yoy", func(r *models.DailyRecord) *float64 { return r.M2YoY }},
	{"yield_10y", func(r *models.DailyRecord) *float64 { return r.Yield10Y }},
	{"yield_2y", func(r *models.DailyRecord) *float64 { return r.Yield2Y }},
	{"yield_spread", func(r *models.DailyRecord) *float64 { return r.YieldSpread }},
	{"fed_funds_rate", func(r *models.DailyRecord) *float64 { return r.FedFundsRate }},
	{"gdp_growth", func(r *models.DailyRecord) *float64 { return r.GDPGrowth }},
	{"retail_sales_yoy", func(r *models.DailyRecord) *float64 { return r.RetailSalesYoY }},
	{"industrial_production", func(r *models.DailyRecord) *float64 { return r.IndustrialProduction }},
}

// NormalizeIndicators flattens a record into key -> value readings for
// prompt building. A record carrying a nested Indicators map is taken as-is;
// the legacy flat columns are lifted only when the map is absent.
func NormalizeIndicators(record *models.DailyRecord) map[string]string {
	out := make(map[string]string, len(record.Indicators))

	if len(record.Indicators) > 0 {
		for key, iv := range record.Indicators {
			if iv.Value != "" {
				out[key] = iv.Value
			}
		}
		return out
	}

	for _, field := range legacyFields {
		if v := field.value(record); v != nil {
			out[field.key] = strconv.FormatFloat(*v, 'f', -1, 64)
		}
	}

	return out
}
