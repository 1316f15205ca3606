package extractor

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ternarybob/macroscope/internal/models"
)

// Mode records how a model response was turned into indicators.
type Mode string

const (
	// ModeParsed means the response carried well-formed JSON.
	ModeParsed Mode = "parsed"
	// ModeFallback means indicators were recovered with regex heuristics.
	ModeFallback Mode = "fallback"
	// ModeEmpty means nothing usable was found. Not an error.
	ModeEmpty Mode = "empty"
)

var (
	fencedJSONPattern = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	bareArrayPattern  = regexp.MustCompile(`\[\s*\{[\s\S]*\}\s*\]`)

	// Fed funds gets its own per-line pass because rate pages often lack
	// the "name: value" shape the pair pattern expects: any line that
	// mentions "federal funds" is mined for a bare percentage.
	percentPattern = regexp.MustCompile(`\d+(?:\.\d+)?%`)
	pairPattern    = regexp.MustCompile(`([A-Za-z \(\)]+)[:|-]\s*([0-9\.\,\+\-%\$]+)`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
		regexp.MustCompile(`(?i)(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}`),
	}
)

// rawIndicator tolerates the shapes models actually emit: trend and date may
// be missing, value may arrive as a number.
type rawIndicator struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
	Trend string      `json:"trend"`
	Date  string      `json:"date"`
}

// ParseIndicators turns a model response into indicators. The JSON ladder is
// tried first: a fenced ```json block, then a bare array anywhere in the
// text, then the whole text as JSON. When none of those parse, regex
// heuristics recover what they can. Unusable text yields an empty slice.
func ParseIndicators(text string) ([]models.EconomicIndicator, Mode) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ModeEmpty
	}

	for _, candidate := range jsonCandidates(text) {
		if indicators, ok := parseJSONArray(candidate); ok {
			if len(indicators) == 0 {
				return nil, ModeEmpty
			}
			return indicators, ModeParsed
		}
	}

	indicators := fallbackExtract(text)
	if len(indicators) == 0 {
		return nil, ModeEmpty
	}
	return indicators, ModeFallback
}

// jsonCandidates returns the substrings worth trying as JSON, best first.
func jsonCandidates(text string) []string {
	candidates := []string{}
	if m := fencedJSONPattern.FindStringSubmatch(text); len(m) == 2 {
		candidates = append(candidates, m[1])
	}
	if m := bareArrayPattern.FindString(text); m != "" {
		candidates = append(candidates, m)
	}
	candidates = append(candidates, text)
	return candidates
}

func parseJSONArray(candidate string) ([]models.EconomicIndicator, bool) {
	var raw []rawIndicator
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil, false
	}

	indicators := make([]models.EconomicIndicator, 0, len(raw))
	for _, r := range raw {
		// Missing fields get placeholders; an incomplete entry is still
		// an entry.
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = "Unknown"
		}
		value := strings.TrimSpace(stringifyValue(r.Value))
		if value == "" {
			value = "N/A"
		}
		indicators = append(indicators, models.EconomicIndicator{
			Name:  name,
			Value: value,
			Trend: models.ParseTrend(r.Trend),
			Date:  strings.TrimSpace(r.Date),
		})
	}
	return indicators, true
}

func stringifyValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		b, _ := json.Marshal(val)
		return string(b)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

// fallbackExtract recovers indicators from prose with regex heuristics.
// Scanning is line by line: trend and date belong to the line they appear
// on, not to the whole response.
func fallbackExtract(text string) []models.EconomicIndicator {
	indicators := []models.EconomicIndicator{}
	seen := map[string]bool{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		trend := detectTrend(line)
		date := detectDate(line)

		if !seen["federal_funds_rate"] && strings.Contains(strings.ToLower(line), "federal funds") {
			if value := percentPattern.FindString(line); value != "" {
				indicators = append(indicators, models.EconomicIndicator{
					Name:  "Federal Funds Rate",
					Value: value,
					Trend: trend,
					Date:  date,
				})
				seen["federal_funds_rate"] = true
				continue
			}
		}

		for _, m := range pairPattern.FindAllStringSubmatch(line, -1) {
			name := strings.TrimSpace(m[1])
			value := strings.TrimSpace(strings.Trim(m[2], ","))
			if name == "" || value == "" {
				continue
			}
			indicator := models.EconomicIndicator{
				Name:  name,
				Value: value,
				Trend: trend,
				Date:  date,
			}
			key := indicator.Key()
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			indicators = append(indicators, indicator)
		}
	}

	return indicators
}

var (
	// Word boundaries matter here: "unemployment" must not read as "up".
	trendUpPattern     = regexp.MustCompile(`(?i)\b(up|rising|increasing|higher)\b|↑`)
	trendDownPattern   = regexp.MustCompile(`(?i)\b(down|falling|decreasing|lower)\b|↓`)
	trendStablePattern = regexp.MustCompile(`(?i)\b(stable|unchanged|flat)\b|→`)
)

func detectTrend(text string) models.TrendDirection {
	switch {
	case trendUpPattern.MatchString(text):
		return models.TrendUp
	case trendDownPattern.MatchString(text):
		return models.TrendDown
	case trendStablePattern.MatchString(text):
		return models.TrendStable
	default:
		return models.TrendUnknown
	}
}

func detectDate(text string) string {
	for _, pattern := range datePatterns {
		if m := pattern.FindString(text); m != "" {
			return m
		}
	}
	return ""
}
