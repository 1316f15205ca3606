package models

import (
	"regexp"
	"strings"
)

// TrendDirection describes the direction of movement reported alongside an
// indicator value. The zero value means the source gave no direction.
type TrendDirection string

const (
	TrendUnknown TrendDirection = "unknown"
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendStable  TrendDirection = "stable"
)

// ParseTrend maps free-form trend text (including arrow glyphs) to a
// TrendDirection. Unrecognized text maps to TrendUnknown.
func ParseTrend(s string) TrendDirection {
	t := strings.ToLower(strings.TrimSpace(s))
	switch {
	case t == "":
		return TrendUnknown
	case strings.Contains(t, "up") || strings.Contains(t, "↑") || strings.Contains(t, "rising") || strings.Contains(t, "increas"):
		return TrendUp
	case strings.Contains(t, "down") || strings.Contains(t, "↓") || strings.Contains(t, "falling") || strings.Contains(t, "decreas"):
		return TrendDown
	case strings.Contains(t, "stable") || strings.Contains(t, "unchanged") || strings.Contains(t, "flat") || strings.Contains(t, "→"):
		return TrendStable
	default:
		return TrendUnknown
	}
}

// EconomicIndicator is a single named reading extracted from one page.
type EconomicIndicator struct {
	Name  string         `json:"name"`
	Value string         `json:"value"`
	Trend TrendDirection `json:"trend,omitempty"`
	Date  string         `json:"date,omitempty"` // as reported by the source, best effort
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// Key returns the snake_case storage key for the indicator name,
// e.g. "Fed Funds Rate" -> "fed_funds_rate".
func (i EconomicIndicator) Key() string {
	k := strings.ToLower(strings.TrimSpace(i.Name))
	k = nonKeyChars.ReplaceAllString(k, "_")
	return strings.Trim(k, "_")
}
