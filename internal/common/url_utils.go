package common

import (
	"net/url"
	"regexp"
	"strings"
)

var hostPattern = regexp.MustCompile(`https?://(?:www\.)?([^/]+)`)

// SourceLabel derives a short label for a data source URL, used both for
// temp file naming and as the stored source tag on indicators.
// "https://www.tradingeconomics.com/united-states/gdp" -> "tradingeconomics.com"
func SourceLabel(rawURL string) string {
	if m := hostPattern.FindStringSubmatch(rawURL); len(m) == 2 {
		return m[1]
	}
	return "unknown_source"
}

// SanitizeLabel makes a source label safe for use in a filename.
func SanitizeLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// IsTestURL reports whether a URL points at a local test endpoint.
// Test URLs are only allowed in development mode.
func IsTestURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".local")
}
