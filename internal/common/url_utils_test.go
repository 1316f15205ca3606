package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceLabel(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"https with www", "https://www.tradingeconomics.com/united-states/gdp", "tradingeconomics.com"},
		{"https without www", "https://fred.stlouisfed.org/graph/?g=1CX2M", "fred.stlouisfed.org"},
		{"http", "http://example.com/page", "example.com"},
		{"host only", "https://investing.com", "investing.com"},
		{"port kept", "http://localhost:3000/chart", "localhost:3000"},
		{"not a url", "just some text", "unknown_source"},
		{"empty", "", "unknown_source"},
		{"ftp scheme", "ftp://example.com/file", "unknown_source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SourceLabel(tt.url))
		})
	}
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "tradingeconomics.com", SanitizeLabel("tradingeconomics.com"))
	assert.Equal(t, "localhost_3000", SanitizeLabel("localhost:3000"))
	assert.Equal(t, "a_b_c", SanitizeLabel("a/b\\c"))
	assert.Equal(t, "", SanitizeLabel(""))
}

func TestIsTestURL(t *testing.T) {
	assert.True(t, IsTestURL("http://localhost:3000/test"))
	assert.True(t, IsTestURL("http://127.0.0.1/chart"))
	assert.True(t, IsTestURL("http://macroscope.local/page"))
	assert.False(t, IsTestURL("https://tradingeconomics.com"))
	assert.False(t, IsTestURL("://bad"))
}
