package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/common"
)

func newTestFactory(defaultProvider common.LLMProvider) *ProviderFactory {
	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = defaultProvider
	return NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, arbor.NewLogger())
}

func TestDetectProvider(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini)

	tests := []struct {
		model    string
		expected ProviderType
	}{
		{"claude-haiku-3-5-20241022", ProviderClaude},
		{"claude/claude-haiku-3-5-20241022", ProviderClaude},
		{"anthropic/claude-sonnet-4", ProviderClaude},
		{"gemini-2.0-flash", ProviderGemini},
		{"gemini/gemini-2.0-flash", ProviderGemini},
		{"google/gemini-2.0-flash", ProviderGemini},
		{"", ProviderGemini}, // default provider
		{"mystery-model", ProviderGemini},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, f.DetectProvider(tt.model), "model %q", tt.model)
	}
}

func TestDetectProviderDefaultClaude(t *testing.T) {
	f := newTestFactory(common.LLMProviderClaude)
	assert.Equal(t, ProviderClaude, f.DetectProvider(""))
}

func TestModelFollowsDefaultProvider(t *testing.T) {
	gemini := newTestFactory(common.LLMProviderGemini)
	assert.Equal(t, "gemini-2.0-flash", gemini.Model())

	claude := newTestFactory(common.LLMProviderClaude)
	assert.Equal(t, "claude-haiku-3-5-20241022", claude.Model())
}

func TestNewLimiterInvalidInterval(t *testing.T) {
	// Invalid or empty intervals fall back to an unlimited limiter rather
	// than blocking every call.
	assert.True(t, newLimiter("").Allow())
	assert.True(t, newLimiter("not-a-duration").Allow())
	assert.True(t, newLimiter("4s").Allow())
}
