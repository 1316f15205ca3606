package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/common"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ProviderFactory creates and manages AI provider clients. It implements
// interfaces.LLMService, routing each request to Gemini or Claude based on
// the configured model name. A single extraction or analysis call is made
// per request; failed calls surface immediately to the caller.
type ProviderFactory struct {
	geminiConfig  *common.GeminiConfig
	claudeConfig  *common.ClaudeConfig
	llmConfig     *common.LLMConfig
	logger        arbor.ILogger
	geminiClient  *genai.Client
	claudeClient  anthropic.Client
	claudeAPIKey  string
	geminiLimiter *rate.Limiter
	claudeLimiter *rate.Limiter
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	logger arbor.ILogger,
) *ProviderFactory {
	return &ProviderFactory{
		geminiConfig:  geminiConfig,
		claudeConfig:  claudeConfig,
		llmConfig:     llmConfig,
		logger:        logger,
		geminiLimiter: newLimiter(geminiConfig.RateLimit),
		claudeLimiter: newLimiter(claudeConfig.RateLimit),
	}
}

// newLimiter builds a rate limiter from a duration string like "4s".
// An empty or invalid string means no limiting.
func newLimiter(interval string) *rate.Limiter {
	if interval == "" {
		return rate.NewLimiter(rate.Inf, 1)
	}
	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-haiku-3-5-20241022" -> Claude
// - "claude/claude-haiku-3-5-20241022" -> Claude (with prefix)
// - "gemini-2.0-flash" -> Gemini
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	if model == "" {
		return ProviderType(f.llmConfig.DefaultProvider)
	}

	model = strings.ToLower(model)

	// Check for explicit provider prefix
	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}

	// Check for model name patterns
	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}

	return ProviderType(f.llmConfig.DefaultProvider)
}

// Model returns the configured model identifier for the default provider.
func (f *ProviderFactory) Model() string {
	switch ProviderType(f.llmConfig.DefaultProvider) {
	case ProviderClaude:
		return f.claudeConfig.Model
	default:
		return f.geminiConfig.Model
	}
}

// GetGeminiClient returns a Gemini client, creating one if necessary
func (f *ProviderFactory) GetGeminiClient(ctx context.Context) (*genai.Client, error) {
	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	apiKey, err := common.ResolveAPIKey("gemini_api_key", f.geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// GetClaudeClient returns a Claude client, creating one if necessary
func (f *ProviderFactory) GetClaudeClient(ctx context.Context) (anthropic.Client, error) {
	// Check if client is already initialized (non-zero value)
	if f.claudeAPIKey != "" {
		return f.claudeClient, nil
	}

	apiKey, err := common.ResolveAPIKey("anthropic_api_key", f.claudeConfig.APIKey)
	if err != nil {
		return anthropic.Client{}, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	f.claudeClient = client
	f.claudeAPIKey = apiKey
	return client, nil
}

// GenerateText produces a completion for a plain text prompt using the
// default provider.
func (f *ProviderFactory) GenerateText(ctx context.Context, prompt string) (string, error) {
	provider := f.DetectProvider("")

	f.logger.Debug().
		Str("provider", string(provider)).
		Int("prompt_length", len(prompt)).
		Msg("Generating text completion")

	switch provider {
	case ProviderClaude:
		return f.claudeGenerate(ctx, prompt, nil, "")
	default:
		return f.geminiGenerate(ctx, prompt, nil, "")
	}
}

// GenerateVision produces a completion for a prompt paired with an image.
func (f *ProviderFactory) GenerateVision(ctx context.Context, req interfaces.VisionRequest) (string, error) {
	provider := f.DetectProvider("")

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("mime_type", mimeType).
		Int("image_bytes", len(req.Image)).
		Msg("Generating vision completion")

	switch provider {
	case ProviderClaude:
		return f.claudeGenerate(ctx, req.Prompt, req.Image, mimeType)
	default:
		return f.geminiGenerate(ctx, req.Prompt, req.Image, mimeType)
	}
}

// claudeGenerate makes a single Claude API call. image may be nil for
// text-only requests.
func (f *ProviderFactory) claudeGenerate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	client, err := f.GetClaudeClient(ctx)
	if err != nil {
		return "", err
	}

	if err := f.claudeLimiter.Wait(ctx); err != nil {
		return "", err
	}

	blocks := []anthropic.ContentBlockParamUnion{}
	if image != nil {
		blocks = append(blocks, anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(image)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(f.claudeConfig.Model),
		MaxTokens: int64(f.claudeConfig.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}

	if f.claudeConfig.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(f.claudeConfig.Temperature))
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	return text.String(), nil
}

// geminiGenerate makes a single Gemini API call. image may be nil for
// text-only requests.
func (f *ProviderFactory) geminiGenerate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	client, err := f.GetGeminiClient(ctx)
	if err != nil {
		return "", err
	}

	if err := f.geminiLimiter.Wait(ctx); err != nil {
		return "", err
	}

	var contents []*genai.Content
	if image != nil {
		parts := []*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(prompt),
		}
		contents = []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	} else {
		contents = []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	}

	config := &genai.GenerateContentConfig{}
	if f.geminiConfig.Temperature > 0 {
		config.Temperature = genai.Ptr(f.geminiConfig.Temperature)
	}

	resp, err := client.Models.GenerateContent(ctx, f.geminiConfig.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	responseText := resp.Text()
	if responseText == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}

	return responseText, nil
}

// Close closes all provider clients
func (f *ProviderFactory) Close() error {
	f.geminiClient = nil
	f.claudeClient = anthropic.Client{} // Reset to zero value
	f.claudeAPIKey = ""                 // Clear API key to mark as uninitialized
	return nil
}
