package extractor

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"github.com/ternarybob/macroscope/internal/models"
)

// visionPrompt instructs the model to read indicator values off the chart
// screenshot. The response contract matches what ParseIndicators expects.
const visionPrompt = `Analyze this screenshot of an economic data page and extract every macroeconomic indicator visible, such as GDP growth, CPI, PMI, unemployment rate, money supply, treasury yields, or the Fed Funds Rate.

Return a JSON array where each element has these fields:
- "name": the indicator name as shown on the page
- "value": the current reading, including units (e.g. "5.25%", "$20.8T")
- "trend": "up", "down", or "stable" if the page shows a direction, else omit
- "date": the as-of date shown for the reading, if any

Respond with only the JSON array. If no indicators are visible, return [].`

// ExtractionResult is what one screenshot yielded. Extraction never fails a
// collection run: model errors and unreadable responses produce an empty
// result instead of an error.
type ExtractionResult struct {
	Indicators []models.EconomicIndicator
	Mode       Mode
	Source     string
}

// Service reads indicators out of chart screenshots with a vision model.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates an extraction service
func NewService(llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		llm:    llm,
		logger: logger,
	}
}

// Extract reads the screenshot file and asks the vision model for the
// indicators on it. The returned result is never nil; any failure along the
// way is logged and absorbed into an empty result.
func (s *Service) Extract(ctx context.Context, imagePath string, source string) *ExtractionResult {
	result := &ExtractionResult{Mode: ModeEmpty, Source: source}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", imagePath).Msg("Failed to read screenshot, skipping extraction")
		return result
	}

	response, err := s.llm.GenerateVision(ctx, interfaces.VisionRequest{
		Prompt:   visionPrompt,
		Image:    image,
		MIMEType: "image/png",
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("source", source).Msg("Vision extraction failed, recording empty result")
		return result
	}

	indicators, mode := ParseIndicators(response)
	result.Indicators = indicators
	result.Mode = mode

	s.logger.Info().
		Str("source", source).
		Str("mode", string(mode)).
		Int("indicators", len(indicators)).
		Msg("Extraction completed")

	return result
}

// Summary is a short human-readable digest for logs and the local table.
func (r *ExtractionResult) Summary() string {
	return fmt.Sprintf("%s: %d indicators (%s)", r.Source, len(r.Indicators), r.Mode)
}
