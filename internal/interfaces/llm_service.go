package interfaces

import (
	"context"
)

// VisionRequest carries one image plus the instruction for reading it.
type VisionRequest struct {
	// Prompt is the instruction sent alongside the image.
	Prompt string

	// Image is the raw image payload (PNG or JPEG bytes).
	Image []byte

	// MIMEType identifies the image encoding, e.g. "image/png".
	MIMEType string
}

// LLMService defines the interface for language model operations used by the
// pipeline: reading indicator values out of chart screenshots and generating
// the written macro analysis. Implementations may back onto Gemini or Claude.
type LLMService interface {
	// GenerateText produces a completion for a plain text prompt.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - prompt: Full prompt text including any framing instructions
	//
	// Returns:
	//   - string: Generated response text
	//   - error: Error if the completion fails
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateVision produces a completion for a prompt paired with an image.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - req: Prompt, image bytes, and MIME type
	//
	// Returns:
	//   - string: Generated response text
	//   - error: Error if the completion fails
	GenerateVision(ctx context.Context, req VisionRequest) (string, error)

	// Model returns the configured model identifier, e.g. "gemini-2.0-flash".
	Model() string
}
