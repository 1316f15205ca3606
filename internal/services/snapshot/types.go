package snapshot

import (
	"context"
	"errors"
	"fmt"
)

// ErrServiceNotFound is returned when no candidate directory contains the
// screenshot service's package.json, so it cannot be launched.
var ErrServiceNotFound = errors.New("screenshot service installation not found")

// ErrServiceUnreachable is returned when a remote service URL is not
// answering. The supervisor only launches a process for URLs that point at
// this machine; a remote endpoint is someone else's to run.
var ErrServiceUnreachable = errors.New("screenshot service unreachable")

// StartupError is returned when the screenshot service was launched but never
// answered its liveness probe. Output carries whatever the process wrote,
// which is usually the npm error that explains the failure.
type StartupError struct {
	Attempts int
	Output   string
}

func (e *StartupError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("screenshot service failed to start after %d attempts: %s", e.Attempts, e.Output)
	}
	return fmt.Sprintf("screenshot service failed to start after %d attempts", e.Attempts)
}

// CaptureError is returned when a single capture request fails. It aborts
// only the URL being captured, not the whole collection run.
type CaptureError struct {
	URL        string
	Reason     string
	StatusCode int
}

func (e *CaptureError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("capture failed for %s (status %d): %s", e.URL, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("capture failed for %s: %s", e.URL, e.Reason)
}

// CaptureRequest is the request body sent to the screenshot service.
type CaptureRequest struct {
	Symbol     string   `json:"symbol"`
	URL        string   `json:"url"`
	Timeframe  string   `json:"timeframe"`
	Indicators []string `json:"indicators"`
}

// CaptureResponse is the screenshot service's reply. ImageBase64 holds the
// base64-encoded PNG.
type CaptureResponse struct {
	URL         string `json:"url,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	ImageBase64 string `json:"image_base64"`
	Error       string `json:"error,omitempty"`
}

// Engine captures one page screenshot and returns the path of the PNG file
// written to the temp directory. Callers own the file and delete it when done.
type Engine interface {
	Capture(ctx context.Context, url string, label string) (string, error)
}
