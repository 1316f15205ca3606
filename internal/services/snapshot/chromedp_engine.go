package snapshot

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/common"
)

// ChromedpEngine captures screenshots with an in-process headless Chrome
// instead of the node service. Selected with snapshot.engine = "chromedp".
type ChromedpEngine struct {
	config *common.SnapshotConfig
	logger arbor.ILogger
}

// NewChromedpEngine creates an in-process capture engine
func NewChromedpEngine(config *common.SnapshotConfig, logger arbor.ILogger) *ChromedpEngine {
	return &ChromedpEngine{
		config: config,
		logger: logger,
	}
}

// Capture navigates to the page, waits for charts to render, and writes a
// full-page screenshot to a temp file.
func (e *ChromedpEngine) Capture(ctx context.Context, pageURL string, label string) (string, error) {
	timeout := e.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(timeoutCtx)
	defer browserCancel()

	e.logger.Debug().Str("url", pageURL).Str("label", label).Msg("Capturing screenshot with chromedp")

	var buf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(3*time.Second), // let charts render
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return "", &CaptureError{URL: pageURL, Reason: err.Error()}
	}

	path, err := writeTempImage(e.config.TempDir, label, buf)
	if err != nil {
		return "", err
	}

	e.logger.Info().
		Str("label", label).
		Str("path", path).
		Int("bytes", len(buf)).
		Msg("Screenshot captured")

	return path, nil
}
