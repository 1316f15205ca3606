package snapshot

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/common"
)

// Client captures chart screenshots through the node screenshot service.
// Each successful capture writes a PNG to the temp directory and returns its
// path; the caller deletes the file after extraction.
type Client struct {
	config     *common.SnapshotConfig
	logger     arbor.ILogger
	httpClient *http.Client
	supervisor *Supervisor
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSupervisor attaches a supervisor so captures can self-heal a stopped
// service. Without one the client assumes the service is already running.
func WithSupervisor(supervisor *Supervisor) ClientOption {
	return func(c *Client) {
		c.supervisor = supervisor
	}
}

// NewClient creates a screenshot service client
func NewClient(config *common.SnapshotConfig, logger arbor.ILogger, opts ...ClientOption) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Capture requests a screenshot of the page and writes the decoded PNG to a
// temp file named after the source label. A failure aborts only this URL.
func (c *Client) Capture(ctx context.Context, pageURL string, label string) (string, error) {
	if c.supervisor != nil {
		if err := c.supervisor.EnsureRunning(ctx); err != nil {
			return "", err
		}
	}

	reqBody := CaptureRequest{
		Symbol:     label,
		URL:        pageURL,
		Timeframe:  c.config.Timeframe,
		Indicators: []string{},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal capture request: %w", err)
	}

	endpoint := c.config.ServiceURL + "/snapshot"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().Str("url", pageURL).Str("label", label).Msg("Requesting screenshot")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &CaptureError{URL: pageURL, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CaptureError{URL: pageURL, Reason: err.Error(), StatusCode: resp.StatusCode}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &CaptureError{URL: pageURL, Reason: string(body), StatusCode: resp.StatusCode}
	}

	var captureResp CaptureResponse
	if err := json.Unmarshal(body, &captureResp); err != nil {
		return "", &CaptureError{URL: pageURL, Reason: "invalid response body: " + err.Error(), StatusCode: resp.StatusCode}
	}
	if captureResp.ImageBase64 == "" {
		reason := captureResp.Error
		if reason == "" {
			reason = "response contained no image"
		}
		return "", &CaptureError{URL: pageURL, Reason: reason, StatusCode: resp.StatusCode}
	}

	image, err := base64.StdEncoding.DecodeString(captureResp.ImageBase64)
	if err != nil {
		return "", &CaptureError{URL: pageURL, Reason: "invalid base64 screenshot: " + err.Error()}
	}

	path, err := writeTempImage(c.config.TempDir, label, image)
	if err != nil {
		return "", err
	}

	c.logger.Info().
		Str("label", label).
		Str("path", path).
		Int("bytes", len(image)).
		Msg("Screenshot captured")

	return path, nil
}

// writeTempImage writes image bytes to a temp PNG named after the label.
func writeTempImage(dir string, label string, image []byte) (string, error) {
	file, err := os.CreateTemp(dir, common.SanitizeLabel(label)+"_*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(image); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write screenshot file: %w", err)
	}

	return file.Name(), nil
}
