package snapshot

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/common"
)

func testSnapshotConfig(serviceURL string, tempDir string) *common.SnapshotConfig {
	cfg := common.NewDefaultConfig().Snapshot
	cfg.ServiceURL = serviceURL
	cfg.TempDir = tempDir
	return &cfg
}

func TestCaptureWritesDecodedImage(t *testing.T) {
	image := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x01, 0x02}

	var gotReq CaptureRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/snapshot", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(CaptureResponse{
			URL:         "https://www.tradingeconomics.com/united-states/gdp",
			Symbol:      "tradingeconomics.com",
			ImageBase64: base64.StdEncoding.EncodeToString(image),
		})
	}))
	defer server.Close()

	tempDir := t.TempDir()
	client := NewClient(testSnapshotConfig(server.URL, tempDir), arbor.NewLogger())

	path, err := client.Capture(context.Background(), "https://www.tradingeconomics.com/united-states/gdp", "tradingeconomics.com")
	require.NoError(t, err)
	defer os.Remove(path)

	// Request carries the label as symbol plus the configured timeframe.
	assert.Equal(t, "tradingeconomics.com", gotReq.Symbol)
	assert.Equal(t, "https://www.tradingeconomics.com/united-states/gdp", gotReq.URL)
	assert.Equal(t, "1d", gotReq.Timeframe)
	assert.NotNil(t, gotReq.Indicators)

	// The written file is the byte-identical decoded image.
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, image, written)

	assert.True(t, strings.HasPrefix(filepath.Base(path), "tradingeconomics.com_"))
	assert.True(t, strings.HasSuffix(path, ".png"))
}

func TestCaptureReadsImageBase64Field(t *testing.T) {
	// Literal service payload, not round-tripped through CaptureResponse:
	// the success body carries the image under "image_base64".
	image := []byte{0x89, 0x50, 0x4E, 0x47}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"https://example.com","symbol":"example.com","timestamp":"2026-08-27T06:00:00Z","image_base64":"` +
			base64.StdEncoding.EncodeToString(image) + `"}`))
	}))
	defer server.Close()

	client := NewClient(testSnapshotConfig(server.URL, t.TempDir()), arbor.NewLogger())

	path, err := client.Capture(context.Background(), "https://example.com", "example.com")
	require.NoError(t, err)
	defer os.Remove(path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, image, written)
}

func TestCaptureServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "render timeout", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testSnapshotConfig(server.URL, t.TempDir()), arbor.NewLogger())

	_, err := client.Capture(context.Background(), "https://example.com", "example.com")
	require.Error(t, err)

	var captureErr *CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.Equal(t, http.StatusInternalServerError, captureErr.StatusCode)
}

func TestCaptureEmptyImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CaptureResponse{Error: "page not reachable"})
	}))
	defer server.Close()

	client := NewClient(testSnapshotConfig(server.URL, t.TempDir()), arbor.NewLogger())

	_, err := client.Capture(context.Background(), "https://example.com", "example.com")
	var captureErr *CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.Contains(t, captureErr.Reason, "page not reachable")
}

func TestCaptureInvalidBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CaptureResponse{ImageBase64: "not base64!!!"})
	}))
	defer server.Close()

	client := NewClient(testSnapshotConfig(server.URL, t.TempDir()), arbor.NewLogger())

	_, err := client.Capture(context.Background(), "https://example.com", "example.com")
	var captureErr *CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.Contains(t, captureErr.Reason, "base64")
}

func TestCaptureServiceUnreachable(t *testing.T) {
	// Closed server: connection refused surfaces as a CaptureError for the
	// single URL, not a panic or a bare transport error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serviceURL := server.URL
	server.Close()

	client := NewClient(testSnapshotConfig(serviceURL, t.TempDir()), arbor.NewLogger())

	_, err := client.Capture(context.Background(), "https://example.com", "example.com")
	var captureErr *CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.Equal(t, "https://example.com", captureErr.URL)
}
