package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// AnalysisHandler serves the stored analysis document
type AnalysisHandler struct {
	storage      interfaces.AnalysisStorage
	defaultTopic string
	logger       arbor.ILogger
	markdown     goldmark.Markdown
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(storage interfaces.AnalysisStorage, defaultTopic string, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		storage:      storage,
		defaultTopic: defaultTopic,
		logger:       logger,
		markdown:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// GetAnalysisHandler handles GET /api/analysis
// Query parameters:
//   - topic   analysis topic key (default from configuration)
//   - format  "html" renders the markdown, anything else returns JSON
func (h *AnalysisHandler) GetAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = h.defaultTopic
	}

	doc, err := h.storage.GetAnalysis(r.Context(), topic)
	if err != nil {
		if err == interfaces.ErrNotFound {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("no analysis found for topic %q", topic))
			return
		}
		h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to load analysis")
		WriteError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}

	if r.URL.Query().Get("format") != "html" {
		WriteJSON(w, http.StatusOK, doc)
		return
	}

	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(doc.Text), &buf); err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to render analysis markdown")
		WriteError(w, http.StatusInternalServerError, "failed to render analysis")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head><title>%s analysis</title></head>\n<body>\n", topic)
	w.Write(buf.Bytes())
	fmt.Fprint(w, "\n</body>\n</html>\n")
}
