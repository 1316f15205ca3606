package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/services/collector"
)

// PipelineRunner executes the collection and analysis passes.
type PipelineRunner interface {
	RunCollection(ctx context.Context, local, dryRun bool) (*collector.BatchResult, error)
	RunAnalysis(ctx context.Context, dryRun bool) error
}

// RunHandler handles HTTP requests that trigger pipeline runs
type RunHandler struct {
	runner PipelineRunner
	logger arbor.ILogger
}

// NewRunHandler creates a new RunHandler
func NewRunHandler(runner PipelineRunner, logger arbor.ILogger) *RunHandler {
	return &RunHandler{
		runner: runner,
		logger: logger,
	}
}

// TriggerRunHandler handles POST /api/run
// Query parameters:
//   - local=true          print the result table server-side, skip persistence
//   - dry_run=true        run without persisting
//   - only_analysis=true  skip collection, regenerate the analysis only
func (h *RunHandler) TriggerRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	local := r.URL.Query().Get("local") == "true"
	dryRun := r.URL.Query().Get("dry_run") == "true"
	onlyAnalysis := r.URL.Query().Get("only_analysis") == "true"

	message := ""
	if !onlyAnalysis {
		result, err := h.runner.RunCollection(r.Context(), local, dryRun)
		if err != nil {
			h.logger.Error().Err(err).Msg("Collection run failed")
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("collection failed: %v", err))
			return
		}
		message = fmt.Sprintf("collected %d indicators from %d sources (%d failed)",
			result.Indicators, result.Sources, result.Failed)

		// Local runs store nothing, so there is no window to analyze.
		if local {
			WriteSuccess(w, message)
			return
		}
	}

	if err := h.runner.RunAnalysis(r.Context(), dryRun); err != nil {
		h.logger.Error().Err(err).Msg("Analysis run failed")
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	if message == "" {
		message = "analysis regenerated"
	} else {
		message += "; analysis regenerated"
	}
	WriteSuccess(w, message)
}
