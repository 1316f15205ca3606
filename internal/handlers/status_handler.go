package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/common"
	"github.com/ternarybob/macroscope/internal/interfaces"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	config  *common.Config
	storage interfaces.MacroStorage
	logger  arbor.ILogger
	started time.Time
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(config *common.Config, storage interfaces.MacroStorage, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config:  config,
		storage: storage,
		logger:  logger,
		started: time.Now(),
	}
}

// StatusResponse is the payload returned by GET /status.
type StatusResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
	Records     int    `json:"records"`
	LatestDate  string `json:"latest_date,omitempty"`
	Provider    string `json:"provider"`
}

// GetStatusHandler handles GET /status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	resp := StatusResponse{
		Status:      "ok",
		Environment: h.config.Environment,
		Uptime:      time.Since(h.started).Round(time.Second).String(),
		Provider:    string(h.config.LLM.DefaultProvider),
	}

	count, err := h.storage.Count(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count records for status")
	} else {
		resp.Records = count
	}

	if latest, err := h.storage.Latest(r.Context()); err == nil {
		resp.LatestDate = latest.Date
	}

	WriteJSON(w, http.StatusOK, resp)
}
