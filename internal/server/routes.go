// -----------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026 5:10:12 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Application status
	mux.HandleFunc("/status", s.statusHandler.GetStatusHandler)

	// API routes - pipeline control and results
	mux.HandleFunc("/api/run", s.runHandler.TriggerRunHandler)           // POST - collect + analyze
	mux.HandleFunc("/api/analysis", s.analysisHandler.GetAnalysisHandler) // GET  - stored analysis (json or html)

	return mux
}
