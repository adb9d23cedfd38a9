package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/jkoh/wealthtower/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Valuation
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/refresh", s.handleRefresh)

	// History ledger
	mux.HandleFunc("/api/history/pending/", s.routePending)
	mux.HandleFunc("/api/history/pending", s.handlePendingList)
	mux.HandleFunc("/api/history", s.handleHistory)
}

// routePending dispatches /api/history/pending/{id}/retry.
func (s *Server) routePending(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/history/pending/")
	if path == "" {
		s.handlePendingList(w, r)
		return
	}

	if strings.HasSuffix(path, "/retry") {
		id := PathParam(r, "/api/history/pending/", "/retry")
		s.handlePendingRetry(w, r, id)
		return
	}

	WriteError(w, http.StatusNotFound, "Not found")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
