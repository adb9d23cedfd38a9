package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jkoh/wealthtower/internal/models"
)

// --- Valuation handlers ---

// handleSummary runs one valuation cycle and pairs it with the reconciled
// history series. This is the dashboard's single read endpoint.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	valuation := s.app.ValuationService.Valuate(ctx)
	history, histFlags := s.app.LedgerService.History(ctx)

	var latest *models.HistoryRecord
	if len(history) > 0 {
		latest = &history[len(history)-1]
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valuation":     valuation,
		"history":       history,
		"latest":        latest,
		"history_flags": histFlags,
	})
}

// handleRefresh drops every cache layer so the next read cycle refetches
// the sheet tables and all quotes.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	s.app.ForceRefresh()

	WriteJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// --- History handlers ---

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleHistoryGet(w, r)
	case http.MethodPost:
		s.handleHistoryRecord(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	history, flags := s.app.LedgerService.History(r.Context())

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"flags":   flags,
	})
}

// handleHistoryRecord runs the full snapshot pipeline: valuate current
// holdings, derive the net-worth record for the requested date, reconcile
// it into the series, and persist. A failed remote write still returns 200
// with the fallback payload so the caller can paste the row by hand.
func (s *Server) handleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date     string                  `json:"date"`
		Expenses models.ExpenseBreakdown `json:"expenses"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.LedgerService.RecordSnapshot(r.Context(), models.Date(req.Date), req.Expenses)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Snapshot error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// --- Pending snapshot handlers ---

func (s *Server) handlePendingList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pending, err := s.app.LedgerService.PendingSnapshots(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing pending snapshots: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"pending": pending,
	})
}

func (s *Server) handlePendingRetry(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	result, err := s.app.LedgerService.RetryPending(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Pending snapshot not found: %v", err))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Retry error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
