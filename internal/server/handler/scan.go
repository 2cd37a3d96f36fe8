package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// Triggerer requests one on-demand detection cycle. The orchestrator's
// Trigger method satisfies it.
type Triggerer interface {
	Trigger() bool
}

// ScanHandler serves the scan trigger and cycle status endpoints.
type ScanHandler struct {
	trigger Triggerer
	cycles  domain.CycleStatusCache
	logger  *slog.Logger
}

// NewScanHandler creates a ScanHandler. trigger may be nil in server-only
// mode; the trigger endpoint then answers 503.
func NewScanHandler(trigger Triggerer, cycles domain.CycleStatusCache, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		trigger: trigger,
		cycles:  cycles,
		logger:  logHandler(logger, "scan"),
	}
}

// Trigger enqueues one detection cycle. A trigger that is already pending
// covers this request too.
// POST /api/scan/trigger
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "scanning is not running in this mode")
		return
	}

	accepted := h.trigger.Trigger()
	h.logger.InfoContext(r.Context(), "scan trigger requested", slog.Bool("accepted", accepted))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"coalesced":    !accepted,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status returns the most recent cycle summary.
// GET /api/scan/status
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.cycles == nil {
		writeError(w, http.StatusServiceUnavailable, "cycle status is not available")
		return
	}

	stats, err := h.cycles.GetLast(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no cycle has completed yet")
			return
		}
		h.logger.ErrorContext(r.Context(), "status failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load cycle status")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Cycles returns recent cycle summaries, newest first.
// GET /api/scan/cycles?limit=
func (h *ScanHandler) Cycles(w http.ResponseWriter, r *http.Request) {
	if h.cycles == nil {
		writeError(w, http.StatusServiceUnavailable, "cycle status is not available")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	cycles, err := h.cycles.Recent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "cycle history failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load cycle history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(cycles),
		"cycles": cycles,
	})
}
