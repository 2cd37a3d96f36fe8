package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// OpportunityHandler serves the opportunity read API.
type OpportunityHandler struct {
	store  domain.OpportunityStore
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler backed by the store.
func NewOpportunityHandler(store domain.OpportunityStore, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		store:  store,
		logger: logHandler(logger, "opportunity"),
	}
}

// List returns stored opportunities, best guaranteed return first.
// GET /api/opportunities?min_profit=&market=&include_expired=&limit=&offset=
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	opps, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(opps),
		"opportunities": opps,
	})
}

// ListMoneyline returns moneyline opportunities only.
// GET /api/arbitrage/moneyline?min_profit=
func (h *OpportunityHandler) ListMoneyline(w http.ResponseWriter, r *http.Request) {
	h.listMarket(w, r, domain.MarketMoneyline)
}

// ListProps returns player prop opportunities only. Prop markets all carry a
// player, so the store filters on a non-empty player field and pagination
// stays intact.
// GET /api/arbitrage/props?min_profit=
func (h *OpportunityHandler) ListProps(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	opts.Market = ""
	opts.PlayerOnly = true

	opps, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list props failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(opps),
		"opportunities": opps,
	})
}

// Get returns one opportunity by fingerprint.
// GET /api/opportunities/{fingerprint}
func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	fingerprint := pathParam(r, "fingerprint")

	opp, err := h.store.Get(r.Context(), fingerprint)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get failed",
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load opportunity")
		return
	}

	writeJSON(w, http.StatusOK, opp)
}

func (h *OpportunityHandler) listMarket(w http.ResponseWriter, r *http.Request, market domain.MarketType) {
	opts := parseListOpts(r)
	opts.Market = market

	opps, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list failed",
			slog.String("market", string(market)),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(opps),
		"opportunities": opps,
	})
}
