package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/pulse/internal/trading"
	"github.com/wonny/pulse/pkg/logger"
)

// TradesHandler serves the pending-trade review endpoints
type TradesHandler struct {
	store  *trading.Store
	logger *logger.Logger
}

// NewTradesHandler creates a trades handler
func NewTradesHandler(store *trading.Store, log *logger.Logger) *TradesHandler {
	return &TradesHandler{
		store:  store,
		logger: log,
	}
}

type decideRequest struct {
	Reason string `json:"reason"`
}

type bulkRequest struct {
	IDs    []string `json:"ids"`
	Action string   `json:"action"` // approve or reject
	Reason string   `json:"reason"`
}

// ListPending returns all trades awaiting a decision, oldest first
func (h *TradesHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	trades := h.store.ListPending()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	})
}

// GetTrade returns a single trade by ID
func (h *TradesHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trade, ok := h.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// Approve approves a pending trade and triggers execution
func (h *TradesHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, trading.DecideApprove)
}

// Reject rejects a pending trade
func (h *TradesHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, trading.DecideReject)
}

func (h *TradesHandler) decide(w http.ResponseWriter, r *http.Request, action trading.DecideAction) {
	id := mux.Vars(r)["id"]

	var req decideRequest
	if r.Body != nil {
		// Body is optional; a bare POST decides without a reason
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	trade, err := h.store.Decide(r.Context(), id, action, req.Reason)
	if err != nil {
		status := decideErrorStatus(err)
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"trade_id": id,
			"action":   action,
		}).Warn("Trade decision rejected")
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

// BulkDecide applies one decision to many trades, reporting per-ID outcomes
func (h *TradesHandler) BulkDecide(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action := trading.DecideAction(req.Action)
	if action != trading.DecideApprove && action != trading.DecideReject {
		writeError(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	result := h.store.BulkDecide(r.Context(), req.IDs, action, req.Reason)

	// Partial failure still returns 200; per-ID errors are in the body
	writeJSON(w, http.StatusOK, result)
}

// decideErrorStatus maps store errors onto HTTP statuses
func decideErrorStatus(err error) int {
	switch {
	case errors.Is(err, trading.ErrTradeNotFound):
		return http.StatusNotFound
	case errors.Is(err, trading.ErrTradeNotPending):
		return http.StatusConflict
	case errors.Is(err, trading.ErrTradeExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
