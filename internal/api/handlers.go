package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ocx/ledger-intake/internal/bridge"
	"github.com/ocx/ledger-intake/internal/claim"
	"github.com/ocx/ledger-intake/internal/dlqadmin"
)

type handlers struct {
	claim  *claim.Service
	worker *bridge.Worker
	dlq    *dlqadmin.Service
}

type claimRequest struct {
	UserID string `json:"user_id"`
}

type claimResponse struct {
	ResourceID string `json:"resource_id"`
}

// postClaim never returns an error status for "sold out" — that renders as
// 204 No Content. The claim path does not read pool config, so a pool with
// is_active=false still hands out its AVAILABLE slots.
func (h *handlers) postClaim(w http.ResponseWriter, r *http.Request) {
	poolID := mux.Vars(r)["pool_id"]

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return
	}

	res, err := h.claim.ClaimResourceAndQueue(r.Context(), poolID, req.UserID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !res.OK {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, claimResponse{ResourceID: res.ResourceID})
}

type drainResponse struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	DLQ       int    `json:"dlq"`
	Total     int    `json:"total"`
}

// postDrain triggers one Bridge worker invocation. A queue read failure is
// fatal for the invocation (5xx); no ack occurred so no message is lost.
func (h *handlers) postDrain(w http.ResponseWriter, r *http.Request) {
	summary, err := h.worker.DrainOnce(r.Context())
	if err != nil {
		http.Error(w, "drain failed", http.StatusInternalServerError)
		return
	}

	status := "success"
	if summary.Total == 0 {
		status = "idle"
	}
	writeJSON(w, http.StatusOK, drainResponse{
		Status:    status,
		Processed: summary.Processed,
		DLQ:       summary.DLQ,
		Total:     summary.Total,
	})
}

func (h *handlers) getDLQ(w http.ResponseWriter, r *http.Request) {
	poolID := r.URL.Query().Get("pool_id")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	entries, err := h.dlq.List(r.Context(), poolID, limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type dlqMsgRequest struct {
	OriginalMsgID int64 `json:"original_msg_id"`
}

func (h *handlers) postDLQReplay(w http.ResponseWriter, r *http.Request) {
	var req dlqMsgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	newID, err := h.dlq.Replay(r.Context(), req.OriginalMsgID)
	if err != nil {
		http.Error(w, "replay failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"new_msg_id": newID})
}

func (h *handlers) postDLQDiscard(w http.ResponseWriter, r *http.Request) {
	var req dlqMsgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.dlq.Discard(r.Context(), req.OriginalMsgID); err != nil {
		http.Error(w, "discard failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
