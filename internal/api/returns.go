package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/notify"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/store"
)

// ReturnsHandler handles return registration endpoints.
type ReturnsHandler struct {
	DB       *sql.DB
	Notifier notify.Notifier
}

type registerReturnRequest struct {
	Outcome     string   `json:"outcome"`
	Notes       string   `json:"notes"`
	ProofRefs   []string `json:"proof_refs"`
	ReturnedQty *int     `json:"returned_qty"`
}

type batchReturnRequest struct {
	AllocationIDs []int64  `json:"allocation_ids"`
	Outcome       string   `json:"outcome"`
	Notes         string   `json:"notes"`
	ProofRefs     []string `json:"proof_refs"`
}

// Register handles POST /api/allocations/{id}/return.
func (h *ReturnsHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid allocation id")
		return
	}

	var req registerReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidOutcome(req.Outcome) {
		jsonError(w, http.StatusBadRequest, "outcome must be one of: returned-ok, returned-damaged, lost, consumed")
		return
	}

	allocation, err := store.RegisterReturn(r.Context(), h.DB, id, req.Outcome, req.Notes,
		req.ProofRefs, req.ReturnedQty, userID(r.Context()))
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("return registered", "allocation", allocation.ID,
		"material", allocation.MaterialName, "serial", allocation.SerialNumber,
		"outcome", allocation.Outcome)
	notifyAsync(h.Notifier, notify.ActionReturned, allocation)

	jsonResponse(w, http.StatusOK, allocation)
}

// Batch handles POST /api/returns/batch.
func (h *ReturnsHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.AllocationIDs) == 0 {
		jsonError(w, http.StatusBadRequest, "allocation_ids required")
		return
	}
	if !model.ValidOutcome(req.Outcome) {
		jsonError(w, http.StatusBadRequest, "outcome must be one of: returned-ok, returned-damaged, lost, consumed")
		return
	}

	results := store.RegisterReturnBatch(r.Context(), h.DB, req.AllocationIDs,
		req.Outcome, req.Notes, req.ProofRefs, userID(r.Context()))

	for _, res := range results {
		if !res.OK {
			continue
		}
		if a, err := store.GetAllocation(r.Context(), h.DB, res.AllocationID); err == nil && a != nil {
			notifyAsync(h.Notifier, notify.ActionReturned, a)
		}
	}

	// 200 even with partial failures: each item carries its own verdict.
	jsonResponse(w, http.StatusOK, results)
}

// notifyAsync fires the webhook in the background. The transaction is
// committed either way, so the request never waits on delivery.
func notifyAsync(n notify.Notifier, action string, a *model.Allocation) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		n.Notify(ctx, action, a)
	}()
}
