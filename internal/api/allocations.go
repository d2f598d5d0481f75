package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/notify"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/store"
)

// AllocationsHandler handles reservation and cancellation endpoints.
type AllocationsHandler struct {
	DB       *sql.DB
	Notifier notify.Notifier
}

type createAllocationRequest struct {
	LineID       int64  `json:"line_id"`
	SerialNumber string `json:"serial_number"`
	Quantity     int    `json:"quantity"`
	Mode         string `json:"mode"`
	Carrier      string `json:"carrier"`
	Responsible  string `json:"responsible"`
}

// Create handles POST /api/allocations.
func (h *AllocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAllocationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LineID == 0 {
		jsonError(w, http.StatusBadRequest, "line_id required")
		return
	}
	if req.Mode != model.ModeAdvanceShipment && req.Mode != model.ModeWithCrew {
		jsonError(w, http.StatusBadRequest, "mode must be 'advance-shipment' or 'with-crew'")
		return
	}

	allocation, err := store.Allocate(r.Context(), h.DB, req.LineID, req.SerialNumber,
		req.Quantity, req.Mode, req.Carrier, req.Responsible, userID(r.Context()))
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("material allocated", "event", allocation.EventName,
		"material", allocation.MaterialName, "serial", allocation.SerialNumber,
		"quantity", allocation.Quantity, "mode", allocation.Mode)
	notifyAsync(h.Notifier, notify.ActionAllocated, allocation)
	jsonResponse(w, http.StatusCreated, allocation)
}

// List handles GET /api/allocations.
func (h *AllocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	var eventID, materialID int64
	if v := r.URL.Query().Get("event_id"); v != "" {
		eventID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("material_id"); v != "" {
		materialID, _ = strconv.ParseInt(v, 10, 64)
	}
	status := r.URL.Query().Get("status")

	allocations, err := store.ListAllocations(r.Context(), h.DB, eventID, materialID, status)
	if err != nil {
		storeError(w, err)
		return
	}
	if allocations == nil {
		allocations = []model.Allocation{}
	}
	jsonResponse(w, http.StatusOK, allocations)
}

// Get handles GET /api/allocations/{id}.
func (h *AllocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid allocation id")
		return
	}

	allocation, err := store.GetAllocation(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if allocation == nil {
		jsonError(w, http.StatusNotFound, "allocation not found")
		return
	}

	jsonResponse(w, http.StatusOK, allocation)
}

// Delete handles DELETE /api/allocations/{id}.
func (h *AllocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid allocation id")
		return
	}

	// Read first: the row is gone once the cancellation commits, and the
	// notification still needs its details.
	allocation, err := store.GetAllocation(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if allocation == nil {
		jsonError(w, http.StatusNotFound, "allocation not found")
		return
	}

	if err := store.Deallocate(r.Context(), h.DB, id, userID(r.Context())); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("allocation cancelled", "allocation", id)
	notifyAsync(h.Notifier, notify.ActionDeallocated, allocation)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "allocation cancelled"})
}
