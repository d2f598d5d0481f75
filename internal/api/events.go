package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/store"
)

// EventsHandler handles event and checklist endpoints.
type EventsHandler struct {
	DB *sql.DB
}

type createEventRequest struct {
	Name     string     `json:"name"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

type addChecklistLineRequest struct {
	MaterialID  int64 `json:"material_id"`
	RequiredQty int   `json:"required_qty"`
}

// List handles GET /api/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := store.ListEvents(r.Context(), h.DB)
	if err != nil {
		storeError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	jsonResponse(w, http.StatusOK, events)
}

// Create handles POST /api/events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	event, err := store.CreateEvent(r.Context(), h.DB, req.Name, req.StartsAt, req.EndsAt)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, event)
}

// Get handles GET /api/events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	event, err := store.GetEvent(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if event == nil {
		jsonError(w, http.StatusNotFound, "event not found")
		return
	}

	jsonResponse(w, http.StatusOK, event)
}

// Checklist handles GET /api/events/{id}/checklist.
func (h *EventsHandler) Checklist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	lines, err := store.ListChecklist(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if lines == nil {
		lines = []model.ChecklistLine{}
	}
	jsonResponse(w, http.StatusOK, lines)
}

// AddLine handles POST /api/events/{id}/checklist.
func (h *EventsHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req addChecklistLineRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaterialID == 0 || req.RequiredQty <= 0 {
		jsonError(w, http.StatusBadRequest, "material_id and positive required_qty required")
		return
	}

	line, err := store.AddChecklistLine(r.Context(), h.DB, id, req.MaterialID, req.RequiredQty)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, line)
}

// DeleteLine handles DELETE /api/events/{id}/checklist/{lineID}.
func (h *EventsHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(r.PathValue("lineID"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid checklist line id")
		return
	}

	if err := store.DeleteChecklistLine(r.Context(), h.DB, lineID); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "checklist line deleted"})
}

// PendingReturns handles GET /api/events/{id}/pending-returns.
func (h *EventsHandler) PendingReturns(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	pending, err := store.ListPendingReturns(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if pending == nil {
		pending = []model.Allocation{}
	}
	jsonResponse(w, http.StatusOK, pending)
}

// Movements handles GET /api/events/{id}/movements.
func (h *EventsHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	movements, err := store.ListMovementsByEvent(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if movements == nil {
		movements = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, movements)
}
