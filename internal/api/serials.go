package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/store"
)

// SerialsHandler handles per-unit endpoints for serialized materials.
type SerialsHandler struct {
	DB *sql.DB
}

type createSerialRequest struct {
	Number   string `json:"number"`
	Location string `json:"location"`
	Tags     string `json:"tags"`
}

type updateSerialRequest struct {
	Location string `json:"location"`
	Tags     string `json:"tags"`
}

// List handles GET /api/materials/{id}/serials.
func (h *SerialsHandler) List(w http.ResponseWriter, r *http.Request) {
	materialID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	status := r.URL.Query().Get("status")
	serials, err := store.ListSerials(r.Context(), h.DB, materialID, status)
	if err != nil {
		storeError(w, err)
		return
	}
	if serials == nil {
		serials = []model.Serial{}
	}
	jsonResponse(w, http.StatusOK, serials)
}

// Create handles POST /api/materials/{id}/serials.
func (h *SerialsHandler) Create(w http.ResponseWriter, r *http.Request) {
	materialID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	var req createSerialRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Number == "" {
		jsonError(w, http.StatusBadRequest, "serial number required")
		return
	}

	serial, err := store.CreateSerial(r.Context(), h.DB, materialID, req.Number, req.Location, req.Tags, userID(r.Context()))
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("serial registered", "material", serial.MaterialName, "serial", serial.Number)
	jsonResponse(w, http.StatusCreated, serial)
}

// Get handles GET /api/materials/{id}/serials/{number}.
func (h *SerialsHandler) Get(w http.ResponseWriter, r *http.Request) {
	materialID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	serial, err := store.GetSerial(r.Context(), h.DB, materialID, r.PathValue("number"))
	if err != nil {
		storeError(w, err)
		return
	}
	if serial == nil {
		jsonError(w, http.StatusNotFound, "serial not found")
		return
	}

	jsonResponse(w, http.StatusOK, serial)
}

// Update handles PUT /api/materials/{id}/serials/{number}.
func (h *SerialsHandler) Update(w http.ResponseWriter, r *http.Request) {
	materialID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	var req updateSerialRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	number := r.PathValue("number")
	if err := store.UpdateSerial(r.Context(), h.DB, materialID, number, req.Location, req.Tags); err != nil {
		storeError(w, err)
		return
	}

	serial, _ := store.GetSerial(r.Context(), h.DB, materialID, number)
	if serial == nil {
		jsonError(w, http.StatusNotFound, "serial not found")
		return
	}
	jsonResponse(w, http.StatusOK, serial)
}

// Delete handles DELETE /api/materials/{id}/serials/{number}.
func (h *SerialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	materialID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	number := r.PathValue("number")
	if err := store.DeleteSerial(r.Context(), h.DB, materialID, number, userID(r.Context())); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("serial removed", "material_id", materialID, "serial", number)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "serial deleted"})
}
