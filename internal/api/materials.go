package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/store"
)

// MaterialsHandler handles the material catalog endpoints.
type MaterialsHandler struct {
	DB *sql.DB
}

type createMaterialRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Control     string `json:"control"`
	Description string `json:"description"`
	InitialQty  int    `json:"initial_qty"`
}

type updateMaterialRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type adjustQuantityRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type restoreQuantityRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// List handles GET /api/materials.
func (h *MaterialsHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	materials, err := store.ListMaterials(r.Context(), h.DB, category)
	if err != nil {
		storeError(w, err)
		return
	}
	if materials == nil {
		materials = []model.Material{}
	}
	jsonResponse(w, http.StatusOK, materials)
}

// Create handles POST /api/materials.
func (h *MaterialsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	control := model.ControlMode(req.Control)
	if !control.Valid() {
		jsonError(w, http.StatusBadRequest, "control must be 'serialized' or 'quantity'")
		return
	}

	material, err := store.CreateMaterial(r.Context(), h.DB, req.Name, req.Category, control, req.Description, req.InitialQty, userID(r.Context()))
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("material created", "material", material.Name, "control", material.Control)
	jsonResponse(w, http.StatusCreated, material)
}

// Get handles GET /api/materials/{id}.
func (h *MaterialsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	material, err := store.GetMaterial(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if material == nil {
		jsonError(w, http.StatusNotFound, "material not found")
		return
	}

	jsonResponse(w, http.StatusOK, material)
}

// Update handles PUT /api/materials/{id}.
func (h *MaterialsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	var req updateMaterialRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdateMaterial(r.Context(), h.DB, id, req.Name, req.Category, req.Description); err != nil {
		storeError(w, err)
		return
	}

	material, _ := store.GetMaterial(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, material)
}

// Delete handles DELETE /api/materials/{id}.
func (h *MaterialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	if err := store.DeleteMaterial(r.Context(), h.DB, id); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "material deleted"})
}

// Adjust handles POST /api/materials/{id}/adjust.
func (h *MaterialsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	var req adjustQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 {
		jsonError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	material, err := store.AdjustQuantity(r.Context(), h.DB, id, req.Delta, req.Reason, userID(r.Context()))
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("stock adjusted", "material", material.Name, "delta", req.Delta, "reason", req.Reason)
	jsonResponse(w, http.StatusOK, material)
}

// Restore handles POST /api/materials/{id}/restore.
func (h *MaterialsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	var req restoreQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	material, err := store.RestoreQuantity(r.Context(), h.DB, id, req.Quantity, req.Reason, userID(r.Context()))
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("stock restored", "material", material.Name, "quantity", req.Quantity)
	jsonResponse(w, http.StatusOK, material)
}

// Summary handles GET /api/materials/{id}/summary.
func (h *MaterialsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	summary, err := store.GetMaterialSummary(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if summary == nil {
		jsonError(w, http.StatusNotFound, "material not found")
		return
	}

	jsonResponse(w, http.StatusOK, summary)
}

// Movements handles GET /api/materials/{id}/movements.
func (h *MaterialsHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	serial := r.URL.Query().Get("serial")
	movements, err := store.ListMovementsByMaterial(r.Context(), h.DB, id, serial)
	if err != nil {
		storeError(w, err)
		return
	}
	if movements == nil {
		movements = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, movements)
}
