package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/imaging"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/store"
)

// ProofsHandler stores and serves return evidence photos. A stored proof is
// referenced from ledger entries as "proof:<id>".
type ProofsHandler struct {
	DB *sql.DB
}

type proofResponse struct {
	ID     int64  `json:"id"`
	Ref    string `json:"ref"`
	MIME   string `json:"mime"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Upload handles POST /api/proofs.
func (h *ProofsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	processed, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	proof, err := store.CreateProof(r.Context(), h.DB, processed.Data, processed.MIME,
		processed.Width, processed.Height, userID(r.Context()))
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, proofResponse{
		ID:     proof.ID,
		Ref:    fmt.Sprintf("proof:%d", proof.ID),
		MIME:   proof.MIME,
		Width:  proof.Width,
		Height: proof.Height,
	})
}

// Get handles GET /api/proofs/{id}.
func (h *ProofsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid proof id")
		return
	}

	data, mime, err := store.GetProofData(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "proof not found")
		return
	}

	if r.URL.Query().Get("thumb") == "1" {
		thumb, err := imaging.Thumbnail(data)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "generating thumbnail")
			return
		}
		data, mime = thumb, "image/jpeg"
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
