package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding response: %v", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// storeError maps a store-layer error to an HTTP response. Rule violations
// become client errors carrying the rule's message; anything else means the
// storage layer itself failed and the caller should retry later.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrDuplicateSerialNumber),
		errors.Is(err, model.ErrSerialInUse),
		errors.Is(err, model.ErrSerialUnavailable),
		errors.Is(err, model.ErrInsufficientStock),
		errors.Is(err, model.ErrAlreadyReturned),
		errors.Is(err, model.ErrAllocationNotReversible):
		jsonError(w, http.StatusConflict, err.Error())
	case model.IsBusinessError(err):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("storage error: %v", err)
		jsonError(w, http.StatusServiceUnavailable, "storage unavailable, try again")
	}
}
