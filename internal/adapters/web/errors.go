package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventory-ledger/internal/core"
)

type errorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
		Details:   details,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = jsonEncode(w, v)
}

func jsonEncode(w http.ResponseWriter, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// writeServiceError maps core errors onto HTTP responses. Rejections carry
// enough structured detail for a caller to fix the request without another
// round trip; anything unrecognized is a 500 with no internals leaked.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *core.ValidationError
		refErr        *core.ReferenceError
		stockErr      *core.InsufficientStockError
		capErr        *core.CapacityExceededError
		deletedErr    *core.AlreadyDeletedError
		notFoundErr   *core.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		writeErrorDetails(w, r, validationErr.Error(), "VALIDATION_FAILED", http.StatusBadRequest,
			map[string]any{"field": validationErr.Field})

	case errors.As(err, &refErr):
		writeErrorDetails(w, r, refErr.Error(), "BAD_REFERENCE", http.StatusBadRequest,
			map[string]any{"entity": refErr.Entity, "id": refErr.ID, "reason": refErr.Reason})

	case errors.As(err, &stockErr):
		writeErrorDetails(w, r, stockErr.Error(), "INSUFFICIENT_STOCK", http.StatusBadRequest,
			map[string]any{
				"item_id":   stockErr.ItemID,
				"current":   stockErr.Current,
				"requested": stockErr.Requested,
			})

	case errors.As(err, &capErr):
		writeErrorDetails(w, r, capErr.Error(), "CAPACITY_EXCEEDED", http.StatusBadRequest,
			map[string]any{
				"warehouse_id":   capErr.WarehouseID,
				"warehouse_name": capErr.WarehouseName,
				"capacity":       capErr.Capacity,
				"used":           capErr.Used,
				"requested":      capErr.Requested,
				"available":      capErr.Available(),
			})

	case errors.As(err, &deletedErr):
		writeErrorDetails(w, r, deletedErr.Error(), "ALREADY_DELETED", http.StatusBadRequest,
			map[string]any{"entry_id": deletedErr.EntryID})

	case errors.As(err, &notFoundErr):
		writeError(w, r, notFoundErr.Error(), "NOT_FOUND", http.StatusNotFound)

	case errors.Is(err, core.ErrReauthenticationFailed):
		writeError(w, r, "password verification failed", "REAUTH_FAILED", http.StatusUnauthorized)

	case errors.Is(err, core.ErrValidation):
		writeError(w, r, err.Error(), "VALIDATION_FAILED", http.StatusBadRequest)

	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)

	default:
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// decodeJSON decodes the request body into v, writing the error response
// itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
