package handlers

import (
	"encoding/json"
	"net/http"

	"dialog/internal/core/domain"
	"dialog/internal/platform/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain taxonomy onto HTTP. NotFound and AccessDenied
// propagate unmodified from the point of check; nothing here wraps or
// retries.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	switch {
	case domain.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case domain.IsAccessDenied(err):
		http.Error(w, err.Error(), http.StatusForbidden)
	case domain.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.ErrorContext(r.Context(), "handler - request failed", logger.Err(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
