package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"example.com/fieldactivity/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Type   string              `json:"type"`
	Detail string              `json:"detail"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *domain.ValidationError
		aerr *domain.AttachmentError
		serr *domain.StorageError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Type: "validation_failed", Detail: "Validation failed", Errors: verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
	case errors.Is(err, domain.ErrAdminRequired):
		writeError(w, http.StatusForbidden, "forbidden", "admin role required")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "Unauthorized")
	case errors.As(err, &aerr):
		h.log.Warn("attachment upload failed", "path", r.URL.Path, "index", aerr.Index, "error", aerr.Err)
		writeError(w, http.StatusBadGateway, "attachment_failed", "attachment "+aerr.Name+" could not be stored")
	case errors.As(err, &serr):
		h.log.Error("storage failure", "path", r.URL.Path, "op", serr.Op, "error", serr.Err)
		writeError(w, http.StatusInternalServerError, "server_error", "storage failure")
	default:
		h.log.Error("unhandled service error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Type: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
