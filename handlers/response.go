package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"cwcinspect/service"
)

// Noticer reports the offline notice to attach to responses.
type Noticer interface {
	Notice() string
}

// writeJSON encodes body with the offline notice added once a remote write
// has failed.
func writeJSON(w http.ResponseWriter, n Noticer, status int, body map[string]interface{}) {
	if notice := n.Notice(); notice != "" {
		body["notice"] = notice
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeServiceError maps a service error onto an HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "Validation failed",
			"fields": verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotActionable):
		writeError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrSiteNotFound), errors.Is(err, service.ErrReportNotFound), errors.Is(err, service.ErrOfficerNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrReportClosed), errors.Is(err, service.ErrDuplicateOfficer):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidAction):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}
