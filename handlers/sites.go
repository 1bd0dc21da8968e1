package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"cwcinspect/export"
	"cwcinspect/middleware"
	"cwcinspect/service"
)

type SiteHandler struct {
	svc    *service.Service
	logger logrus.FieldLogger
}

func NewSiteHandler(svc *service.Service, logger logrus.FieldLogger) *SiteHandler {
	return &SiteHandler{
		svc:    svc,
		logger: logger,
	}
}

// GetSites returns the sites visible to the officer, filtered by ?q=
func (h *SiteHandler) GetSites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, "Session not found in context", http.StatusUnauthorized)
		return
	}

	sites := h.svc.Sites(sess, r.URL.Query().Get("q"))
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"sites": sites,
		"count": len(sites),
	})
}

// GetHistory returns every report filed against ?site=
func (h *SiteHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	site := strings.TrimSpace(r.URL.Query().Get("site"))
	if site == "" {
		writeError(w, "site is required", http.StatusBadRequest)
		return
	}

	reports := h.svc.SiteHistory(site)
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"site":    site,
		"reports": reports,
		"count":   len(reports),
	})
}

// SubmitReport logs a new observation
func (h *SiteHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, "Session not found in context", http.StatusUnauthorized)
		return
	}

	var req service.ObservationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.svc.SubmitObservation(sess, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, h.svc, http.StatusCreated, map[string]interface{}{
		"report": report,
	})
}

// ExportReports downloads the full report log as CSV
func (h *SiteHandler) ExportReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", export.CSVContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=reports.csv")
	if err := export.WriteReportsCSV(w, h.svc.Reports(), h.svc.Location()); err != nil {
		h.logger.WithError(err).Error("failed to write reports csv")
	}
}
