package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"cwcinspect/export"
	"cwcinspect/metrics"
	"cwcinspect/middleware"
	"cwcinspect/service"
)

type DashboardHandler struct {
	svc      *service.Service
	archiver export.Archiver
	logger   logrus.FieldLogger
}

// NewDashboardHandler returns the dashboard endpoints. archiver may be nil
// when no bucket is configured.
func NewDashboardHandler(svc *service.Service, archiver export.Archiver, logger logrus.FieldLogger) *DashboardHandler {
	return &DashboardHandler{
		svc:      svc,
		archiver: archiver,
		logger:   logger,
	}
}

// GetDashboard returns officer statistics for ?year=&month=, defaulting to
// the current month
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	period, err := h.period(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"summary": h.svc.Dashboard(period),
	})
}

// ExportDashboard downloads the dashboard as an XLSX workbook
func (h *DashboardHandler) ExportDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	period, err := h.period(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, h.svc.Dashboard(period)); err != nil {
		h.logger.WithError(err).Error("failed to build dashboard workbook")
		writeError(w, "Failed to build workbook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", export.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=dashboard-%04d-%02d.xlsx", period.Year, int(period.Month)))
	w.Write(buf.Bytes())
}

// ArchiveDashboard stores the period's workbook in the archive bucket
func (h *DashboardHandler) ArchiveDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.archiver == nil {
		writeError(w, "Archive storage not configured", http.StatusServiceUnavailable)
		return
	}

	period, err := h.period(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, h.svc.Dashboard(period)); err != nil {
		h.logger.WithError(err).Error("failed to build dashboard workbook")
		writeError(w, "Failed to build workbook", http.StatusInternalServerError)
		return
	}

	name := export.ObjectName(period)
	url, err := h.archiver.Archive(r.Context(), name, export.XLSXContentType, buf.Bytes())
	if err != nil {
		h.logger.WithError(err).WithField("object", name).Error("failed to archive dashboard")
		writeError(w, "Failed to archive dashboard", http.StatusBadGateway)
		return
	}

	fields := logrus.Fields{"object": name}
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		fields["officer"] = sess.Officer.Name
	}
	h.logger.WithFields(fields).Info("dashboard archived")

	writeJSON(w, h.svc, http.StatusCreated, map[string]interface{}{
		"url": url,
	})
}

func (h *DashboardHandler) period(r *http.Request) (metrics.Period, error) {
	period := h.svc.CurrentPeriod()
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 1 {
			return metrics.Period{}, errors.New("invalid year")
		}
		period.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return metrics.Period{}, errors.New("invalid month")
		}
		period.Month = time.Month(month)
	}
	return period, nil
}
