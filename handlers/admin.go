package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"cwcinspect/middleware"
	"cwcinspect/models"
	"cwcinspect/service"
)

type AdminHandler struct {
	svc    *service.Service
	logger logrus.FieldLogger
}

func NewAdminHandler(svc *service.Service, logger logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{
		svc:    svc,
		logger: logger,
	}
}

// --- Officer Management ---

// GetOfficers returns the full roster including passwords
func (h *AdminHandler) GetOfficers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, "Session not found in context", http.StatusUnauthorized)
		return
	}

	officers, err := h.svc.Roster(sess)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"officers": officers,
		"count":    len(officers),
	})
}

// CreateOfficer adds an officer to the roster
func (h *AdminHandler) CreateOfficer(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, h.svc.CreateOfficer, http.StatusCreated)
}

// UpdateOfficer edits the officer named old_name
func (h *AdminHandler) UpdateOfficer(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, h.svc.UpdateOfficer, http.StatusOK)
}

type upsertFunc func(service.Session, service.OfficerInput) (models.Officer, error)

func (h *AdminHandler) upsert(w http.ResponseWriter, r *http.Request, apply upsertFunc, status int) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, "Session not found in context", http.StatusUnauthorized)
		return
	}

	var req service.OfficerInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	officer, err := apply(sess, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, h.svc, status, map[string]interface{}{
		"officer": officer,
	})
}

// --- Jurisdictions ---

// GetLocations returns the values offered by the jurisdiction picker
func (h *AdminHandler) GetLocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	opts := h.svc.JurisdictionOptions()
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"subDivisions": opts.SubDivisions,
		"locations":    opts.Locations,
	})
}

// --- Data ---

// Reload refetches the dataset from the remote store
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fromRemote, err := h.svc.Load(r.Context())
	if errors.Is(err, service.ErrRemoteUnavailable) {
		h.logger.WithError(err).Warn("reload skipped")
		writeError(w, "Remote store unavailable, local data kept", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("reload failed")
		writeError(w, "Failed to reload data", http.StatusInternalServerError)
		return
	}

	source := "remote"
	if !fromRemote {
		source = "fallback"
	}
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"source": source,
	})
}
