package handlers

import (
	"encoding/json"
	"net/http"

	"cwcinspect/middleware"
	"cwcinspect/service"
)

type TaskHandler struct {
	svc *service.Service
}

func NewTaskHandler(svc *service.Service) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// GetTasks returns the reports awaiting the officer's action
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, "Session not found in context", http.StatusUnauthorized)
		return
	}

	tasks := h.svc.Tasks(sess)
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Act applies COMPLY or APPROVE to a report
func (h *TaskHandler) Act(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, "Session not found in context", http.StatusUnauthorized)
		return
	}

	var req service.ActionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.svc.Act(sess, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"report": report,
	})
}
