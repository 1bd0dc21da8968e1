package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"cwcinspect/auth"
	"cwcinspect/export"
	"cwcinspect/handlers"
	"cwcinspect/middleware"
	"cwcinspect/models"
	"cwcinspect/service"
)

type app struct {
	svc           *service.Service
	jwtManager    *auth.JWTManager
	archiver      export.Archiver
	rateLimiter   *middleware.RateLimiter
	logger        *logrus.Logger
	origins       []string
	secureCookies bool
}

func (a *app) routes() http.Handler {
	authHandler := handlers.NewAuthHandler(a.svc, a.jwtManager, a.logger, a.secureCookies)
	siteHandler := handlers.NewSiteHandler(a.svc, a.logger)
	taskHandler := handlers.NewTaskHandler(a.svc)
	dashboardHandler := handlers.NewDashboardHandler(a.svc, a.archiver, a.logger)
	adminHandler := handlers.NewAdminHandler(a.svc, a.logger)

	audit := auditRequests(a.logger)
	authMiddleware := middleware.AuthMiddleware(a.jwtManager, a.svc)
	public := func(h http.HandlerFunc) http.Handler { return audit(h) }
	protected := func(h http.Handler) http.Handler { return authMiddleware(audit(h)) }

	mux := http.NewServeMux()

	// Public routes (no authentication required)
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/api/officers", public(authHandler.Officers))
	mux.Handle("/api/login", public(authHandler.Login))
	mux.Handle("/api/refresh", public(authHandler.RefreshToken))
	mux.Handle("/api/logout", public(authHandler.Logout))

	// Any logged-in officer
	mux.Handle("/api/session", protected(http.HandlerFunc(authHandler.Session)))
	mux.Handle("/api/sites", protected(http.HandlerFunc(siteHandler.GetSites)))
	mux.Handle("/api/sites/history", protected(http.HandlerFunc(siteHandler.GetHistory)))
	mux.Handle("/api/tasks", protected(http.HandlerFunc(taskHandler.GetTasks)))
	mux.Handle("/api/tasks/action", protected(http.HandlerFunc(taskHandler.Act)))

	notAdmin := middleware.ExcludeLevel(models.LevelAdmin)
	mux.Handle("/api/reports", protected(notAdmin(http.HandlerFunc(siteHandler.SubmitReport))))

	exporters := middleware.RequireLevel(models.LevelEE, models.LevelSE, models.LevelCE, models.LevelAdmin)
	mux.Handle("/api/reports/export", protected(exporters(http.HandlerFunc(siteHandler.ExportReports))))

	// Dashboard (everyone above sub-division level)
	notSDO := middleware.ExcludeLevel(models.LevelSDO)
	mux.Handle("/api/dashboard", protected(notSDO(http.HandlerFunc(dashboardHandler.GetDashboard))))
	mux.Handle("/api/dashboard/export", protected(notSDO(http.HandlerFunc(dashboardHandler.ExportDashboard))))

	// Admin endpoints (admin only)
	adminOnly := middleware.RequireLevel(models.LevelAdmin)
	mux.Handle("/api/dashboard/archive", protected(adminOnly(http.HandlerFunc(dashboardHandler.ArchiveDashboard))))
	mux.Handle("/api/admin/officers", protected(adminOnly(http.HandlerFunc(adminHandler.GetOfficers))))
	mux.Handle("/api/admin/officers/create", protected(adminOnly(http.HandlerFunc(adminHandler.CreateOfficer))))
	mux.Handle("/api/admin/officers/update", protected(adminOnly(http.HandlerFunc(adminHandler.UpdateOfficer))))
	mux.Handle("/api/admin/locations", protected(adminOnly(http.HandlerFunc(adminHandler.GetLocations))))
	mux.Handle("/api/admin/reload", protected(adminOnly(http.HandlerFunc(adminHandler.Reload))))

	// Apply global middleware
	handler := middleware.CORSMiddleware(a.origins)(mux)
	if a.rateLimiter != nil {
		handler = a.rateLimiter.Middleware()(handler)
	}
	return handler
}

// Health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	})
}
