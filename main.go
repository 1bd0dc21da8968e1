// main.go
// CWC Site Inspection API
// Serves the inspection workflow over a Sheets or Firestore backed dataset

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cwcinspect/auth"
	"cwcinspect/config"
	"cwcinspect/db"
	"cwcinspect/export"
	"cwcinspect/middleware"
	"cwcinspect/service"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg.Logging)
	if envErr != nil {
		logger.Info("no .env file found, using system environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	logger.WithFields(logrus.Fields{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"backend":     cfg.Remote.Backend,
	}).Info("starting CWC inspection API")

	ctx := context.Background()
	loc, _ := cfg.Location()
	remote, err := openRemote(ctx, cfg, loc, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize remote store")
	}
	defer remote.Close()

	svc := service.New(remote, service.Options{Logger: logger, Location: loc})
	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.Remote.Timeout)
	if _, err := svc.Load(loadCtx); err != nil {
		cancelLoad()
		logger.WithError(err).Fatal("failed to load dataset")
	}
	cancelLoad()

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	logger.WithField("expiration", cfg.JWT.Expiration).Info("JWT manager initialized")

	var archiver export.Archiver
	if gcs, err := export.NewGCSArchiver(ctx, cfg.Archive.Bucket, cfg.Firebase.CredentialsPath); err == nil {
		defer gcs.Close()
		archiver = gcs
		logger.WithField("bucket", cfg.Archive.Bucket).Info("dashboard archive enabled")
	} else if !errors.Is(err, export.ErrArchiveDisabled) {
		logger.WithError(err).Warn("dashboard archive unavailable")
	}

	stop := make(chan struct{})
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters(stop)
	logger.WithFields(logrus.Fields{
		"requests": cfg.RateLimit.Requests,
		"window":   cfg.RateLimit.Window,
	}).Info("rate limiter initialized")

	a := &app{
		svc:           svc,
		jwtManager:    jwtManager,
		archiver:      archiver,
		rateLimiter:   rateLimiter,
		logger:        logger,
		origins:       cfg.CORS.AllowedOrigins,
		secureCookies: cfg.IsProduction(),
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	close(stop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	// Let in-flight remote writes finish before the client closes.
	svc.Wait()
	logger.Info("server stopped gracefully")
}

func openRemote(ctx context.Context, cfg *config.Config, loc *time.Location, logger *logrus.Logger) (db.Remote, error) {
	switch cfg.Remote.Backend {
	case config.BackendFirestore:
		return db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath, logger)
	default:
		return db.NewSheetsClient(cfg.Remote.ScriptURL, cfg.Remote.Timeout, logger).WithLocation(loc), nil
	}
}
