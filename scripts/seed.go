package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"cwcinspect/config"
	"cwcinspect/db"
	"cwcinspect/models"
	"cwcinspect/store"
)

// Seeds Firestore with the built-in dataset, or with a YAML file in the
// same shape when -file is given.
func main() {
	file := flag.String("file", "", "YAML dataset to seed instead of the built-in one")
	flag.Parse()

	logger := logrus.New()
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment variables")
	}

	cfg := config.Load()
	if cfg.Firebase.ProjectID == "" {
		logger.Fatal("FIREBASE_PROJECT_ID must be set")
	}

	ds, err := loadDataset(*file)
	if err != nil {
		logger.WithError(err).Fatal("failed to load dataset")
	}

	ctx := context.Background()
	firestoreDB, err := db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize Firestore")
	}
	defer firestoreDB.Close()

	logger.Info("starting database seeding")

	for _, site := range ds.Sites {
		if err := firestoreDB.PutSite(ctx, site); err != nil {
			logger.WithError(err).WithField("site", site.Name).Fatal("failed to seed site")
		}
	}
	for _, officer := range ds.Officers {
		if officer.ID == "" {
			officer.ID = store.OfficerIDForName(officer.Name)
		}
		if err := firestoreDB.UpsertOfficer(ctx, models.OfficerUpsert{Officer: officer}); err != nil {
			logger.WithError(err).WithField("officer", officer.Name).Fatal("failed to seed officer")
		}
	}
	for _, report := range ds.Reports {
		if err := firestoreDB.AppendReport(ctx, report); err != nil {
			logger.WithError(err).WithField("report_id", report.ID).Fatal("failed to seed report")
		}
	}

	logger.WithFields(logrus.Fields{
		"sites":    len(ds.Sites),
		"officers": len(ds.Officers),
		"reports":  len(ds.Reports),
	}).Info("database seeding completed")
}

func loadDataset(path string) (*models.Dataset, error) {
	if path == "" {
		return db.Fallback(time.Now())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ds models.Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &ds, nil
}
