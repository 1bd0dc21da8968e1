package db

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"cwcinspect/models"
	"cwcinspect/store"
)

const (
	sitesCollection    = "sites"
	officersCollection = "officers"
	reportsCollection  = "reports"
)

// FirestoreDB is the Firestore-backed system of record.
type FirestoreDB struct {
	client *firestore.Client
	logger logrus.FieldLogger
}

// NewFirestoreDB initializes a new Firestore client
func NewFirestoreDB(ctx context.Context, projectID, credentialsPath string, logger logrus.FieldLogger) (*FirestoreDB, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	logger = logger.WithField("component", "firestore")
	logger.WithField("project", projectID).Info("connected to Firestore")

	return &FirestoreDB{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Firestore client
func (db *FirestoreDB) Close() error {
	return db.client.Close()
}

// LoadAll reads every site, officer and report.
func (db *FirestoreDB) LoadAll(ctx context.Context) (*models.Dataset, error) {
	ds := &models.Dataset{}
	var err error
	if ds.Sites, err = readAll[models.Site](ctx, db, sitesCollection); err != nil {
		return nil, err
	}
	if ds.Officers, err = readAll[models.Officer](ctx, db, officersCollection); err != nil {
		return nil, err
	}
	if ds.Reports, err = readAll[models.Report](ctx, db, reportsCollection); err != nil {
		return nil, err
	}
	return ds, nil
}

func readAll[T any](ctx context.Context, db *FirestoreDB, collection string) ([]T, error) {
	iter := db.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	var out []T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
		}

		var item T
		if err := doc.DataTo(&item); err != nil {
			db.logger.WithError(err).WithField("doc", doc.Ref.ID).Warnf("skipping unparsable %s document", collection)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// --- Site Operations ---

// PutSite writes a site; used only when seeding.
func (db *FirestoreDB) PutSite(ctx context.Context, site models.Site) error {
	_, err := db.client.Collection(sitesCollection).Doc(strconv.FormatInt(site.ID, 10)).Set(ctx, site)
	if err != nil {
		return fmt.Errorf("failed to put site: %w", err)
	}
	return nil
}

// --- Report Operations ---

// AppendReport stores a new report keyed by its id.
func (db *FirestoreDB) AppendReport(ctx context.Context, report models.Report) error {
	_, err := db.client.Collection(reportsCollection).Doc(strconv.FormatInt(report.ID, 10)).Set(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to append report: %w", err)
	}
	return nil
}

// UpdateStatus merges the new status and compliance note into a report.
func (db *FirestoreDB) UpdateStatus(ctx context.Context, update models.StatusUpdate) error {
	doc := db.client.Collection(reportsCollection).Doc(strconv.FormatInt(update.ReportID, 10))
	_, err := doc.Set(ctx, map[string]interface{}{
		"status":          string(update.NewStatus),
		"compliance_note": update.Note,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}
	return nil
}

// --- Officer Operations ---

// UpsertOfficer writes the officer document keyed by surrogate id. An
// update first resolves the existing document by its previous name, since
// that is the only key other clients share.
func (db *FirestoreDB) UpsertOfficer(ctx context.Context, upsert models.OfficerUpsert) error {
	officer := upsert.Officer
	docID := officer.ID

	if upsert.Update && upsert.OldName != "" {
		iter := db.client.Collection(officersCollection).
			Where("name", "==", upsert.OldName).
			Limit(1).
			Documents(ctx)
		doc, err := iter.Next()
		iter.Stop()
		switch {
		case err == iterator.Done:
			db.logger.WithField("old_name", upsert.OldName).Warn("officer to update not found, creating")
		case err != nil:
			return fmt.Errorf("failed to look up officer: %w", err)
		default:
			docID = doc.Ref.ID
		}
	}
	if docID == "" {
		docID = store.OfficerIDForName(officer.Name)
	}

	if _, err := db.client.Collection(officersCollection).Doc(docID).Set(ctx, officer); err != nil {
		return fmt.Errorf("failed to upsert officer: %w", err)
	}
	return nil
}
