package db

import (
	"context"
	"errors"

	"cwcinspect/models"
)

// Write actions understood by the remote store.
const (
	ActionSubmit       = "SUBMIT"
	ActionUpdateStatus = "UPDATE_STATUS"
	ActionAddUser      = "ADD_USER"
	ActionUpdateUser   = "UPDATE_USER"
)

// ErrUnexpectedStatus is returned when load-all answers without success.
var ErrUnexpectedStatus = errors.New("remote store returned non-success status")

// Remote is the system of record. Writes are notifications: callers do
// not read anything back from them.
type Remote interface {
	LoadAll(ctx context.Context) (*models.Dataset, error)
	AppendReport(ctx context.Context, report models.Report) error
	UpdateStatus(ctx context.Context, update models.StatusUpdate) error
	UpsertOfficer(ctx context.Context, upsert models.OfficerUpsert) error
	Close() error
}

// upsertAction names the remote action for an officer upsert.
func upsertAction(u models.OfficerUpsert) string {
	if u.Update {
		return ActionUpdateUser
	}
	return ActionAddUser
}
