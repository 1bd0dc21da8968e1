package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"cwcinspect/db"
	"cwcinspect/models"
)

// OfflineNotice is shown once a write to the remote store has failed.
const OfflineNotice = "Offline mode: changes are saved locally but could not be sent to the remote store"

// Propagator mirrors local changes to the remote store without blocking
// the caller. Failed writes are logged and not retried; the first failure
// switches the propagator into offline mode for the rest of its life.
type Propagator struct {
	remote db.Remote
	logger logrus.FieldLogger

	wg       sync.WaitGroup
	offline  atomic.Bool
	failures atomic.Int64
}

// NewPropagator returns a propagator writing to remote.
func NewPropagator(remote db.Remote, logger logrus.FieldLogger) *Propagator {
	return &Propagator{
		remote: remote,
		logger: logger.WithField("component", "propagator"),
	}
}

// AppendReport sends a new report.
func (p *Propagator) AppendReport(report models.Report) {
	p.dispatch(db.ActionSubmit, logrus.Fields{"report_id": report.ID}, func(ctx context.Context) error {
		return p.remote.AppendReport(ctx, report)
	})
}

// UpdateStatus sends a status transition.
func (p *Propagator) UpdateStatus(update models.StatusUpdate) {
	p.dispatch(db.ActionUpdateStatus, logrus.Fields{"report_id": update.ReportID, "status": update.NewStatus}, func(ctx context.Context) error {
		return p.remote.UpdateStatus(ctx, update)
	})
}

// UpsertOfficer sends an officer record.
func (p *Propagator) UpsertOfficer(upsert models.OfficerUpsert) {
	fields := logrus.Fields{"officer": upsert.Officer.Name, "old_name": upsert.OldName}
	action := db.ActionAddUser
	if upsert.Update {
		action = db.ActionUpdateUser
	}
	p.dispatch(action, fields, func(ctx context.Context) error {
		return p.remote.UpsertOfficer(ctx, upsert)
	})
}

// Offline reports whether any write has failed.
func (p *Propagator) Offline() bool {
	return p.offline.Load()
}

// Failures returns the number of failed writes.
func (p *Propagator) Failures() int64 {
	return p.failures.Load()
}

// Wait blocks until every dispatched write has finished.
func (p *Propagator) Wait() {
	p.wg.Wait()
}

func (p *Propagator) dispatch(op string, fields logrus.Fields, send func(context.Context) error) {
	if p.remote == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log := p.logger.WithFields(fields).WithField("op", op)
		if err := send(context.Background()); err != nil {
			p.failures.Add(1)
			if !p.offline.Swap(true) {
				log.Warn("remote store unreachable, continuing offline")
			}
			log.WithError(err).Error("propagation failed")
			return
		}
		log.Debug("propagated")
	}()
}
