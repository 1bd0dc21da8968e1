// Package store keeps the session's in-memory view of the remote system of
// record: the report repository, the officer roster and the site catalog.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cwcinspect/models"
	"cwcinspect/workflow"
)

// ErrReportNotFound is returned when no report has the requested id.
var ErrReportNotFound = errors.New("report not found")

// Repository is the ordered, append-only collection of reports. Only the
// status of a stored report can change.
type Repository struct {
	mu      sync.RWMutex
	reports []models.Report
	index   map[int64]int
	lastID  int64
	now     func() time.Time
}

// NewRepository returns a repository seeded with reports.
func NewRepository(reports []models.Report) *Repository {
	r := &Repository{now: time.Now}
	r.Replace(reports)
	return r
}

// Replace swaps the whole collection, e.g. after a reload from the remote
// store. Reports are kept in creation order.
func (r *Repository) Replace(reports []models.Report) {
	sorted := make([]models.Report, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = sorted
	r.index = make(map[int64]int, len(sorted))
	r.lastID = 0
	for i, rep := range sorted {
		r.index[rep.ID] = i
		if rep.ID > r.lastID {
			r.lastID = rep.ID
		}
	}
}

// Create appends a new report. The id is the creation time in epoch
// milliseconds, bumped past the last issued id so ids stay unique and
// increasing. A zero date is set to the creation time.
func (r *Repository) Create(report models.Report) models.Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	id := now.UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id

	report.ID = id
	if report.Date.IsZero() {
		report.Date = now
	}
	r.index[id] = len(r.reports)
	r.reports = append(r.reports, report)
	return report
}

// Get returns the report with id.
func (r *Repository) Get(id int64) (models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return models.Report{}, fmt.Errorf("report %d: %w", id, ErrReportNotFound)
	}
	return r.reports[i], nil
}

// UpdateStatus sets the status of the report with id and returns the
// updated report.
func (r *Repository) UpdateStatus(id int64, status models.Status) (models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return models.Report{}, fmt.Errorf("report %d: %w", id, ErrReportNotFound)
	}
	r.reports[i].Status = status
	return r.reports[i], nil
}

// AllForSite returns every report filed against site, closed ones included.
func (r *Repository) AllForSite(site string) []models.Report {
	return r.filter(func(rep models.Report) bool { return rep.Site == site })
}

// AllPendingFor returns the reports officer may act on now.
func (r *Repository) AllPendingFor(officer models.Officer) []models.Report {
	return r.filter(func(rep models.Report) bool { return workflow.IsActionable(officer, rep) })
}

// Snapshot returns a copy of all reports in creation order.
func (r *Repository) Snapshot() []models.Report {
	return r.filter(func(models.Report) bool { return true })
}

// Len returns the number of stored reports.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports)
}

func (r *Repository) filter(keep func(models.Report) bool) []models.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := []models.Report{}
	for _, rep := range r.reports {
		if keep(rep) {
			results = append(results, rep)
		}
	}
	return results
}
