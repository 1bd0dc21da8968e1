// Package service implements the officer-facing use cases: login, site
// browsing, observation submission, the compliance task queue, officer
// administration and the inspection dashboard. Every call takes an explicit
// Session; local state is authoritative and the remote store is updated
// best-effort through the Propagator.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"cwcinspect/auth"
	"cwcinspect/db"
	"cwcinspect/metrics"
	"cwcinspect/models"
	"cwcinspect/store"
	"cwcinspect/workflow"
)

var (
	ErrOfficerNotFound  = store.ErrOfficerNotFound
	ErrDuplicateOfficer = store.ErrDuplicateOfficer
	ErrReportNotFound   = store.ErrReportNotFound
	ErrInvalidPassword  = auth.ErrInvalidPassword
	ErrSiteNotFound     = errors.New("site not found")
	ErrNotActionable    = errors.New("report is not actionable by this officer")
	ErrInvalidAction    = errors.New("action does not apply to the report's status")
	ErrReportClosed     = errors.New("report is closed")
	ErrForbidden        = errors.New("not permitted for this officer")
)

// ErrRemoteUnavailable is returned by a reload that could not reach the
// remote store. Local state is left untouched.
var ErrRemoteUnavailable = errors.New("remote store unavailable")

// ValidationError lists the rejected input fields and the rule each broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, f := range names {
		parts[i] = f + ": " + e.Fields[f]
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Session is the logged-in officer a call acts for.
type Session struct {
	Officer models.Officer
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	Logger   *logrus.Logger
	Location *time.Location
	Ranks    workflow.RankTable
	Now      func() time.Time
}

// Service owns the in-memory state of one deployment.
type Service struct {
	remote     db.Remote
	propagator *Propagator
	reports    *store.Repository
	roster     *store.Roster
	sites      *store.SiteCatalog
	machine    *workflow.Machine
	engine     *metrics.Engine
	validate   *validator.Validate
	logger     *logrus.Logger
	now        func() time.Time
	loaded     atomic.Bool
}

// New returns a service backed by remote. Call Load before use.
func New(remote db.Remote, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		remote:     remote,
		propagator: NewPropagator(remote, opts.Logger),
		reports:    store.NewRepository(nil),
		roster:     store.NewRoster(nil),
		sites:      store.NewSiteCatalog(nil),
		machine:    workflow.NewMachine(opts.Ranks),
		engine:     metrics.NewEngine(opts.Location),
		validate:   validator.New(),
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// Load replaces local state with the remote dataset. On the first load a
// remote failure installs the built-in dataset and Load reports false. Once
// loaded, local state is authoritative: a failed reload keeps it and returns
// ErrRemoteUnavailable.
func (s *Service) Load(ctx context.Context) (bool, error) {
	var ds *models.Dataset
	var err error
	if s.remote != nil {
		ds, err = s.remote.LoadAll(ctx)
	} else {
		err = errors.New("no remote store configured")
	}
	fromRemote := err == nil && ds != nil
	if !fromRemote {
		if s.loaded.Load() {
			s.logger.WithError(err).Warn("reload failed, keeping local data")
			return false, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		s.logger.WithError(err).Warn("using fallback dataset")
		if ds, err = db.Fallback(s.now()); err != nil {
			return false, err
		}
	}

	s.sites.Replace(ds.Sites)
	s.roster.Replace(ds.Officers)
	s.reports.Replace(ds.Reports)
	s.loaded.Store(true)
	s.logger.WithFields(logrus.Fields{
		"remote":   fromRemote,
		"sites":    len(ds.Sites),
		"officers": len(ds.Officers),
		"reports":  len(ds.Reports),
	}).Info("dataset ready")
	return fromRemote, nil
}

// --- Sessions ---

// Login checks password against the officer's stored secret.
func (s *Service) Login(name, password string) (Session, error) {
	officer, err := s.roster.ByName(name)
	if err != nil {
		return Session{}, err
	}
	if err := auth.CheckPassword(officer.Password, password); err != nil {
		s.logger.WithField("officer", name).Info("login rejected")
		return Session{}, err
	}
	s.logger.WithFields(logrus.Fields{"officer": name, "level": officer.Level}).Info("officer logged in")
	return Session{Officer: officer}, nil
}

// Restore resumes a session for a previously logged-in officer without a
// password check. The surrogate id is tried first, then the name.
func (s *Service) Restore(id, name string) (Session, error) {
	if officer, err := s.roster.ByID(id); err == nil {
		return Session{Officer: officer}, nil
	}
	officer, err := s.roster.ByName(name)
	if err != nil {
		return Session{}, err
	}
	return Session{Officer: officer}, nil
}

// Officers lists the roster for the login screen, highest rank first,
// without passwords.
func (s *Service) Officers(search string) []models.Officer {
	sorted := s.roster.Sorted(search)
	out := make([]models.Officer, len(sorted))
	for i, o := range sorted {
		out[i] = o.Public()
	}
	return out
}

// Roster returns full officer records for administration.
func (s *Service) Roster(sess Session) ([]models.Officer, error) {
	if sess.Officer.Level != models.LevelAdmin {
		return nil, ErrForbidden
	}
	return s.roster.Sorted(""), nil
}

// --- Sites & observations ---

// Sites returns the sites the officer may browse matching search.
func (s *Service) Sites(sess Session, search string) []models.Site {
	return s.sites.VisibleTo(sess.Officer, search)
}

// SiteHistory returns every report filed against site.
func (s *Service) SiteHistory(site string) []models.Report {
	return s.reports.AllForSite(site)
}

// ObservationInput is a new inspection finding.
type ObservationInput struct {
	Site    string `json:"site" validate:"required"`
	Remarks string `json:"remarks" validate:"required"`
}

// SubmitObservation files a report against a visible site. The report
// starts at Pending Compliance and records the officer's current level.
func (s *Service) SubmitObservation(sess Session, in ObservationInput) (models.Report, error) {
	in.Site = strings.TrimSpace(in.Site)
	in.Remarks = strings.TrimSpace(in.Remarks)
	if err := s.check(in); err != nil {
		return models.Report{}, err
	}
	if sess.Officer.Level == models.LevelAdmin {
		return models.Report{}, fmt.Errorf("submit observation: %w", ErrForbidden)
	}
	site, ok := s.sites.ByName(in.Site)
	if !ok {
		return models.Report{}, fmt.Errorf("site %q: %w", in.Site, ErrSiteNotFound)
	}
	if !workflow.IsVisible(sess.Officer, site) {
		return models.Report{}, fmt.Errorf("site %q: %w", in.Site, ErrForbidden)
	}

	report := s.reports.Create(models.Report{
		Date:          s.now(),
		Officer:       sess.Officer.Name,
		InspectorRole: sess.Officer.Level,
		Site:          site.Name,
		Remarks:       in.Remarks,
		Status:        models.StatusPendingCompliance,
	})
	s.propagator.AppendReport(report)

	s.logger.WithFields(logrus.Fields{
		"officer":   sess.Officer.Name,
		"report_id": report.ID,
		"site":      report.Site,
	}).Info("observation logged")
	return report, nil
}

// --- Workflow ---

// Tasks returns the reports awaiting the officer's action.
func (s *Service) Tasks(sess Session) []models.Report {
	if sess.Officer.Level == models.LevelAdmin {
		return []models.Report{}
	}
	return s.reports.AllPendingFor(sess.Officer)
}

// ActionInput is a workflow action on one report.
type ActionInput struct {
	ReportID int64         `json:"report_id" validate:"required"`
	Action   models.Action `json:"action" validate:"required,oneof=COMPLY APPROVE"`
	Note     string        `json:"note"`
}

// Act applies a COMPLY or APPROVE to a report. The local status changes
// immediately; the remote store is notified afterwards.
func (s *Service) Act(sess Session, in ActionInput) (models.Report, error) {
	if err := s.check(in); err != nil {
		return models.Report{}, err
	}
	report, err := s.reports.Get(in.ReportID)
	if err != nil {
		return models.Report{}, err
	}
	if report.Status == models.StatusClosed {
		return models.Report{}, fmt.Errorf("report %d: %w", report.ID, ErrReportClosed)
	}
	if want := workflow.ActionFor(report.Status); in.Action != want {
		return models.Report{}, fmt.Errorf("%s on %q: %w", in.Action, report.Status, ErrInvalidAction)
	}
	if !workflow.IsActionable(sess.Officer, report) {
		return models.Report{}, fmt.Errorf("report %d: %w", report.ID, ErrNotActionable)
	}

	next := s.machine.Next(report.Status, report.InspectorRole, in.Action)
	updated, err := s.reports.UpdateStatus(report.ID, next)
	if err != nil {
		return models.Report{}, err
	}
	s.propagator.UpdateStatus(models.StatusUpdate{ReportID: updated.ID, NewStatus: next, Note: in.Note})

	s.logger.WithFields(logrus.Fields{
		"officer":   sess.Officer.Name,
		"report_id": updated.ID,
		"action":    in.Action,
		"from":      report.Status,
		"to":        next,
	}).Info("status updated")
	return updated, nil
}

// --- Administration ---

// OfficerInput is the admin form for adding or editing an officer.
// OldName identifies the officer being edited.
type OfficerInput struct {
	OldName      string `json:"old_name"`
	Name         string `json:"name" validate:"required"`
	Designation  string `json:"designation" validate:"required"`
	Office       string `json:"office"`
	Level        string `json:"level" validate:"required"`
	Password     string `json:"password" validate:"required"`
	Jurisdiction string `json:"jurisdiction"`
}

func (in OfficerInput) officer() models.Officer {
	return models.Officer{
		Name:         strings.TrimSpace(in.Name),
		Designation:  strings.TrimSpace(in.Designation),
		Office:       strings.TrimSpace(in.Office),
		Level:        models.ParseLevel(in.Level),
		Jurisdiction: strings.TrimSpace(in.Jurisdiction),
		Password:     in.Password,
	}
}

// CreateOfficer adds an officer to the roster and notifies the remote store.
func (s *Service) CreateOfficer(sess Session, in OfficerInput) (models.Officer, error) {
	if sess.Officer.Level != models.LevelAdmin {
		return models.Officer{}, ErrForbidden
	}
	if err := s.check(in); err != nil {
		return models.Officer{}, err
	}
	officer, err := s.roster.Add(in.officer())
	if err != nil {
		return models.Officer{}, err
	}
	s.propagator.UpsertOfficer(models.OfficerUpsert{Officer: officer})
	s.logger.WithFields(logrus.Fields{"admin": sess.Officer.Name, "officer": officer.Name}).Info("officer added")
	return officer, nil
}

// UpdateOfficer edits the officer named in.OldName.
func (s *Service) UpdateOfficer(sess Session, in OfficerInput) (models.Officer, error) {
	if sess.Officer.Level != models.LevelAdmin {
		return models.Officer{}, ErrForbidden
	}
	if err := s.check(in); err != nil {
		return models.Officer{}, err
	}
	if strings.TrimSpace(in.OldName) == "" {
		return models.Officer{}, &ValidationError{Fields: map[string]string{"OldName": "required"}}
	}
	officer, err := s.roster.Update(in.OldName, in.officer())
	if err != nil {
		return models.Officer{}, err
	}
	s.propagator.UpsertOfficer(models.OfficerUpsert{Officer: officer, OldName: in.OldName, Update: true})
	s.logger.WithFields(logrus.Fields{"admin": sess.Officer.Name, "officer": officer.Name, "old_name": in.OldName}).Info("officer updated")
	return officer, nil
}

// Locations are the values offered when composing a jurisdiction.
type Locations struct {
	SubDivisions []string `json:"subDivisions"`
	Locations    []string `json:"locations"`
}

// JurisdictionOptions returns the predefined sub-divisions and the known
// districts and sites.
func (s *Service) JurisdictionOptions() Locations {
	return Locations{SubDivisions: store.SubDivisions, Locations: s.sites.Locations()}
}

// --- Dashboard ---

// CurrentPeriod is the month containing now in the dashboard time zone.
func (s *Service) CurrentPeriod() metrics.Period {
	return metrics.PeriodOf(s.now(), s.engine.Location())
}

// Location is the time zone dashboards and exports read dates in.
func (s *Service) Location() *time.Location {
	return s.engine.Location()
}

// Dashboard computes officer statistics for period.
func (s *Service) Dashboard(period metrics.Period) metrics.Summary {
	return s.engine.Compute(period, s.roster.All(), s.reports.Snapshot(), s.sites.Len())
}

// Reports returns every report in creation order.
func (s *Service) Reports() []models.Report {
	return s.reports.Snapshot()
}

// --- Propagation state ---

// Notice returns the offline notice once a remote write has failed.
func (s *Service) Notice() string {
	if s.propagator.Offline() {
		return OfflineNotice
	}
	return ""
}

// Wait blocks until pending remote writes have finished.
func (s *Service) Wait() {
	s.propagator.Wait()
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		fields[ve.Field()] = ve.Tag()
	}
	return &ValidationError{Fields: fields}
}
