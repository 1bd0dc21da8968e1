package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"cwcinspect/metrics"
	"cwcinspect/models"
)

type fakeRemote struct {
	mu       sync.Mutex
	dataset  *models.Dataset
	loadErr  error
	writeErr error
	appended []models.Report
	updates  []models.StatusUpdate
	upserts  []models.OfficerUpsert
}

func (f *fakeRemote) LoadAll(ctx context.Context) (*models.Dataset, error) {
	return f.dataset, f.loadErr
}

func (f *fakeRemote) AppendReport(ctx context.Context, r models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, r)
	return f.writeErr
}

func (f *fakeRemote) UpdateStatus(ctx context.Context, u models.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return f.writeErr
}

func (f *fakeRemote) UpsertOfficer(ctx context.Context, u models.OfficerUpsert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, u)
	return f.writeErr
}

func (f *fakeRemote) Close() error { return nil }

var testNow = time.Date(2025, 3, 10, 4, 30, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testDataset() *models.Dataset {
	return &models.Dataset{
		Sites: []models.Site{
			{ID: 1, Name: "Hogenakkal", District: "Dharmapuri"},
			{ID: 2, Name: "Musiri", District: "Trichy"},
			{ID: 3, Name: "Kodumudi", District: "Erode"},
		},
		Officers: []models.Officer{
			{Name: "Admin", Level: models.LevelAdmin, Password: "123"},
			{Name: "Exec. Engineer", Designation: "EE (Trichy)", Level: models.LevelEE, Password: "123"},
			{Name: "Sup. Engineer", Level: models.LevelSE, Password: "123"},
			{Name: "SDO Musiri", Level: models.LevelSDO, Jurisdiction: "Musiri", Password: "123"},
			{Name: "SDO Erode", Level: models.LevelSDO, Jurisdiction: "Erode", Password: "123"},
		},
	}
}

func newTestService(t *testing.T, remote *fakeRemote) *Service {
	t.Helper()
	svc := New(remote, Options{Logger: quietLogger(), Now: func() time.Time { return testNow }})
	if _, err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return svc
}

func login(t *testing.T, svc *Service, name string) Session {
	t.Helper()
	sess, err := svc.Login(name, "123")
	if err != nil {
		t.Fatalf("Login(%s): %v", name, err)
	}
	return sess
}

func TestLoad_Fallback(t *testing.T) {
	remote := &fakeRemote{loadErr: errors.New("unreachable")}
	svc := New(remote, Options{Logger: quietLogger(), Now: func() time.Time { return testNow }})
	fromRemote, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fromRemote {
		t.Error("fromRemote = true after failure")
	}
	if got := len(svc.Officers("")); got != 5 {
		t.Errorf("officers = %d, want 5", got)
	}
	reports := svc.Reports()
	if len(reports) != 1 || reports[0].ID != 101 || !reports[0].Date.Equal(testNow) {
		t.Errorf("reports = %+v", reports)
	}

	noRemote := New(nil, Options{Logger: quietLogger()})
	if fromRemote, err := noRemote.Load(context.Background()); err != nil || fromRemote {
		t.Errorf("nil remote Load = %v, %v", fromRemote, err)
	}
}

func TestLoad_FailedReloadKeepsLocalState(t *testing.T) {
	remote := &fakeRemote{dataset: testDataset()}
	svc := newTestService(t, remote)
	admin := login(t, svc, "Admin")
	ee := login(t, svc, "Exec. Engineer")

	report, err := svc.SubmitObservation(ee, ObservationInput{Site: "Musiri", Remarks: "Gauge post damaged"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	in := OfficerInput{Name: "SDO Salem", Designation: "Sub-Div Officer", Level: "SDO", Password: "pw"}
	if _, err := svc.CreateOfficer(admin, in); err != nil {
		t.Fatalf("CreateOfficer: %v", err)
	}
	svc.Wait()

	remote.loadErr = errors.New("unreachable")
	fromRemote, err := svc.Load(context.Background())
	if !errors.Is(err, ErrRemoteUnavailable) || fromRemote {
		t.Fatalf("reload = %v, %v", fromRemote, err)
	}

	history := svc.SiteHistory("Musiri")
	if len(history) != 1 || history[0].ID != report.ID {
		t.Errorf("history after failed reload = %+v", history)
	}
	if _, err := svc.Login("SDO Salem", "pw"); err != nil {
		t.Errorf("new officer lost: %v", err)
	}
	if _, err := svc.Login("SDO Musiri", "123"); err != nil {
		t.Errorf("roster replaced: %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService(t, &fakeRemote{dataset: testDataset()})

	if _, err := svc.Login("Exec. Engineer", " 123 "); err != nil {
		t.Errorf("trimmed password rejected: %v", err)
	}
	if _, err := svc.Login("Exec. Engineer", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := svc.Login("Nobody", "123"); !errors.Is(err, ErrOfficerNotFound) {
		t.Errorf("unknown officer err = %v", err)
	}
}

func TestOfficers_SortedWithoutPasswords(t *testing.T) {
	svc := newTestService(t, &fakeRemote{dataset: testDataset()})
	officers := svc.Officers("")
	if officers[0].Level != models.LevelSE {
		t.Errorf("first = %+v, want SE first", officers[0])
	}
	for _, o := range officers {
		if o.Password != "" {
			t.Errorf("%s exposes password", o.Name)
		}
	}
	if got := svc.Officers("sdo"); len(got) != 2 {
		t.Errorf("search sdo = %d officers", len(got))
	}
}

func TestRestore(t *testing.T) {
	svc := newTestService(t, &fakeRemote{dataset: testDataset()})
	sess := login(t, svc, "SDO Musiri")

	byID, err := svc.Restore(sess.Officer.ID, "")
	if err != nil || byID.Officer.Name != "SDO Musiri" {
		t.Errorf("Restore by id = %+v, %v", byID, err)
	}
	byName, err := svc.Restore("stale-id", "SDO Musiri")
	if err != nil || byName.Officer.ID != sess.Officer.ID {
		t.Errorf("Restore by name = %+v, %v", byName, err)
	}
	if _, err := svc.Restore("stale-id", "Gone"); !errors.Is(err, ErrOfficerNotFound) {
		t.Errorf("Restore missing err = %v", err)
	}
}

func TestSites_Visibility(t *testing.T) {
	svc := newTestService(t, &fakeRemote{dataset: testDataset()})
	if got := svc.Sites(login(t, svc, "Exec. Engineer"), ""); len(got) != 3 {
		t.Errorf("EE sees %d sites", len(got))
	}
	got := svc.Sites(login(t, svc, "SDO Erode"), "")
	if len(got) != 1 || got[0].Name != "Kodumudi" {
		t.Errorf("SDO Erode sees %+v", got)
	}
}

// Observation to closure: EE files on Musiri, the Musiri SDO complies and
// the EE approves.
func TestWorkflow_EndToEnd(t *testing.T) {
	remote := &fakeRemote{dataset: testDataset()}
	svc := newTestService(t, remote)
	ee := login(t, svc, "Exec. Engineer")
	sdo := login(t, svc, "SDO Musiri")
	other := login(t, svc, "SDO Erode")

	report, err := svc.SubmitObservation(ee, ObservationInput{Site: "Musiri", Remarks: "Gauge post damaged"})
	if err != nil {
		t.Fatalf("SubmitObservation: %v", err)
	}
	if report.Status != models.StatusPendingCompliance || report.InspectorRole != models.LevelEE || !report.Date.Equal(testNow) {
		t.Fatalf("report = %+v", report)
	}

	if tasks := svc.Tasks(sdo); len(tasks) != 1 || tasks[0].ID != report.ID {
		t.Fatalf("SDO tasks = %+v", tasks)
	}
	if tasks := svc.Tasks(other); len(tasks) != 0 {
		t.Errorf("other SDO tasks = %+v", tasks)
	}
	if tasks := svc.Tasks(ee); len(tasks) != 0 {
		t.Errorf("EE tasks before compliance = %+v", tasks)
	}

	if _, err := svc.Act(other, ActionInput{ReportID: report.ID, Action: models.ActionComply}); !errors.Is(err, ErrNotActionable) {
		t.Errorf("foreign SDO comply err = %v", err)
	}
	if _, err := svc.Act(sdo, ActionInput{ReportID: report.ID, Action: models.ActionApprove}); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("approve at compliance err = %v", err)
	}

	report, err = svc.Act(sdo, ActionInput{ReportID: report.ID, Action: models.ActionComply, Note: "Repainted"})
	if err != nil {
		t.Fatalf("comply: %v", err)
	}
	if report.Status != models.StatusPendingEE {
		t.Fatalf("after comply = %s", report.Status)
	}
	if tasks := svc.Tasks(ee); len(tasks) != 1 {
		t.Fatalf("EE tasks = %+v", tasks)
	}

	report, err = svc.Act(ee, ActionInput{ReportID: report.ID, Action: models.ActionApprove})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if report.Status != models.StatusClosed {
		t.Fatalf("after approve = %s", report.Status)
	}
	if _, err := svc.Act(ee, ActionInput{ReportID: report.ID, Action: models.ActionApprove}); !errors.Is(err, ErrReportClosed) {
		t.Errorf("act on closed err = %v", err)
	}

	svc.Wait()
	if len(remote.appended) != 1 || len(remote.updates) != 2 {
		t.Fatalf("remote writes = %d appends, %d updates", len(remote.appended), len(remote.updates))
	}
	var complied bool
	for _, u := range remote.updates {
		if u.ReportID == report.ID && u.NewStatus == models.StatusPendingEE && u.Note == "Repainted" {
			complied = true
		}
	}
	if !complied {
		t.Errorf("compliance update missing: %+v", remote.updates)
	}
	if svc.Notice() != "" {
		t.Errorf("notice = %q", svc.Notice())
	}
	if history := svc.SiteHistory("Musiri"); len(history) != 1 || history[0].Status != models.StatusClosed {
		t.Errorf("history = %+v", history)
	}
}

func TestWorkflow_SEEscalation(t *testing.T) {
	svc := newTestService(t, &fakeRemote{dataset: testDataset()})
	se := login(t, svc, "Sup. Engineer")
	ee := login(t, svc, "Exec. Engineer")
	sdo := login(t, svc, "SDO Musiri")

	report, err := svc.SubmitObservation(se, ObservationInput{Site: "Musiri", Remarks: "Silt"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	steps := []struct {
		who  Session
		act  models.Action
		want models.Status
	}{
		{sdo, models.ActionComply, models.StatusPendingEE},
		{ee, models.ActionApprove, models.StatusPendingSE},
		{se, models.ActionApprove, models.StatusClosed},
	}
	for _, step := range steps {
		report, err = svc.Act(step.who, ActionInput{ReportID: report.ID, Action: step.act})
		if err != nil {
			t.Fatalf("%s %s: %v", step.who.Officer.Name, step.act, err)
		}
		if report.Status != step.want {
			t.Fatalf("%s %s -> %s, want %s", step.who.Officer.Name, step.act, report.Status, step.want)
		}
	}
}

func TestSubmitObservation_Rejections(t *testing.T) {
	svc := newTestService(t, &fakeRemote{dataset: testDataset()})
	admin := login(t, svc, "Admin")
	sdo := login(t, svc, "SDO Erode")

	var verr *ValidationError
	if _, err := svc.SubmitObservation(sdo, ObservationInput{Site: "Kodumudi", Remarks: "   "}); !errors.As(err, &verr) || verr.Fields["Remarks"] != "required" {
		t.Errorf("blank remarks err = %v", err)
	}
	if _, err := svc.SubmitObservation(admin, ObservationInput{Site: "Musiri", Remarks: "x"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("admin submit err = %v", err)
	}
	if _, err := svc.SubmitObservation(sdo, ObservationInput{Site: "Nowhere", Remarks: "x"}); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("unknown site err = %v", err)
	}
	if _, err := svc.SubmitObservation(sdo, ObservationInput{Site: "Musiri", Remarks: "x"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("invisible site err = %v", err)
	}
	if got := len(svc.Reports()); got != 0 {
		t.Errorf("reports stored after rejections = %d", got)
	}
}

func TestAct_Validation(t *testing.T) {
	svc := newTestService(t, &fakeRemote{dataset: testDataset()})
	ee := login(t, svc, "Exec. Engineer")

	var verr *ValidationError
	if _, err := svc.Act(ee, ActionInput{ReportID: 1, Action: "REJECT"}); !errors.As(err, &verr) || verr.Fields["Action"] != "oneof" {
		t.Errorf("bad action err = %v", err)
	}
	if _, err := svc.Act(ee, ActionInput{ReportID: 99, Action: models.ActionApprove}); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("missing report err = %v", err)
	}
}

func TestOfflineNotice(t *testing.T) {
	remote := &fakeRemote{dataset: testDataset(), writeErr: errors.New("timeout")}
	svc := newTestService(t, remote)
	ee := login(t, svc, "Exec. Engineer")

	report, err := svc.SubmitObservation(ee, ObservationInput{Site: "Musiri", Remarks: "x"})
	if err != nil {
		t.Fatalf("submit should succeed locally: %v", err)
	}
	svc.Wait()
	if svc.Notice() != OfflineNotice {
		t.Errorf("notice = %q", svc.Notice())
	}
	if _, err := svc.Act(login(t, svc, "SDO Musiri"), ActionInput{ReportID: report.ID, Action: models.ActionComply}); err != nil {
		t.Errorf("local action while offline: %v", err)
	}
	svc.Wait()
	if svc.propagator.Failures() != 2 {
		t.Errorf("failures = %d", svc.propagator.Failures())
	}
}

func TestOfficerAdministration(t *testing.T) {
	remote := &fakeRemote{dataset: testDataset()}
	svc := newTestService(t, remote)
	admin := login(t, svc, "Admin")
	ee := login(t, svc, "Exec. Engineer")

	in := OfficerInput{Name: "SDO Salem", Designation: "Sub-Div Officer", Level: "sdo", Password: "pw", Jurisdiction: "Salem Sub-Division"}
	if _, err := svc.CreateOfficer(ee, in); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin create err = %v", err)
	}
	created, err := svc.CreateOfficer(admin, in)
	if err != nil {
		t.Fatalf("CreateOfficer: %v", err)
	}
	if created.Level != models.LevelSDO || created.ID == "" {
		t.Errorf("created = %+v", created)
	}
	if _, err := svc.CreateOfficer(admin, in); !errors.Is(err, ErrDuplicateOfficer) {
		t.Errorf("duplicate err = %v", err)
	}

	var verr *ValidationError
	if _, err := svc.CreateOfficer(admin, OfficerInput{Name: "X"}); !errors.As(err, &verr) {
		t.Errorf("missing fields err = %v", err)
	}

	in.OldName = "SDO Salem"
	in.Name = "SDO Salem East"
	updated, err := svc.UpdateOfficer(admin, in)
	if err != nil {
		t.Fatalf("UpdateOfficer: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("id changed on rename: %s -> %s", created.ID, updated.ID)
	}
	if _, err := svc.Login("SDO Salem East", "pw"); err != nil {
		t.Errorf("login after rename: %v", err)
	}

	svc.Wait()
	if len(remote.upserts) != 2 {
		t.Fatalf("upserts = %+v", remote.upserts)
	}
	for _, u := range remote.upserts {
		if u.Update && u.OldName != "SDO Salem" {
			t.Errorf("update upsert = %+v", u)
		}
		if !u.Update && u.Officer.Name != "SDO Salem" {
			t.Errorf("add upsert = %+v", u)
		}
	}

	roster, err := svc.Roster(admin)
	if err != nil || len(roster) != 6 {
		t.Errorf("roster = %d, %v", len(roster), err)
	}
	if _, err := svc.Roster(ee); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin roster err = %v", err)
	}
}

func TestDashboard(t *testing.T) {
	svc := newTestService(t, &fakeRemote{dataset: testDataset()})
	sdo := login(t, svc, "SDO Musiri")
	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitObservation(sdo, ObservationInput{Site: "Musiri", Remarks: "visit"}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	period := svc.CurrentPeriod()
	if period != (metrics.Period{Year: 2025, Month: time.March}) {
		t.Errorf("period = %+v", period)
	}
	summary := svc.Dashboard(period)
	if summary.Inspections != 3 || summary.ActiveSites != 1 || summary.Pending != 3 {
		t.Errorf("summary = %+v", summary)
	}
	top := summary.Officers[0]
	if top.Name != "SDO Musiri" || top.Visits != 3 || top.Band != metrics.BandGreen {
		t.Errorf("top = %+v", top)
	}
	for _, s := range summary.Officers {
		if s.Level == models.LevelAdmin {
			t.Error("admin listed on dashboard")
		}
	}

	empty := svc.Dashboard(metrics.Period{Year: 2025, Month: time.February})
	if empty.Inspections != 0 {
		t.Errorf("february inspections = %d", empty.Inspections)
	}
}

func TestJurisdictionOptions(t *testing.T) {
	svc := newTestService(t, &fakeRemote{dataset: testDataset()})
	opts := svc.JurisdictionOptions()
	if len(opts.SubDivisions) != 10 {
		t.Errorf("sub-divisions = %d", len(opts.SubDivisions))
	}
	if len(opts.Locations) != 6 {
		t.Errorf("locations = %v", opts.Locations)
	}
}
