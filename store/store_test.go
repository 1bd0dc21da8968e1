package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"cwcinspect/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRepository_CreateAssignsIncreasingIDs(t *testing.T) {
	repo := NewRepository(nil)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	repo.now = fixedClock(at)

	first := repo.Create(models.Report{Site: "Musiri", Status: models.StatusPendingCompliance})
	second := repo.Create(models.Report{Site: "Musiri", Status: models.StatusPendingCompliance})

	if first.ID != at.UnixMilli() {
		t.Errorf("first id = %d, want %d", first.ID, at.UnixMilli())
	}
	if second.ID != first.ID+1 {
		t.Errorf("second id = %d, want %d", second.ID, first.ID+1)
	}
	if !first.Date.Equal(at) {
		t.Errorf("date = %v, want %v", first.Date, at)
	}
}

func TestRepository_CreateAfterSeedDoesNotCollide(t *testing.T) {
	future := time.Now().Add(time.Hour).UnixMilli()
	repo := NewRepository([]models.Report{{ID: future, Site: "Musiri"}})

	got := repo.Create(models.Report{Site: "Kodumudi"})
	if got.ID <= future {
		t.Errorf("id = %d, want > %d", got.ID, future)
	}
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo := NewRepository([]models.Report{
		{ID: 101, Site: "Musiri", Status: models.StatusPendingCompliance, InspectorRole: models.LevelEE},
	})

	updated, err := repo.UpdateStatus(101, models.StatusPendingEE)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != models.StatusPendingEE || updated.InspectorRole != models.LevelEE {
		t.Errorf("updated = %+v", updated)
	}
	got, _ := repo.Get(101)
	if got.Status != models.StatusPendingEE {
		t.Errorf("stored status = %s", got.Status)
	}

	if _, err := repo.UpdateStatus(999, models.StatusClosed); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("UpdateStatus(999) err = %v, want ErrReportNotFound", err)
	}
}

func TestRepository_AllForSiteIncludesClosed(t *testing.T) {
	repo := NewRepository([]models.Report{
		{ID: 3, Site: "Musiri", Status: models.StatusClosed},
		{ID: 1, Site: "Musiri", Status: models.StatusPendingEE},
		{ID: 2, Site: "Kodumudi", Status: models.StatusPendingEE},
	})

	got := repo.AllForSite("Musiri")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("order = %d,%d, want 1,3", got[0].ID, got[1].ID)
	}
	if got := repo.AllForSite("musiri"); len(got) != 0 {
		t.Errorf("site match should be exact, got %d", len(got))
	}
}

func TestRepository_AllPendingFor(t *testing.T) {
	repo := NewRepository([]models.Report{
		{ID: 1, Site: "Musiri", Status: models.StatusPendingCompliance},
		{ID: 2, Site: "Kodumudi", Status: models.StatusPendingCompliance},
		{ID: 3, Site: "Musiri", Status: models.StatusPendingEE},
		{ID: 4, Site: "Musiri", Status: models.StatusClosed},
	})

	sdo := models.Officer{Level: models.LevelSDO, Jurisdiction: "Trichy, Musiri"}
	if got := repo.AllPendingFor(sdo); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("SDO tasks = %+v", got)
	}
	ee := models.Officer{Level: models.LevelEE}
	if got := repo.AllPendingFor(ee); len(got) != 1 || got[0].ID != 3 {
		t.Errorf("EE tasks = %+v", got)
	}
	ce := models.Officer{Level: models.LevelCE}
	if got := repo.AllPendingFor(ce); len(got) != 0 {
		t.Errorf("CE tasks = %+v", got)
	}
}

func TestRepository_ConcurrentCreate(t *testing.T) {
	repo := NewRepository(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.Create(models.Report{Site: "Musiri"})
		}()
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, r := range repo.Snapshot() {
		if seen[r.ID] {
			t.Fatalf("duplicate id %d", r.ID)
		}
		seen[r.ID] = true
	}
	if repo.Len() != 50 {
		t.Errorf("len = %d, want 50", repo.Len())
	}
}

func TestRoster_SeedsDeterministicIDs(t *testing.T) {
	a := NewRoster([]models.Officer{{Name: "SDO Trichy"}})
	b := NewRoster([]models.Officer{{Name: "SDO Trichy"}})

	if a.All()[0].ID == "" || a.All()[0].ID != b.All()[0].ID {
		t.Errorf("ids differ: %q vs %q", a.All()[0].ID, b.All()[0].ID)
	}
	if OfficerIDForName("SDO Trichy") == OfficerIDForName("SDO Salem") {
		t.Error("distinct names share an id")
	}
}

func TestRoster_AddAndUpdate(t *testing.T) {
	roster := NewRoster([]models.Officer{{Name: "Exec. Engineer", Level: models.LevelEE}})

	added, err := roster.Add(models.Officer{Name: "SDO Salem", Level: models.LevelSDO})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.ID == "" {
		t.Error("Add did not assign an id")
	}
	if _, err := roster.Add(models.Officer{Name: "SDO Salem"}); !errors.Is(err, ErrDuplicateOfficer) {
		t.Errorf("duplicate Add err = %v", err)
	}

	renamed, err := roster.Update("SDO Salem", models.Officer{Name: "SDO Salem North", Level: models.LevelSDO})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if renamed.ID != added.ID {
		t.Errorf("rename changed id: %s -> %s", added.ID, renamed.ID)
	}
	if _, err := roster.ByName("SDO Salem"); !errors.Is(err, ErrOfficerNotFound) {
		t.Errorf("old name still resolves: %v", err)
	}
	if got, err := roster.ByID(added.ID); err != nil || got.Name != "SDO Salem North" {
		t.Errorf("ByID = %+v, %v", got, err)
	}

	if _, err := roster.Update("SDO Salem North", models.Officer{Name: "Exec. Engineer"}); !errors.Is(err, ErrDuplicateOfficer) {
		t.Errorf("rename onto existing name err = %v", err)
	}
	if _, err := roster.Update("Nobody", models.Officer{Name: "X"}); !errors.Is(err, ErrOfficerNotFound) {
		t.Errorf("update missing err = %v", err)
	}
}

func TestRoster_Sorted(t *testing.T) {
	roster := NewRoster([]models.Officer{
		{Name: "Admin", Level: models.LevelAdmin},
		{Name: "SDO Trichy", Level: models.LevelSDO},
		{Name: "Chief Engineer", Level: models.LevelCE},
		{Name: "Exec. Engineer", Level: models.LevelEE},
	})

	got := roster.Sorted("engineer")
	if len(got) != 2 || got[0].Name != "Chief Engineer" || got[1].Name != "Exec. Engineer" {
		t.Errorf("Sorted(engineer) = %+v", got)
	}
	if all := roster.Sorted(""); len(all) != 4 || all[3].Name != "Admin" {
		t.Errorf("Sorted('') = %+v", all)
	}
}

func TestSiteCatalog_VisibleTo(t *testing.T) {
	catalog := NewSiteCatalog([]models.Site{
		{ID: 1, Name: "Hogenakkal", District: "Dharmapuri"},
		{ID: 2, Name: "Musiri", District: "Trichy"},
		{ID: 3, Name: "Kodumudi", District: "Erode"},
	})
	sdo := models.Officer{Level: models.LevelSDO, Jurisdiction: "Trichy, Hogenakkal"}

	if got := catalog.VisibleTo(sdo, ""); len(got) != 2 {
		t.Errorf("visible = %+v", got)
	}
	if got := catalog.VisibleTo(sdo, "mus"); len(got) != 1 || got[0].Name != "Musiri" {
		t.Errorf("search mus = %+v", got)
	}
	if got := catalog.VisibleTo(models.Officer{Level: models.LevelCE}, "erode"); len(got) != 1 {
		t.Errorf("CE search erode = %+v", got)
	}
}

func TestSiteCatalog_Locations(t *testing.T) {
	catalog := NewSiteCatalog([]models.Site{
		{Name: "Musiri", District: "Trichy"},
		{Name: "Srirangam", District: "Trichy"},
		{Name: "Kodumudi"},
	})
	want := []string{"Kodumudi", "Musiri", "Srirangam", "Trichy"}
	got := catalog.Locations()
	if len(got) != len(want) {
		t.Fatalf("Locations() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Locations()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
