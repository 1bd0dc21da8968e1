package workflow

import (
	"strings"

	"cwcinspect/models"
)

// AllJurisdiction is the sentinel granting organisation-wide visibility.
const AllJurisdiction = "ALL"

// Jurisdiction is a parsed officer jurisdiction.
type Jurisdiction struct {
	Tokens []string
}

// ParseJurisdiction upper-cases and splits raw on commas. An empty raw
// value means no restriction was recorded and is read as ALL. Blank
// tokens are dropped.
func ParseJurisdiction(raw string) Jurisdiction {
	if raw == "" {
		raw = AllJurisdiction
	}
	var tokens []string
	for _, part := range strings.Split(strings.ToUpper(raw), ",") {
		if t := strings.TrimSpace(part); t != "" {
			tokens = append(tokens, t)
		}
	}
	return Jurisdiction{Tokens: tokens}
}

// IsAll reports whether the jurisdiction contains the ALL sentinel.
func (j Jurisdiction) IsAll() bool {
	for _, t := range j.Tokens {
		if t == AllJurisdiction {
			return true
		}
	}
	return false
}

// Covers reports whether any token is contained in the site's district or
// name. Matching is by substring, so partial district names match.
func (j Jurisdiction) Covers(site models.Site) bool {
	name := strings.ToUpper(site.Name)
	district := strings.ToUpper(site.District)
	for _, t := range j.Tokens {
		if strings.Contains(district, t) || strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// IsBoss reports whether the officer sees every site.
func IsBoss(officer models.Officer) bool {
	switch officer.Level {
	case models.LevelAdmin, models.LevelCE, models.LevelSE:
		return true
	}
	return ParseJurisdiction(officer.Jurisdiction).IsAll()
}

// IsVisible decides whether officer may browse site.
func IsVisible(officer models.Officer, site models.Site) bool {
	if IsBoss(officer) {
		return true
	}
	return ParseJurisdiction(officer.Jurisdiction).Covers(site)
}

// coversReportSite is the task-queue check for SDO compliance. It works on
// the raw jurisdiction string, not on tokens.
func coversReportSite(jurisdiction, site string) bool {
	j := strings.ToLower(jurisdiction)
	return j == "all" || strings.Contains(j, strings.ToLower(site))
}

// approverFor maps each approval stage to the level that acts on it.
var approverFor = map[models.Status]models.Level{
	models.StatusPendingEE: models.LevelEE,
	models.StatusPendingSE: models.LevelSE,
	models.StatusPendingCE: models.LevelCE,
}

// IsActionable decides whether officer may act on report in its current
// status. Approval stages are organisation-wide; only the compliance stage
// looks at jurisdiction.
func IsActionable(officer models.Officer, report models.Report) bool {
	if report.Status == models.StatusPendingCompliance {
		return officer.Level == models.LevelSDO && coversReportSite(officer.Jurisdiction, report.Site)
	}
	level, ok := approverFor[report.Status]
	return ok && officer.Level == level
}
