// Package metrics scores officer inspection activity against the monthly
// norms for each level. Everything here is a pure function of a roster and
// report snapshot.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"cwcinspect/models"
)

// Period is a calendar month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// PeriodOf returns the month containing t in loc.
func PeriodOf(t time.Time, loc *time.Location) Period {
	t = t.In(loc)
	return Period{Year: t.Year(), Month: t.Month()}
}

// Contains reports whether t falls in the period, reading t in loc.
func (p Period) Contains(t time.Time, loc *time.Location) bool {
	t = t.In(loc)
	return t.Year() == p.Year && t.Month() == p.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// Band is the traffic-light grading of a completion percentage.
type Band string

const (
	BandGreen Band = "green"
	BandAmber Band = "amber"
	BandRed   Band = "red"
)

// BandFor grades percentage: 100 and above green, 50 and above amber.
func BandFor(percentage float64) Band {
	switch {
	case percentage >= 100:
		return BandGreen
	case percentage >= 50:
		return BandAmber
	}
	return BandRed
}

// Color returns the display colour of the band.
func (b Band) Color() string {
	switch b {
	case BandGreen:
		return "#10b981"
	case BandAmber:
		return "#f59e0b"
	}
	return "#ef4444"
}

// Target is the monthly visit norm of an officer. Value 0 means the norm
// is not numeric.
type Target struct {
	Value int
	Label string
}

// sdoShare is the fraction of all sites an SDO or AEE visits each month.
const sdoShare = 0.33

// TargetFor returns the norm for level given the number of sites.
func TargetFor(level models.Level, totalSites int) Target {
	switch level {
	case models.LevelEE:
		return Target{Value: 3, Label: "Target: 3-5"}
	case models.LevelSE:
		return Target{Value: 3, Label: "Target: 3-4"}
	case models.LevelSDO, models.LevelAEE:
		v := int(math.Ceil(float64(totalSites) * sdoShare))
		return Target{Value: v, Label: fmt.Sprintf("Target: ~%d (33%%)", v)}
	case models.LevelJE:
		return Target{Value: totalSites, Label: fmt.Sprintf("Target: %d (100%%)", totalSites)}
	}
	return Target{Label: "As Required"}
}

// Percentage is visits over target, capped at 100. A zero target counts as
// complete.
func Percentage(visits, target int) float64 {
	if target <= 0 {
		return 100
	}
	return math.Min(100, float64(visits)/float64(target)*100)
}

// OfficerStat is one officer's row on the dashboard.
type OfficerStat struct {
	Name        string       `json:"name"`
	Designation string       `json:"designation"`
	Level       models.Level `json:"level"`
	Visits      int          `json:"visits"`
	Target      int          `json:"target"`
	TargetLabel string       `json:"targetLabel"`
	Percentage  float64      `json:"percentage"`
	Band        Band         `json:"band"`
	Color       string       `json:"color"`
}

// Summary is the dashboard for one period.
type Summary struct {
	Period      Period        `json:"period"`
	Inspections int           `json:"inspections"`
	ActiveSites int           `json:"activeSites"`
	Pending     int           `json:"pending"`
	Officers    []OfficerStat `json:"officers"`
}

// Engine computes dashboards with report dates read in a fixed location.
type Engine struct {
	loc *time.Location
}

// NewEngine returns an engine for loc; nil means UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Location returns the engine's time zone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Compute builds the summary for period. Visits count every report an
// officer created in the period whatever its current status. ADMIN
// officers are not scored. Rows are ordered by percentage, highest first.
func (e *Engine) Compute(period Period, officers []models.Officer, reports []models.Report, totalSites int) Summary {
	summary := Summary{Period: period, Officers: []OfficerStat{}}

	visits := map[string]int{}
	sites := map[string]bool{}
	for _, r := range reports {
		if !period.Contains(r.Date, e.loc) {
			continue
		}
		summary.Inspections++
		visits[r.Officer]++
		sites[r.Site] = true
		if r.Status != models.StatusClosed {
			summary.Pending++
		}
	}
	summary.ActiveSites = len(sites)

	for _, o := range officers {
		if o.Level == models.LevelAdmin {
			continue
		}
		target := TargetFor(o.Level, totalSites)
		pct := Percentage(visits[o.Name], target.Value)
		band := BandFor(pct)
		summary.Officers = append(summary.Officers, OfficerStat{
			Name:        o.Name,
			Designation: o.Designation,
			Level:       o.Level,
			Visits:      visits[o.Name],
			Target:      target.Value,
			TargetLabel: target.Label,
			Percentage:  pct,
			Band:        band,
			Color:       band.Color(),
		})
	}
	sort.SliceStable(summary.Officers, func(i, j int) bool {
		return summary.Officers[i].Percentage > summary.Officers[j].Percentage
	})
	return summary
}
