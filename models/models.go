// models.go
// Defines the core data structures shared by the workflow core, the remote
// store backends and the HTTP API.

package models

import (
	"strings"
	"time"
)

// Level is an officer's grade in the organisation.
type Level string

const (
	LevelSDO   Level = "SDO"
	LevelEE    Level = "EE"
	LevelSE    Level = "SE"
	LevelCE    Level = "CE"
	LevelAdmin Level = "ADMIN"
	LevelJE    Level = "JE"
	LevelAEE   Level = "AEE"
)

// ParseLevel normalizes a level typed into a sheet or form: trimmed and
// upper-cased.
func ParseLevel(s string) Level {
	return Level(strings.ToUpper(strings.TrimSpace(s)))
}

// Status is the compliance lifecycle state of a report.
type Status string

const (
	StatusPendingCompliance Status = "Pending Compliance"
	StatusPendingEE         Status = "Pending EE"
	StatusPendingSE         Status = "Pending SE"
	StatusPendingCE         Status = "Pending CE"
	StatusClosed            Status = "Closed"
)

// Valid reports whether s is one of the workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingCompliance, StatusPendingEE, StatusPendingSE, StatusPendingCE, StatusClosed:
		return true
	}
	return false
}

// ParseStatus maps s onto a workflow state, ignoring case and extra
// whitespace. ok is false when s names no known state.
func ParseStatus(s string) (status Status, ok bool) {
	norm := strings.Join(strings.Fields(s), " ")
	for _, known := range []Status{StatusPendingCompliance, StatusPendingEE, StatusPendingSE, StatusPendingCE, StatusClosed} {
		if strings.EqualFold(norm, string(known)) {
			return known, true
		}
	}
	return "", false
}

// Action is a workflow action an officer performs on a report.
type Action string

const (
	ActionNone    Action = ""
	ActionComply  Action = "COMPLY"
	ActionApprove Action = "APPROVE"
)

// SiteStatusInspected is the only site status the map layer interprets.
const SiteStatusInspected = "Inspected"

// Officer is a member of the inspection hierarchy.
// Name is the key the remote store uses; ID is the local surrogate key.
type Officer struct {
	ID           string `firestore:"id" json:"id" yaml:"id"`
	Name         string `firestore:"name" json:"name" yaml:"name"`
	Designation  string `firestore:"designation" json:"designation" yaml:"designation"`
	Office       string `firestore:"office" json:"office" yaml:"office"`
	Level        Level  `firestore:"level" json:"level" yaml:"level"`
	Jurisdiction string `firestore:"jurisdiction" json:"jurisdiction" yaml:"jurisdiction"`
	Password     string `firestore:"password" json:"password,omitempty" yaml:"password"`
}

// Public returns a copy of the officer without its password.
func (o Officer) Public() Officer {
	o.Password = ""
	return o
}

// Site is a monitored water-control location. Sites are reference data.
type Site struct {
	ID       int64   `firestore:"id" json:"id" yaml:"id"`
	Name     string  `firestore:"name" json:"name" yaml:"name"`
	District string  `firestore:"district" json:"district" yaml:"district"`
	Lat      float64 `firestore:"lat" json:"lat" yaml:"lat"`
	Lng      float64 `firestore:"lng" json:"lng" yaml:"lng"`
	Status   string  `firestore:"status,omitempty" json:"status,omitempty" yaml:"status"`
}

// Report is one inspection finding and its compliance lifecycle.
// InspectorRole is frozen at creation; Status is the only mutable field.
type Report struct {
	ID            int64     `firestore:"id" json:"id" yaml:"id"`
	Date          time.Time `firestore:"date" json:"date" yaml:"date"`
	Officer       string    `firestore:"officer" json:"officer" yaml:"officer"`
	InspectorRole Level     `firestore:"inspector_role" json:"inspectorRole" yaml:"inspectorRole"`
	Site          string    `firestore:"site" json:"site" yaml:"site"`
	Remarks       string    `firestore:"remarks" json:"remarks" yaml:"remarks"`
	Status        Status    `firestore:"status" json:"status" yaml:"status"`
}

// Dataset is the full load-all payload of the remote store.
type Dataset struct {
	Sites    []Site    `json:"sites" yaml:"sites"`
	Officers []Officer `json:"officers" yaml:"officers"`
	Reports  []Report  `json:"reports" yaml:"reports"`
}

// StatusUpdate is the UPDATE_STATUS notification sent after a transition.
type StatusUpdate struct {
	ReportID  int64  `json:"rowId"`
	NewStatus Status `json:"status"`
	Note      string `json:"note"`
}

// OfficerUpsert is the ADD_USER / UPDATE_USER notification.
// OldName is set for updates and is the remote lookup key.
type OfficerUpsert struct {
	Officer Officer
	OldName string
	Update  bool
}
