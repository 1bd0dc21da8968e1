package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cwcinspect/models"
)

// SheetsClient talks to the spreadsheet-backed script endpoint. Load-all is
// a GET on the endpoint; every write is a POST of a JSON object carrying an
// "action" field.
type SheetsClient struct {
	url    string
	client *http.Client
	loc    *time.Location
	logger logrus.FieldLogger
}

// NewSheetsClient returns a client for the script at url. Sheet dates
// without a zone are read in UTC until WithLocation is set.
func NewSheetsClient(url string, timeout time.Duration, logger logrus.FieldLogger) *SheetsClient {
	return &SheetsClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		loc:    time.UTC,
		logger: logger.WithField("component", "sheets"),
	}
}

// WithLocation sets the zone for sheet dates typed without one.
func (c *SheetsClient) WithLocation(loc *time.Location) *SheetsClient {
	if loc != nil {
		c.loc = loc
	}
	return c
}

type sheetPayload struct {
	Status   string         `json:"status"`
	Sites    []sheetSite    `json:"sites"`
	Officers []sheetOfficer `json:"officers"`
	Reports  []sheetReport  `json:"reports"`
}

type sheetSite struct {
	ID       flexInt    `json:"id"`
	Name     flexString `json:"name"`
	District flexString `json:"district"`
	Lat      flexFloat  `json:"lat"`
	Lng      flexFloat  `json:"lng"`
	Status   flexString `json:"status"`
}

type sheetOfficer struct {
	ID           flexString `json:"id"`
	Name         flexString `json:"name"`
	Designation  flexString `json:"designation"`
	Office       flexString `json:"office"`
	Level        flexString `json:"level"`
	Jurisdiction flexString `json:"jurisdiction"`
	Password     flexString `json:"password"`
}

type sheetReport struct {
	ID            flexInt    `json:"id"`
	Date          flexString `json:"date"`
	Officer       flexString `json:"officer"`
	InspectorRole flexString `json:"inspectorRole"`
	Site          flexString `json:"site"`
	Remarks       flexString `json:"remarks"`
	Status        flexString `json:"status"`
}

// LoadAll fetches the full dataset.
func (c *SheetsClient) LoadAll(ctx context.Context) (*models.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build load request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to load dataset: http %d", resp.StatusCode)
	}

	var payload sheetPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if payload.Status != "success" {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedStatus, payload.Status)
	}

	ds := &models.Dataset{
		Sites:    make([]models.Site, 0, len(payload.Sites)),
		Officers: make([]models.Officer, 0, len(payload.Officers)),
		Reports:  make([]models.Report, 0, len(payload.Reports)),
	}
	for _, s := range payload.Sites {
		ds.Sites = append(ds.Sites, models.Site{
			ID:       int64(s.ID),
			Name:     string(s.Name),
			District: string(s.District),
			Lat:      float64(s.Lat),
			Lng:      float64(s.Lng),
			Status:   string(s.Status),
		})
	}
	for _, o := range payload.Officers {
		ds.Officers = append(ds.Officers, models.Officer{
			ID:           string(o.ID),
			Name:         string(o.Name),
			Designation:  string(o.Designation),
			Office:       string(o.Office),
			Level:        models.ParseLevel(string(o.Level)),
			Jurisdiction: string(o.Jurisdiction),
			Password:     string(o.Password),
		})
	}
	for _, r := range payload.Reports {
		status, ok := models.ParseStatus(string(r.Status))
		if !ok {
			c.logger.WithFields(logrus.Fields{
				"report_id": int64(r.ID),
				"status":    string(r.Status),
			}).Warn("skipping report with unknown status")
			continue
		}
		ds.Reports = append(ds.Reports, models.Report{
			ID:            int64(r.ID),
			Date:          parseSheetTime(string(r.Date), c.loc),
			Officer:       string(r.Officer),
			InspectorRole: models.ParseLevel(string(r.InspectorRole)),
			Site:          string(r.Site),
			Remarks:       string(r.Remarks),
			Status:        status,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"sites":    len(ds.Sites),
		"officers": len(ds.Officers),
		"reports":  len(ds.Reports),
	}).Info("dataset loaded")
	return ds, nil
}

// AppendReport sends a SUBMIT for a new report.
func (c *SheetsClient) AppendReport(ctx context.Context, report models.Report) error {
	return c.post(ctx, map[string]any{
		"action":        ActionSubmit,
		"id":            report.ID,
		"date":          report.Date.UTC().Format(time.RFC3339Nano),
		"officer":       report.Officer,
		"inspectorRole": report.InspectorRole,
		"site":          report.Site,
		"remarks":       report.Remarks,
		"status":        report.Status,
	})
}

// UpdateStatus sends an UPDATE_STATUS for a transition.
func (c *SheetsClient) UpdateStatus(ctx context.Context, update models.StatusUpdate) error {
	return c.post(ctx, map[string]any{
		"action": ActionUpdateStatus,
		"rowId":  update.ReportID,
		"status": update.NewStatus,
		"note":   update.Note,
	})
}

// UpsertOfficer sends ADD_USER or UPDATE_USER with the full record.
func (c *SheetsClient) UpsertOfficer(ctx context.Context, upsert models.OfficerUpsert) error {
	o := upsert.Officer
	return c.post(ctx, map[string]any{
		"action":       upsertAction(upsert),
		"oldName":      upsert.OldName,
		"name":         o.Name,
		"designation":  o.Designation,
		"office":       o.Office,
		"level":        o.Level,
		"password":     o.Password,
		"jurisdiction": o.Jurisdiction,
	})
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (c *SheetsClient) Close() error {
	return nil
}

func (c *SheetsClient) post(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %v: %w", payload["action"], err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %v request: %w", payload["action"], err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %v: %w", payload["action"], err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("failed to send %v: http %d", payload["action"], resp.StatusCode)
	}
	return nil
}

// --- Lenient decoding ---
//
// Spreadsheet cells come back as strings, numbers or null depending on how
// they were typed in, so the wire types accept any of them.

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexString(v)
	default:
		*f = flexString(s)
	}
	return nil
}

type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	v := strings.TrimSpace(string(s))
	if v == "" {
		*f = 0
		return nil
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		*f = flexInt(i)
		return nil
	}
	fl, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q", v)
	}
	*f = flexInt(int64(fl))
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	v := strings.TrimSpace(string(s))
	if v == "" {
		*f = 0
		return nil
	}
	fl, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", v)
	}
	*f = flexFloat(fl)
	return nil
}

// Layouts carrying their own offset; the rest are wall-clock times in the
// client's zone.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// parseSheetTime accepts ISO strings, a few spreadsheet layouts and epoch
// milliseconds. Unreadable dates come back as the zero time.
func parseSheetTime(v string, loc *time.Location) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
