package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"cwcinspect/models"
)

// CSVContentType is the MIME type of WriteReportsCSV's output.
const CSVContentType = "text/csv"

var reportHeadings = []string{"ID", "Date", "Officer", "InspectorRole", "Site", "Remarks", "Status"}

// WriteReportsCSV writes one row per report with dates rendered in loc.
func WriteReportsCSV(w io.Writer, reports []models.Report, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(reportHeadings); err != nil {
		return err
	}
	for _, r := range reports {
		date := ""
		if !r.Date.IsZero() {
			date = r.Date.In(loc).Format(time.RFC3339)
		}
		row := []string{
			strconv.FormatInt(r.ID, 10),
			date,
			r.Officer,
			string(r.InspectorRole),
			r.Site,
			r.Remarks,
			string(r.Status),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
