// Package export renders dashboards and report logs as downloadable files
// and archives them to Cloud Storage.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"cwcinspect/metrics"
)

const (
	summarySheet  = "Summary"
	officersSheet = "Officers"

	// XLSXContentType is the MIME type of WriteWorkbook's output.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var officerHeadings = []string{"Officer", "Designation", "Level", "Visits", "Target", "Achievement %", "Band"}

// WriteWorkbook writes the dashboard as an XLSX workbook: a summary sheet
// with the period counters and an officer sheet with one coloured row per
// officer.
func WriteWorkbook(w io.Writer, summary metrics.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Period", summary.Period.String()},
		{"Inspections", summary.Inspections},
		{"Active sites", summary.ActiveSites},
		{"Pending actions", summary.Pending},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(officersSheet); err != nil {
		return err
	}
	header := make([]any, len(officerHeadings))
	for i, h := range officerHeadings {
		header[i] = h
	}
	if err := f.SetSheetRow(officersSheet, "A1", &header); err != nil {
		return err
	}

	styles := map[metrics.Band]int{}
	for i, s := range summary.Officers {
		rowNo := i + 2
		row := []any{s.Name, s.Designation, string(s.Level), s.Visits, s.TargetLabel, s.Percentage, string(s.Band)}
		start, _ := excelize.CoordinatesToCellName(1, rowNo)
		if err := f.SetSheetRow(officersSheet, start, &row); err != nil {
			return err
		}

		style, ok := styles[s.Band]
		if !ok {
			var err error
			style, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{s.Band.Color()}},
			})
			if err != nil {
				return fmt.Errorf("band style: %w", err)
			}
			styles[s.Band] = style
		}
		end, _ := excelize.CoordinatesToCellName(len(officerHeadings), rowNo)
		if err := f.SetCellStyle(officersSheet, start, end, style); err != nil {
			return err
		}
	}

	return f.Write(w)
}
