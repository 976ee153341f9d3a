// Package report renders a dataset as a PDF document.
//
// Build produces the document content (ordering, completeness, numeric
// formatting) and is independent of layout; Render only lays it out.
package report

import (
	"fmt"
	"time"

	"chemviz-backend/internal/model"
)

// Title is the heading printed at the top of every report.
const Title = "ChemViz Analytics Report"

// Columns of the record table, in print order.
var Columns = []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temp"}

// SummaryCell is one labelled aggregate in the summary block.
type SummaryCell struct {
	Label string
	Value string
}

// Document is the fully formatted content of a report.
type Document struct {
	Title       string
	Filename    string
	GeneratedAt time.Time
	Summary     []SummaryCell
	Columns     []string
	Rows        [][]string
}

// Build formats a dataset and its records into a Document. Records are
// printed in the order given, which callers keep as insertion order.
func Build(ds *model.Dataset, generatedAt time.Time) Document {
	rows := make([][]string, 0, len(ds.Records))
	for _, r := range ds.Records {
		rows = append(rows, []string{
			r.EquipmentName,
			r.EquipmentType,
			formatNumber(r.Flowrate),
			formatNumber(r.Pressure),
			formatNumber(r.Temperature),
		})
	}

	return Document{
		Title:       Title,
		Filename:    ds.Filename,
		GeneratedAt: generatedAt,
		Summary: []SummaryCell{
			{Label: "Total Records", Value: fmt.Sprintf("%d", ds.TotalRecords)},
			{Label: "Avg Flowrate", Value: formatNumber(ds.AvgFlowrate) + " L/m"},
			{Label: "Avg Pressure", Value: formatNumber(ds.AvgPressure) + " PSI"},
			{Label: "Avg Temp", Value: formatNumber(ds.AvgTemperature) + " °C"},
		},
		Columns: Columns,
		Rows:    rows,
	}
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// Filename returns the attachment name for a dataset's report.
func Filename(ds *model.Dataset) string {
	return fmt.Sprintf("Report_%s.pdf", ds.Filename)
}
