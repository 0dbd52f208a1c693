package export

import (
	"fmt"
	"strconv"

	"github.com/attendanceconsole/internal/reports"
	"github.com/attendanceconsole/internal/statistics"
)

const (
	ExtCSV  = "csv"
	ExtXLSX = "xlsx"
	ExtICS  = "ics"
)

// Filename encodes the month and day filter of the exported view.
func Filename(state reports.ViewState, ext string) string {
	if state.Day.IsAll() {
		return fmt.Sprintf("attendance_%s_all_days.%s", state.Month.Name, ext)
	}
	return fmt.Sprintf("attendance_%s_day_%d.%s", state.Month.Name, state.Day.Day(), ext)
}

// table lays out the view the same way for every tabular format.
func table(view reports.View) [][]string {
	header := make([]string, 0, len(view.Days)+4)
	header = append(header, "Student Name")
	for _, day := range view.Days {
		header = append(header, fmt.Sprintf("Day %d", day))
	}
	if view.ShowTotals() {
		header = append(header, "Present Days", "Total Days", "Percentage")
	}

	records := make([][]string, 0, len(view.Rows)+1)
	records = append(records, header)
	for _, row := range view.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Name)
		for _, present := range row.Cells {
			record = append(record, presence(present))
		}
		if view.ShowTotals() {
			record = append(record, totals(row.Stats)...)
		}
		records = append(records, record)
	}
	return records
}

func presence(present bool) string {
	if present {
		return "Present"
	}
	return "Absent"
}

func totals(stats statistics.Statistics) []string {
	return []string{
		strconv.Itoa(stats.PresentDays),
		strconv.Itoa(stats.TotalDays),
		stats.Percentage + "%",
	}
}
