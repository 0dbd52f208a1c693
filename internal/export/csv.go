package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/attendanceconsole/internal/recognitions"
	"github.com/attendanceconsole/internal/reports"
)

// WriteCSV writes the view as comma separated values. Fields containing commas,
// quotes or line breaks are quoted.
func WriteCSV(w io.Writer, view reports.View) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(table(view)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteCaptureLog writes logged recognitions as "Student ID,Time" rows.
func WriteCaptureLog(w io.Writer, events []recognitions.Event) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Student ID", "Time"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, event := range events {
		if err := writer.Write([]string{event.StudentID, event.Time}); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
