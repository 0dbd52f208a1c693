package export

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/attendanceconsole/internal/reports"
)

// WriteICal writes one all-day event per visible present day of every visible student.
func WriteICal(w io.Writer, view reports.View) error {
	icalendar := ics.NewCalendar()
	icalendar.SetName(fmt.Sprintf("Attendance %s %d", view.State.Month.Name, view.Year))
	icalendar.SetMethod(ics.MethodPublish)
	stamp := time.Now().UTC()
	for _, row := range view.Rows {
		for i, day := range view.Days {
			if !row.Cells[i] {
				continue
			}
			start := time.Date(view.Year, view.State.Month.Number, day, 0, 0, 0, 0, time.UTC)
			ievent := icalendar.AddEvent(fmt.Sprintf("%d-%s@attendance", row.ID, start.Format(time.DateOnly)))
			ievent.SetDtStampTime(stamp)
			ievent.SetSummary(fmt.Sprintf("%s present", row.Name))
			ievent.SetAllDayStartAt(start)
			ievent.SetAllDayEndAt(start.AddDate(0, 0, 1))
		}
	}
	return icalendar.SerializeTo(w)
}
