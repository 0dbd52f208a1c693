package attendanceapi

type AttendanceRecord struct {
	SequenceNumber int      `json:"s_no"`
	Name           string   `json:"name"`
	Attendance     []string `json:"attendance"`
	AttendedDays   int      `json:"attended_days"`
	TotalDaysHeld  int      `json:"total_days_held"`
	Percentage     float64  `json:"percentage"`
}

// PresentDates returns Attendance as a set of ISO dates.
func (r AttendanceRecord) PresentDates() map[string]struct{} {
	dates := make(map[string]struct{}, len(r.Attendance))
	for _, date := range r.Attendance {
		dates[date] = struct{}{}
	}
	return dates
}

type ChartType string

const (
	ChartTypeBar  ChartType = "bar"
	ChartTypeLine ChartType = "line"
)

func (t ChartType) Valid() bool {
	return t == ChartTypeBar || t == ChartTypeLine
}

type PlotResponse struct {
	Attendance []MonthlyAttendance `json:"attendance"`
	// Image is a base64 encoded PNG rendered by the backend.
	Image string `json:"image"`
}

type MonthlyAttendance struct {
	ID struct {
		Month int `json:"month"`
		Year  int `json:"year"`
	} `json:"_id"`
	AttendanceCount int `json:"attendance_count"`
}

type RecognizedFace struct {
	StudentID string `json:"student_id"`
	Time      string `json:"time"`
}
