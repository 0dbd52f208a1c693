package templates

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/attendanceconsole/internal/calendar"
	"github.com/attendanceconsole/internal/capture"
	"github.com/attendanceconsole/internal/recognitions"
	"github.com/attendanceconsole/internal/reports"
	"github.com/dustin/go-humanize"
)

type Renderer interface {
	RenderAttendancePage(io.Writer, AttendanceData) error
	RenderCapturePage(io.Writer, CaptureData) error
}

type AttendanceData struct {
	View   reports.View
	Months []calendar.Month
	// Error is shown above the table when the roster could not be refreshed.
	Error string
}

type CaptureData struct {
	Status   capture.Status
	Snapshot recognitions.Snapshot
	Logged   int
	Error    string
}

var funcs = template.FuncMap{
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return humanize.Time(t)
	},
	"ordinal": humanize.Ordinal,
	"comma": func(n uint64) string {
		return humanize.Comma(int64(n))
	},
}

//go:embed *.html.template
var embedFS embed.FS

var _ Renderer = &embedTemplates{}

type embedTemplates struct {
	attendance *template.Template
	capture    *template.Template
}

func NewEmbedTemplates() Renderer {
	return &embedTemplates{
		attendance: template.Must(parsePage(embedFS, "attendance.html.template")),
		capture:    template.Must(parsePage(embedFS, "capture.html.template")),
	}
}

func (t *embedTemplates) RenderAttendancePage(w io.Writer, data AttendanceData) error {
	return t.attendance.Execute(w, data)
}

func (t *embedTemplates) RenderCapturePage(w io.Writer, data CaptureData) error {
	return t.capture.Execute(w, data)
}

var _ Renderer = &filesystemTemplates{}

// filesystemTemplates parses templates on every render, so that changes are
// picked up without a restart.
type filesystemTemplates struct {
	fs fs.FS
}

func NewFilesystemTemplates(path string) Renderer {
	return &filesystemTemplates{
		fs: os.DirFS(path),
	}
}

func (t *filesystemTemplates) RenderAttendancePage(w io.Writer, data AttendanceData) error {
	tmpl, err := parsePage(t.fs, "attendance.html.template")
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

func (t *filesystemTemplates) RenderCapturePage(w io.Writer, data CaptureData) error {
	tmpl, err := parsePage(t.fs, "capture.html.template")
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

func parsePage(fsys fs.FS, page string) (*template.Template, error) {
	return template.New("_layout.html.template").Funcs(funcs).ParseFS(fsys, "_layout.html.template", page)
}
