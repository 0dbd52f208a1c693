package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/attendanceconsole/internal/attendanceapi"
	"github.com/attendanceconsole/internal/calendar"
	"github.com/attendanceconsole/internal/camera"
	"github.com/attendanceconsole/internal/capture"
	"github.com/attendanceconsole/internal/export"
	"github.com/attendanceconsole/internal/http/templates"
	"github.com/attendanceconsole/internal/recognitions"
	"github.com/attendanceconsole/internal/reports"
	"github.com/attendanceconsole/internal/statistics"
	"github.com/attendanceconsole/internal/viewers"
)

func Handler(
	logger *slog.Logger,
	renderer templates.Renderer,
	staticHandler http.Handler,
	model *reports.Model,
	viewersStore *viewers.Store,
	apiClient *attendanceapi.APIClient,
	session *capture.Session,
	register *recognitions.Register,
	sink *camera.LatestFrameSink,
	logStore *recognitions.LogStore,
) http.HandlerFunc {
	withViewer := WithViewer()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex())

	mux.HandleFunc("GET /attendance", withViewer(handleAttendancePage(logger, renderer, model, viewersStore)))
	mux.HandleFunc("GET /attendance/export.csv", withViewer(handleExport(logger, model, viewersStore, export.ExtCSV, "text/csv; charset=utf-8", export.WriteCSV)))
	mux.HandleFunc("GET /attendance/export.xlsx", withViewer(handleExport(logger, model, viewersStore, export.ExtXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WriteXLSX)))
	mux.HandleFunc("GET /attendance/export.ics", withViewer(handleExport(logger, model, viewersStore, export.ExtICS, "text/calendar", export.WriteICal)))

	mux.HandleFunc("GET /students", handleListStudents(logger, apiClient))
	mux.HandleFunc("GET /students/{student}/plot/{chartType}", handleStudentPlot(logger, apiClient))

	mux.HandleFunc("GET /capture", handleCapturePage(logger, renderer, session, register, logStore))
	mux.HandleFunc("POST /capture/start", handleStartCapture(logger, session))
	mux.HandleFunc("POST /capture/stop", handleStopCapture(session))
	mux.HandleFunc("GET /capture/faces", handleRecognizedFaces(logger, register))
	mux.HandleFunc("GET /capture/ws", handleCaptureFeed(logger, register, session, &captureWatchers{}))
	mux.HandleFunc("GET /capture/frame.jpg", handleCaptureFrame(sink))
	mux.HandleFunc("GET /capture/log.csv", handleCaptureLog(logger, logStore))

	mux.Handle("GET /static/", staticHandler)

	return WithAccessLogs(logger)(mux.ServeHTTP)
}

func handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/attendance", http.StatusFound)
	}
}

func handleAttendancePage(
	logger *slog.Logger,
	renderer templates.Renderer,
	model *reports.Model,
	viewersStore *viewers.Store,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, _ := viewers.FromContext(r.Context())

		state, err := viewersStore.StateOrDefault(r.Context(), viewer.ID)
		if err != nil {
			logger.Error("find view state", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		actions, err := actionsFromQuery(r.URL.Query(), state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var fetchErr error
		refetched := false
		for _, action := range actions {
			state, err = model.Dispatch(r.Context(), state, action)
			if reports.NeedsRefetch(action) {
				refetched = true
				fetchErr = err
			}
		}
		// the roster is fetched fresh for every page view
		if !refetched {
			fetchErr = model.Refresh(r.Context())
		}

		if err := viewersStore.UpsertState(r.Context(), viewer.ID, state); err != nil {
			logger.Error("upsert view state", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		data := templates.AttendanceData{
			View:   model.View(state),
			Months: calendar.Months,
		}
		if fetchErr != nil {
			data.Error = "Could not load attendance from the backend, showing the last known data."
		}
		if err := renderer.RenderAttendancePage(w, data); err != nil {
			logger.Error("render attendance page", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

func handleExport(
	logger *slog.Logger,
	model *reports.Model,
	viewersStore *viewers.Store,
	ext string,
	contentType string,
	write func(io.Writer, reports.View) error,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, _ := viewers.FromContext(r.Context())

		state, err := viewersStore.StateOrDefault(r.Context(), viewer.ID)
		if err != nil {
			logger.Error("find view state", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		// rendered up front, so that a failure still gets a proper status
		buf := &bytes.Buffer{}
		if err := write(buf, model.View(state)); err != nil {
			logger.Error("write export", "format", ext, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(state, ext)))
		if _, err := buf.WriteTo(w); err != nil {
			logger.Error("send export", "format", ext, "error", err)
		}
	}
}

func handleListStudents(logger *slog.Logger, apiClient *attendanceapi.APIClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := apiClient.ListStudents(r.Context())
		if err != nil {
			logger.Error("list students", "error", err)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(r.Context(), logger, w, students)
	}
}

type studentPlot struct {
	Student   string                  `json:"student"`
	ChartType attendanceapi.ChartType `json:"chart_type"`
	Series    statistics.Series       `json:"series"`
	Image     string                  `json:"image,omitempty"`
}

func handleStudentPlot(logger *slog.Logger, apiClient *attendanceapi.APIClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		student := r.PathValue("student")
		chartType := attendanceapi.ChartType(r.PathValue("chartType"))
		if !chartType.Valid() {
			http.Error(w, fmt.Sprintf("unknown chart type %q", chartType), http.StatusBadRequest)
			return
		}

		plot, err := apiClient.GetPlot(r.Context(), attendanceapi.GetPlotInput{
			Student:   student,
			ChartType: chartType,
		})
		if err != nil {
			logger.Error("get plot", "student", student, "error", err)
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		counts := make([]statistics.MonthlyCount, 0, len(plot.Attendance))
		for _, a := range plot.Attendance {
			counts = append(counts, statistics.MonthlyCount{
				Year:  a.ID.Year,
				Month: a.ID.Month,
				Count: a.AttendanceCount,
			})
		}

		writeJSON(r.Context(), logger, w, studentPlot{
			Student:   student,
			ChartType: chartType,
			Series:    statistics.MonthlySeries(counts),
			Image:     plot.Image,
		})
	}
}

var captureErrors = map[string]string{
	"denied":      "Camera access was denied.",
	"unavailable": "Camera is not available.",
}

func handleCapturePage(
	logger *slog.Logger,
	renderer templates.Renderer,
	session *capture.Session,
	register *recognitions.Register,
	logStore *recognitions.LogStore,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := logStore.ListEntries(r.Context())
		if err != nil {
			logger.Error("list capture log", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if err := renderer.RenderCapturePage(w, templates.CaptureData{
			Status:   session.Status(),
			Snapshot: register.Snapshot(),
			Logged:   len(entries),
			Error:    captureErrors[r.URL.Query().Get("error")],
		}); err != nil {
			logger.Error("render capture page", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

func handleStartCapture(logger *slog.Logger, session *capture.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := session.Start(r.Context()); errors.Is(err, camera.ErrPermissionDenied) {
			http.Redirect(w, r, "/capture?error=denied", http.StatusSeeOther)
			return
		} else if err != nil {
			logger.Warn("start capture", "error", err)
			http.Redirect(w, r, "/capture?error=unavailable", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/capture", http.StatusSeeOther)
	}
}

func handleStopCapture(session *capture.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session.Stop()
		http.Redirect(w, r, "/capture", http.StatusSeeOther)
	}
}

func handleRecognizedFaces(logger *slog.Logger, register *recognitions.Register) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), logger, w, register.Snapshot())
	}
}

func handleCaptureFrame(sink *camera.LatestFrameSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, _, ok := sink.Latest()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(frame)
	}
}

func handleCaptureLog(logger *slog.Logger, logStore *recognitions.LogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := logStore.ListEntries(r.Context())
		if err != nil {
			logger.Error("list capture log", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		buf := &bytes.Buffer{}
		if err := export.WriteCaptureLog(buf, entries); err != nil {
			logger.Error("write capture log", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="capture_log.csv"`)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Error("send capture log", "error", err)
		}
	}
}

func writeJSON(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorContext(ctx, "encode response", "error", err)
	}
}
