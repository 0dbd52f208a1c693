package reports

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/attendanceconsole/internal/attendanceapi"
	"github.com/attendanceconsole/internal/calendar"
	"github.com/attendanceconsole/internal/statistics"
)

type RosterFetcher interface {
	ListAttendance(context.Context) ([]*attendanceapi.AttendanceRecord, error)
}

type Row struct {
	ID   int
	Name string
	Grid calendar.Grid
}

type Model struct {
	logger  *slog.Logger
	fetcher RosterFetcher
	now     func() time.Time

	guard   sync.Mutex
	roster  []*attendanceapi.AttendanceRecord
	year    int
	version uint64
	cache   rowsCache
}

type rowsCache struct {
	version uint64
	month   time.Month
	rows    []Row
}

type Option func(*Model)

func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

func NewModel(logger *slog.Logger, fetcher RosterFetcher, opts ...Option) *Model {
	m := &Model{
		logger:  logger,
		fetcher: fetcher,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.year = m.now().Year()
	return m
}

// Refresh replaces the roster snapshot with a fresh one from the backend. On
// failure the previous snapshot is kept.
func (m *Model) Refresh(ctx context.Context) error {
	roster, err := m.fetcher.ListAttendance(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "fetch roster", "error", err)
		return fmt.Errorf("list attendance: %w", err)
	}
	year := m.now().Year()

	m.guard.Lock()
	m.roster = roster
	m.year = year
	m.version++
	m.guard.Unlock()

	m.logger.DebugContext(ctx, "roster refreshed", "students", len(roster), "year", year)
	return nil
}

// Dispatch reduces state with action and refetches the roster when the action
// requires it. The returned state is valid even when err is not nil.
func (m *Model) Dispatch(ctx context.Context, state ViewState, action Action) (ViewState, error) {
	next := Reduce(state, action)
	if NeedsRefetch(action) {
		return next, m.Refresh(ctx)
	}
	return next, nil
}

func (m *Model) Year() int {
	m.guard.Lock()
	defer m.guard.Unlock()
	return m.year
}

// Rows returns a row for every student of the snapshot, in backend order. Grids
// are rebuilt only when the month or the snapshot changes.
func (m *Model) Rows(month calendar.Month) []Row {
	m.guard.Lock()
	defer m.guard.Unlock()
	if m.cache.rows != nil && m.cache.version == m.version && m.cache.month == month.Number {
		return m.cache.rows
	}
	rows := make([]Row, 0, len(m.roster))
	for _, record := range m.roster {
		rows = append(rows, Row{
			ID:   record.SequenceNumber,
			Name: record.Name,
			Grid: calendar.Build(record.PresentDates(), m.year, month.Number),
		})
	}
	m.cache = rowsCache{
		version: m.version,
		month:   month.Number,
		rows:    rows,
	}
	return rows
}

// VisibleRows yields rows whose name contains the search term, ignoring case.
func (m *Model) VisibleRows(state ViewState) iter.Seq[Row] {
	rows := m.Rows(state.Month)
	search := strings.ToLower(state.Search)
	return func(yield func(Row) bool) {
		for _, row := range rows {
			if !strings.Contains(strings.ToLower(row.Name), search) {
				continue
			}
			if !yield(row) {
				return
			}
		}
	}
}

type View struct {
	State ViewState
	Year  int
	Days  []int
	Rows  []ViewRow
}

type ViewRow struct {
	Row
	// Cells holds presence for each of View.Days.
	Cells []bool
	Stats statistics.Statistics
}

// ShowTotals reports whether aggregate columns are part of the view.
func (v View) ShowTotals() bool {
	return v.State.Day.IsAll()
}

// View is the visible slice shared by rendering and exports.
func (m *Model) View(state ViewState) View {
	view := View{
		State: state,
		Year:  m.Year(),
		Days:  state.VisibleDays(),
	}
	for row := range m.VisibleRows(state) {
		cells := make([]bool, len(view.Days))
		for i, day := range view.Days {
			cells[i] = row.Grid.Present(day)
		}
		view.Rows = append(view.Rows, ViewRow{
			Row:   row,
			Cells: cells,
			Stats: statistics.Calculate(row.Grid, state.Month, state.Day),
		})
	}
	return view
}
