package reports

import (
	"time"

	"github.com/attendanceconsole/internal/calendar"
	"github.com/attendanceconsole/internal/statistics"
)

// ViewState is what a viewer has selected. Values are never modified in place,
// Reduce returns a new one.
type ViewState struct {
	Month  calendar.Month
	Day    statistics.DayFilter
	Search string
}

func DefaultViewState() ViewState {
	return ViewState{
		Month: calendar.MonthOf(time.January),
		Day:   statistics.AllDays,
	}
}

// VisibleDays returns the days shown as columns.
func (s ViewState) VisibleDays() []int {
	if s.Day.IsAll() {
		return s.Month.DayNumbers()
	}
	return []int{s.Day.Day()}
}

type Action interface {
	action()
}

type SetMonth struct {
	Month calendar.Month
}

type SetDay struct {
	Filter statistics.DayFilter
}

type SetSearch struct {
	Text string
}

func (SetMonth) action()  {}
func (SetDay) action()    {}
func (SetSearch) action() {}

func Reduce(state ViewState, action Action) ViewState {
	switch a := action.(type) {
	case SetMonth:
		state.Month = a.Month
		state.Day = statistics.AllDays
	case SetDay:
		// days that do not exist in the selected month are ignored
		if a.Filter.IsAll() || a.Filter.Day() <= state.Month.Days() {
			state.Day = a.Filter
		}
	case SetSearch:
		state.Search = a.Text
	}
	return state
}

// NeedsRefetch reports whether the roster has to be fetched again after action.
func NeedsRefetch(action Action) bool {
	_, ok := action.(SetMonth)
	return ok
}
