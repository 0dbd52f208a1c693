package http

import (
	"net/url"

	"github.com/attendanceconsole/internal/calendar"
	"github.com/attendanceconsole/internal/reports"
	"github.com/attendanceconsole/internal/statistics"
)

// actionsFromQuery turns report query parameters into actions. A month equal to
// the current one is not an action, so that resubmitting the filter form keeps
// the selected day. A month change always shows all days, the day submitted
// along with it belongs to the previous month.
func actionsFromQuery(query url.Values, state reports.ViewState) ([]reports.Action, error) {
	actions := []reports.Action{}
	monthChanged := false
	if query.Has("month") {
		month, err := calendar.ParseMonth(query.Get("month"))
		if err != nil {
			return nil, err
		}
		if month != state.Month {
			actions = append(actions, reports.SetMonth{Month: month})
			monthChanged = true
		}
	}
	if query.Has("day") && !monthChanged {
		filter, err := statistics.ParseDayFilter(query.Get("day"))
		if err != nil {
			return nil, err
		}
		actions = append(actions, reports.SetDay{Filter: filter})
	}
	if query.Has("search") {
		actions = append(actions, reports.SetSearch{Text: query.Get("search")})
	}
	return actions, nil
}
