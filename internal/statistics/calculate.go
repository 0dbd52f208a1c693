package statistics

import (
	"strconv"
	"time"

	"github.com/attendanceconsole/internal/calendar"
)

func Calculate(grid calendar.Grid, month calendar.Month, filter DayFilter) Statistics {
	stats := Statistics{}
	if filter.IsAll() {
		for day := 1; day <= month.Days(); day++ {
			stats.TotalDays++
			if grid.Present(day) {
				stats.PresentDays++
			}
		}
	} else if day := filter.Day(); day >= 1 && day <= month.Days() {
		stats.TotalDays = 1
		if grid.Present(day) {
			stats.PresentDays = 1
		}
	}
	stats.Percentage = percentage(stats.PresentDays, stats.TotalDays)
	return stats
}

func percentage(present, total int) string {
	if total == 0 {
		return "0.0"
	}
	return strconv.FormatFloat(float64(present)/float64(total)*100, 'f', 1, 64)
}

type MonthlyCount struct {
	Year  int
	Month int
	Count int
}

// MonthlySeries labels backend monthly counts for the dashboard chart. Order is kept.
func MonthlySeries(counts []MonthlyCount) Series {
	series := Series{
		Points: make([]Point, 0, len(counts)),
	}
	for _, c := range counts {
		var label string
		if c.Month >= int(time.January) && c.Month <= int(time.December) {
			label = time.Month(c.Month).String()[:3]
		}
		series.Total += c.Count
		series.Points = append(series.Points, Point{
			Label: label,
			Year:  c.Year,
			Month: c.Month,
			Total: c.Count,
		})
	}
	return series
}
