package statistics

import (
	"errors"
	"fmt"
	"strconv"
)

// GoodThreshold is the percentage from which attendance is considered good.
const GoodThreshold = 75.0

type Statistics struct {
	TotalDays   int
	PresentDays int
	// Percentage is formatted with one decimal, "0.0" when TotalDays is 0.
	Percentage string
}

// Good reports whether at least GoodThreshold percent of the days were attended.
// Nothing to attend is not good.
func (s Statistics) Good() bool {
	if s.TotalDays == 0 {
		return false
	}
	return float64(s.PresentDays)*100 >= GoodThreshold*float64(s.TotalDays)
}

// DayFilter selects either every day of a month or a single day.
type DayFilter int

const AllDays DayFilter = 0

func Day(day int) DayFilter {
	return DayFilter(day)
}

func (f DayFilter) IsAll() bool {
	return f == AllDays
}

// Day returns the selected day, 0 for AllDays.
func (f DayFilter) Day() int {
	return int(f)
}

func (f DayFilter) String() string {
	if f.IsAll() {
		return "all"
	}
	return strconv.Itoa(int(f))
}

var ErrInvalidDay = errors.New("invalid day")

func ParseDayFilter(s string) (DayFilter, error) {
	if s == "" || s == "all" {
		return AllDays, nil
	}
	day, err := strconv.Atoi(s)
	if err != nil {
		return AllDays, fmt.Errorf("%q: %w", s, ErrInvalidDay)
	}
	if day < 1 {
		return AllDays, fmt.Errorf("%d: %w", day, ErrInvalidDay)
	}
	return Day(day), nil
}

type Point struct {
	// Label is a short month name, e.g. "Jan"
	Label string `json:"label"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Total int    `json:"total"`
}

type Series struct {
	Total  int     `json:"total"`
	Points []Point `json:"points"`
}
