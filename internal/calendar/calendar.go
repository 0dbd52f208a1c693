package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxDays is the number of days every grid is computed for, regardless of month.
const MaxDays = 31

var ErrUnknownMonth = errors.New("unknown month")

type Month struct {
	Name   string
	Number time.Month
	days   int
}

// Days returns the canonical day count of the month. February is always 28.
func (m Month) Days() int {
	return m.days
}

// DayNumbers returns 1..Days().
func (m Month) DayNumbers() []int {
	out := make([]int, m.days)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func (m Month) String() string {
	return m.Name
}

var Months = []Month{
	{Name: "January", Number: time.January, days: 31},
	{Name: "February", Number: time.February, days: 28},
	{Name: "March", Number: time.March, days: 31},
	{Name: "April", Number: time.April, days: 30},
	{Name: "May", Number: time.May, days: 31},
	{Name: "June", Number: time.June, days: 30},
	{Name: "July", Number: time.July, days: 31},
	{Name: "August", Number: time.August, days: 31},
	{Name: "September", Number: time.September, days: 30},
	{Name: "October", Number: time.October, days: 31},
	{Name: "November", Number: time.November, days: 30},
	{Name: "December", Number: time.December, days: 31},
}

func ParseMonth(name string) (Month, error) {
	for _, m := range Months {
		if strings.EqualFold(m.Name, strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return Month{}, fmt.Errorf("%q: %w", name, ErrUnknownMonth)
}

// MonthOf panics on values outside January..December.
func MonthOf(number time.Month) Month {
	return Months[number-1]
}

// Grid holds presence for days 1..MaxDays of one month. Index 0 is unused.
type Grid [MaxDays + 1]bool

func (g Grid) Present(day int) bool {
	if day < 1 || day > MaxDays {
		return false
	}
	return g[day]
}

// Build looks up every day 1..MaxDays of the month in present. Days that do not
// exist in the month are formatted as is and therefore never match.
func Build(present map[string]struct{}, year int, month time.Month) Grid {
	var grid Grid
	for day := 1; day <= MaxDays; day++ {
		_, grid[day] = present[FormatDate(year, month, day)]
	}
	return grid
}

// FormatDate formats without normalizing, so February 30 stays "YYYY-02-30".
func FormatDate(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}
