// Package calendar builds month grids for date selection.
package calendar

import (
	"time"

	"besedka/internal/models"
)

// DayState tags a grid cell.
type DayState int

const (
	DayBlank DayState = iota
	DaySelectable
	DayDisabled
)

// Cell is one square of the month grid. Day is zero for blank cells.
type Cell struct {
	Day   int
	State DayState
}

// Page is a Monday-first month grid.
type Page struct {
	Year  int
	Month time.Month
	Weeks [][7]Cell
}

// Generate builds the grid for year/month. A zero year or month falls back
// to the month of today. Days strictly before today are disabled.
func Generate(today models.Date, year, month int) Page {
	if year == 0 {
		year = today.Year
	}
	if month == 0 {
		month = int(today.Month)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	// Monday = 0 ... Sunday = 6
	offset := (int(first.Weekday()) + 6) % 7
	days := DaysIn(first.Month(), first.Year())

	page := Page{Year: first.Year(), Month: first.Month()}
	var week [7]Cell
	col := offset
	for day := 1; day <= days; day++ {
		state := DaySelectable
		if (models.Date{Year: page.Year, Month: page.Month, Day: day}).Before(today) {
			state = DayDisabled
		}
		week[col] = Cell{Day: day, State: state}
		col++
		if col == 7 {
			page.Weeks = append(page.Weeks, week)
			week = [7]Cell{}
			col = 0
		}
	}
	if col > 0 {
		page.Weeks = append(page.Weeks, week)
	}
	return page
}

// Previous returns the month before year/month.
func Previous(year, month int) (int, int) {
	if month <= 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// Next returns the month after year/month.
func Next(year, month int) (int, int) {
	if month >= 12 {
		return year + 1, 1
	}
	return year, month + 1
}

// Previous returns the year and month of the preceding page.
func (p Page) Previous() (int, int) { return Previous(p.Year, int(p.Month)) }

// Next returns the year and month of the following page.
func (p Page) Next() (int, int) { return Next(p.Year, int(p.Month)) }

// LastDay is the highest real day in the grid.
func (p Page) LastDay() int {
	last := 0
	for _, w := range p.Weeks {
		for _, c := range w {
			if c.Day > last {
				last = c.Day
			}
		}
	}
	return last
}

// Cell returns the cell for a given day of the month.
func (p Page) Cell(day int) (Cell, bool) {
	for _, w := range p.Weeks {
		for _, c := range w {
			if c.Day == day {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// DaysIn returns the number of days in the month.
func DaysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
