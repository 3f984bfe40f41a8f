package calendar

import (
	"time"

	"rentdesk/internal/booking"
	"rentdesk/internal/model"
)

// CellKind is the rendering class of a day cell, highest priority first:
// booked, today, in-month, none (padding day from an adjacent month).
type CellKind int

const (
	CellNone CellKind = iota
	CellInMonth
	CellToday
	CellBooked
)

func (k CellKind) String() string {
	switch k {
	case CellBooked:
		return "booked"
	case CellToday:
		return "today"
	case CellInMonth:
		return "in-month"
	default:
		return "none"
	}
}

// Cell is one classified day of a month grid.
type Cell struct {
	Date    time.Time `json:"date"`
	Day     int       `json:"day"`
	InMonth bool      `json:"inMonth"`
	Today   bool      `json:"today"`
	Booked  bool      `json:"booked"`

	// BookingType is set when Booked; confirmed wins over tentative.
	BookingType model.BookingType `json:"bookingType,omitempty"`
}

// Kind collapses the flags into a single class.
func (c Cell) Kind() CellKind {
	switch {
	case c.Booked:
		return CellBooked
	case c.Today:
		return CellToday
	case c.InMonth:
		return CellInMonth
	default:
		return CellNone
	}
}

// Month is a classified 42-cell grid.
type Month struct {
	Year     int            `json:"year"`
	Month    time.Month     `json:"month"`
	Weekdays []time.Weekday `json:"weekdays"`
	Cells    []Cell         `json:"cells"`
}

// Classify builds the Cell for day as displayed in the (year, month) grid.
// Booking membership uses the same inclusive bounds as the conflict check.
func (c Calendar) Classify(day time.Time, year int, month time.Month, ranges []model.BookingRange, now time.Time) Cell {
	day = c.Day(day)
	cell := Cell{
		Date:    day,
		Day:     day.Day(),
		InMonth: day.Year() == year && day.Month() == month,
		Today:   day.Equal(c.Day(now)),
	}
	for _, r := range ranges {
		if !booking.Contains(booking.Normalize(r, c.loc()), day) {
			continue
		}
		cell.Booked = true
		if cell.BookingType != model.BookingConfirmed {
			cell.BookingType = r.Type
		}
	}
	return cell
}

// Month classifies every cell of the (year, month) grid.
func (c Calendar) Month(year int, month time.Month, ranges []model.BookingRange, now time.Time) Month {
	dates := c.MonthGrid(year, month)
	cells := make([]Cell, 0, len(dates))
	for _, d := range dates {
		cells = append(cells, c.Classify(d, year, month, ranges, now))
	}
	return Month{
		Year:     year,
		Month:    month,
		Weekdays: c.Weekdays(),
		Cells:    cells,
	}
}

// RangesStartingIn keeps the ranges whose start date lies in year. A range
// crossing New Year is therefore only shown in its starting year.
func (c Calendar) RangesStartingIn(year int, ranges []model.BookingRange) []model.BookingRange {
	out := make([]model.BookingRange, 0, len(ranges))
	for _, r := range ranges {
		if r.StartDate.In(c.loc()).Year() == year {
			out = append(out, r)
		}
	}
	return out
}

// YearView returns the twelve month grids of year with only that year's
// ranges highlighted.
func (c Calendar) YearView(year int, ranges []model.BookingRange, now time.Time) []Month {
	inYear := c.RangesStartingIn(year, ranges)
	months := make([]Month, 0, 12)
	for m := time.January; m <= time.December; m++ {
		months = append(months, c.Month(year, m, inYear, now))
	}
	return months
}
