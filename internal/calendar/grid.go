package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"rentdesk/internal/booking"
	appLog "rentdesk/internal/log"
)

// GridCells is the fixed size of a month grid: 6 weeks of 7 days.
const GridCells = 42

// Calendar fixes the two conventions every grid depends on: the timezone
// days are anchored in and the weekday shown in the first column.
type Calendar struct {
	Location     *time.Location
	FirstWeekday time.Weekday
}

// New returns a Calendar; a nil loc means time.Local.
func New(loc *time.Location, firstWeekday time.Weekday) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{Location: loc, FirstWeekday: firstWeekday}
}

// ParseWeekday accepts English weekday names ("monday", "Sun", ...).
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if key == name || (len(key) >= 3 && strings.HasPrefix(name, key)) {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("calendar: unknown weekday %q", s)
}

// DaysInMonth returns the number of days of month in year (Gregorian).
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Day normalizes t to start-of-day in the calendar's location.
func (c Calendar) Day(t time.Time) time.Time {
	return booking.StartOfDay(t, c.loc())
}

// Weekdays returns the seven column headers starting at FirstWeekday.
func (c Calendar) Weekdays() []time.Weekday {
	out := make([]time.Weekday, 7)
	for i := range out {
		out[i] = (c.FirstWeekday + time.Weekday(i)) % 7
	}
	return out
}

// LeadingDays is the number of previous-month cells before day 1.
func (c Calendar) LeadingDays(year int, month time.Month) int {
	first := booking.DayStart(year, month, 1, c.loc())
	return (int(first.Weekday()) - int(c.FirstWeekday) + 7) % 7
}

// MonthGrid returns the 42 start-of-day dates displayed for (year, month):
// trailing days of the previous month up to FirstWeekday, every day of the
// month, then days of the next month until the grid is full. month is
// expected in 1..12.
func (c Calendar) MonthGrid(year int, month time.Month) []time.Time {
	loc := c.loc()
	offset := c.LeadingDays(year, month)

	cells := make([]time.Time, 0, GridCells)

	// Day 0 and below normalize into the previous month.
	for d := 1 - offset; d <= 0; d++ {
		cells = append(cells, booking.DayStart(year, month, d, loc))
	}

	cells = append(cells, c.monthDays(year, month)...)

	for d := 1; len(cells) < GridCells; d++ {
		cells = append(cells, booking.DayStart(year, month+1, d, loc))
	}

	return cells
}

// monthDays enumerates every day of the month via a DAILY rule bounded by
// the last day of the month. The rule runs on UTC dates so a local midnight
// skipped by DST cannot shift a day; each date is then anchored in loc.
func (c Calendar) monthDays(year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: first,
		Until:   last,
	})
	if err != nil {
		appLog.Error("calendar: daily rule failed; falling back to date arithmetic", err, "month", first.Format("2006-01"))
		return fallbackDays(year, month, last.Day(), c.loc())
	}

	occ := r.All()
	out := make([]time.Time, 0, len(occ))
	for _, t := range occ {
		out = append(out, booking.DayStart(t.Year(), t.Month(), t.Day(), c.loc()))
	}
	return out
}

func fallbackDays(year int, month time.Month, days int, loc *time.Location) []time.Time {
	out := make([]time.Time, 0, days)
	for d := 1; d <= days; d++ {
		out = append(out, booking.DayStart(year, month, d, loc))
	}
	return out
}
