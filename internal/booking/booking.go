package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"rentdesk/internal/model"
)

var (
	// ErrConflict is returned when a proposed range intersects an existing one.
	ErrConflict = errors.New("booking: dates overlap an existing booking")
	// ErrInvalidRange is returned when start is after end.
	ErrInvalidRange = errors.New("booking: start date is after end date")
	// ErrInvalidType is returned for an unknown booking type.
	ErrInvalidType = errors.New("booking: unknown booking type")
)

// DayStart returns the first instant of the calendar day (year, month, day)
// in loc. That is midnight, except on days where a DST change skips
// midnight; there the day begins at the transition. Out-of-range values are
// normalized the way time.Date does.
func DayStart(year int, month time.Month, day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if sameDate(t, y, m, d) {
		return t
	}
	// time.Date resolved the missing midnight into the previous day.
	if _, end := t.ZoneBounds(); !end.IsZero() && sameDate(end, y, m, d) {
		return end
	}
	for i := 0; i < 24 && !sameDate(t, y, m, d); i++ {
		t = t.Add(time.Hour)
	}
	return t
}

func sameDate(t time.Time, y int, m time.Month, d int) bool {
	ty, tm, td := t.Date()
	return ty == y && tm == m && td == d
}

// StartOfDay returns the first instant of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return DayStart(t.Year(), t.Month(), t.Day(), loc)
}

// ParseDay parses a YYYY-MM-DD date as the start of that day in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return DayStart(d.Year(), d.Month(), d.Day(), loc), nil
}

// NextDay returns the first instant of the day after t's calendar day in loc.
// Use it instead of AddDate(0, 0, 1) on day starts.
func NextDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return DayStart(t.Year(), t.Month(), t.Day()+1, loc)
}

// NewRange builds a BookingRange with a fresh ID. Both dates are normalized
// to start-of-day in loc before validation.
func NewRange(start, end time.Time, typ model.BookingType, loc *time.Location) (model.BookingRange, error) {
	if !typ.Valid() {
		return model.BookingRange{}, ErrInvalidType
	}
	start = StartOfDay(start, loc)
	end = StartOfDay(end, loc)
	if start.After(end) {
		return model.BookingRange{}, ErrInvalidRange
	}
	return model.BookingRange{
		ID:        uuid.NewString(),
		StartDate: start,
		EndDate:   end,
		Type:      typ,
	}, nil
}

// Overlaps is the closed-interval test. Touching bounds overlap: a checkout
// and a checkin on the same day are a conflict, since bookings are whole days.
func Overlaps(a, b model.BookingRange) bool {
	return !a.StartDate.After(b.EndDate) && !a.EndDate.Before(b.StartDate)
}

// HasConflict reports whether candidate overlaps any of existing.
func HasConflict(candidate model.BookingRange, existing []model.BookingRange) bool {
	for _, r := range existing {
		if Overlaps(candidate, r) {
			return true
		}
	}
	return false
}

// Contains reports whether day falls inside r, bounds included. day must
// already be normalized to start-of-day in the same location as r.
func Contains(r model.BookingRange, day time.Time) bool {
	return !day.Before(r.StartDate) && !day.After(r.EndDate)
}

// DeriveStatus maps a set of ranges to availability: any confirmed range
// makes the object rented, tentative holds do not.
func DeriveStatus(ranges []model.BookingRange) model.Status {
	for _, r := range ranges {
		if r.Type == model.BookingConfirmed {
			return model.StatusRented
		}
	}
	return model.StatusAvailable
}

// Normalize re-anchors both dates of r to start-of-day in loc. Used after
// decoding ranges that may have been written with another offset.
func Normalize(r model.BookingRange, loc *time.Location) model.BookingRange {
	r.StartDate = StartOfDay(r.StartDate, loc)
	r.EndDate = StartOfDay(r.EndDate, loc)
	return r
}
