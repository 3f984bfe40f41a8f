package booking

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"rentdesk/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rng(start, end time.Time, typ model.BookingType) model.BookingRange {
	return model.BookingRange{ID: start.Format("0102") + end.Format("0102"), StartDate: start, EndDate: end, Type: typ}
}

func TestHasConflictSymmetric(t *testing.T) {
	base := day(2025, time.January, 1)
	for i := 0; i < 12; i++ {
		for j := 0; j < 12; j++ {
			a := rng(base.AddDate(0, 0, i), base.AddDate(0, 0, i+3), model.BookingConfirmed)
			b := rng(base.AddDate(0, 0, j), base.AddDate(0, 0, j+(j%4)), model.BookingTentative)
			if HasConflict(a, []model.BookingRange{b}) != HasConflict(b, []model.BookingRange{a}) {
				t.Fatalf("asymmetric result for %v and %v", a, b)
			}
		}
	}
}

func TestHasConflictSelf(t *testing.T) {
	r := rng(day(2025, time.March, 3), day(2025, time.March, 3), model.BookingConfirmed)
	if !HasConflict(r, []model.BookingRange{r}) {
		t.Fatal("a range must conflict with itself")
	}
}

func TestHasConflictAdjacentDays(t *testing.T) {
	a := rng(day(2025, time.January, 1), day(2025, time.January, 5), model.BookingConfirmed)
	b := rng(day(2025, time.January, 6), day(2025, time.January, 10), model.BookingConfirmed)
	if HasConflict(a, []model.BookingRange{b}) {
		t.Fatal("Jan 1-5 and Jan 6-10 must not conflict")
	}
}

func TestHasConflictTouchingBoundary(t *testing.T) {
	// Same-day checkout/checkin counts as overlap: bookings are whole days.
	a := rng(day(2025, time.January, 1), day(2025, time.January, 5), model.BookingConfirmed)
	b := rng(day(2025, time.January, 5), day(2025, time.January, 10), model.BookingConfirmed)
	if !HasConflict(a, []model.BookingRange{b}) {
		t.Fatal("Jan 1-5 and Jan 5-10 must conflict")
	}
}

func TestHasConflictEmpty(t *testing.T) {
	a := rng(day(2025, time.January, 1), day(2025, time.January, 5), model.BookingConfirmed)
	if HasConflict(a, nil) {
		t.Fatal("no existing ranges means no conflict")
	}
}

func TestContainsInclusive(t *testing.T) {
	r := rng(day(2025, time.May, 10), day(2025, time.May, 12), model.BookingTentative)
	for _, d := range []int{10, 11, 12} {
		if !Contains(r, day(2025, time.May, d)) {
			t.Fatalf("May %d should be inside", d)
		}
	}
	if Contains(r, day(2025, time.May, 9)) || Contains(r, day(2025, time.May, 13)) {
		t.Fatal("days outside the range reported as contained")
	}
}

func TestDeriveStatus(t *testing.T) {
	confirmed := rng(day(2025, time.June, 1), day(2025, time.June, 2), model.BookingConfirmed)
	tentative := rng(day(2025, time.June, 5), day(2025, time.June, 6), model.BookingTentative)

	if got := DeriveStatus(nil); got != model.StatusAvailable {
		t.Fatalf("empty: got %s", got)
	}
	if got := DeriveStatus([]model.BookingRange{confirmed}); got != model.StatusRented {
		t.Fatalf("confirmed: got %s", got)
	}
	if got := DeriveStatus([]model.BookingRange{tentative}); got != model.StatusAvailable {
		t.Fatalf("tentative: got %s", got)
	}
	if got := DeriveStatus([]model.BookingRange{tentative, confirmed}); got != model.StatusRented {
		t.Fatalf("mixed: got %s", got)
	}
}

func TestNewRangeNormalizesAndValidates(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	start := time.Date(2025, time.July, 1, 22, 30, 0, 0, loc)
	end := time.Date(2025, time.July, 3, 1, 15, 0, 0, loc)

	r, err := NewRange(start, end, model.BookingConfirmed, loc)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected generated ID")
	}
	if !r.StartDate.Equal(time.Date(2025, time.July, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("start not normalized: %v", r.StartDate)
	}
	if !r.EndDate.Equal(time.Date(2025, time.July, 3, 0, 0, 0, 0, loc)) {
		t.Fatalf("end not normalized: %v", r.EndDate)
	}

	if _, err := NewRange(end, start, model.BookingConfirmed, loc); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("reversed range: got %v", err)
	}
	if _, err := NewRange(start, end, "maybe", loc); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("bad type: got %v", err)
	}
}

func TestStartOfDayUsesLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	// 20:00 UTC on Jan 1 is already Jan 2 in UTC+7.
	got := StartOfDay(time.Date(2025, time.January, 1, 20, 0, 0, 0, time.UTC), loc)
	want := time.Date(2025, time.January, 2, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("StartOfDay = %v, want %v", got, want)
	}
}

func TestStartOfDayKeepsDateAcrossMidnightDSTGap(t *testing.T) {
	for _, tc := range []struct {
		zone  string
		year  int
		month time.Month
		day   int
	}{
		{"America/Santiago", 2022, time.September, 11},
		{"America/Havana", 2012, time.April, 1},
	} {
		loc, err := time.LoadLocation(tc.zone)
		if err != nil {
			t.Fatalf("LoadLocation(%s): %v", tc.zone, err)
		}
		noon := time.Date(tc.year, tc.month, tc.day, 12, 0, 0, 0, loc)
		got := StartOfDay(noon, loc)

		if y, m, d := got.Date(); y != tc.year || m != tc.month || d != tc.day {
			t.Fatalf("%s: StartOfDay(%v) = %v, moved to another day", tc.zone, noon, got)
		}
		// First instant of the day: one nanosecond earlier is the previous date.
		if prev := got.Add(-time.Nanosecond); prev.Day() == tc.day {
			t.Fatalf("%s: %v is not the first instant of the day", tc.zone, got)
		}
		if !DayStart(tc.year, tc.month, tc.day, loc).Equal(got) {
			t.Fatalf("%s: DayStart and StartOfDay disagree", tc.zone)
		}
		if parsed, err := ParseDay(noon.Format(time.DateOnly), loc); err != nil || !parsed.Equal(got) {
			t.Fatalf("%s: ParseDay = %v, %v; want %v", tc.zone, parsed, err, got)
		}
		if next := NextDay(StartOfDay(noon.AddDate(0, 0, -1), loc), loc); !next.Equal(got) {
			t.Fatalf("%s: NextDay of the previous day = %v, want %v", tc.zone, next, got)
		}

		// A booking on the gap day does not reach back into the day before.
		r, err := NewRange(noon, noon, model.BookingConfirmed, loc)
		if err != nil {
			t.Fatalf("NewRange: %v", err)
		}
		if !Contains(r, got) {
			t.Fatalf("%s: range %v..%v misses its own day", tc.zone, r.StartDate, r.EndDate)
		}
		before := StartOfDay(noon.AddDate(0, 0, -1), loc)
		if Contains(r, before) {
			t.Fatalf("%s: range covers %v", tc.zone, before)
		}
		prevDay, err := NewRange(before, before, model.BookingConfirmed, loc)
		if err != nil {
			t.Fatalf("NewRange: %v", err)
		}
		if Overlaps(r, prevDay) {
			t.Fatalf("%s: gap-day booking conflicts with the previous day", tc.zone)
		}
	}
}

func TestParseDayRejectsBadInput(t *testing.T) {
	if _, err := ParseDay("2025-13-01", time.UTC); err == nil {
		t.Fatal("expected error for month 13")
	}
	got, err := ParseDay("2025-07-01", time.UTC)
	if err != nil || !got.Equal(day(2025, time.July, 1)) {
		t.Fatalf("ParseDay = %v, %v", got, err)
	}
}
