package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"rentdesk/internal/booking"
	"rentdesk/internal/model"
)

const productID = "-//RentDesk//Bookings//EN"

// Export renders an object's bookings as a VCALENDAR. Each range becomes an
// all-day VEVENT whose DTEND is the day after the last booked day, and whose
// UID is the range ID so subscribers can track updates.
func Export(obj model.RentalObject, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	name := obj.Title
	if name == "" {
		name = obj.ID
	}
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(loc.String())

	for _, r := range obj.BookingRanges {
		ev := cal.AddEvent(r.ID + "@rentdesk")
		ev.SetDtStampTime(now.UTC())
		ev.SetAllDayStartAt(r.StartDate.In(loc))
		ev.SetAllDayEndAt(booking.NextDay(r.EndDate, loc))
		ev.SetSummary(summaryFor(name, r))
		if r.Type == model.BookingTentative {
			ev.SetStatus(ical.ObjectStatusTentative)
		} else {
			ev.SetStatus(ical.ObjectStatusConfirmed)
		}
		if r.Source != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, r.Source)
		}
	}

	return cal.Serialize()
}

func summaryFor(title string, r model.BookingRange) string {
	var b strings.Builder
	b.WriteString(title)
	if r.Type == model.BookingTentative {
		b.WriteString(" (tentative)")
	} else {
		b.WriteString(" (booked)")
	}
	return b.String()
}
