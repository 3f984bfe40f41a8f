package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"rentdesk/internal/booking"
	appLog "rentdesk/internal/log"
	"rentdesk/internal/model"
)

const defaultMaxOccurrencesPerEvent = 2000

// Occurrence is one concrete instance of a (possibly recurring) VEVENT.
type Occurrence struct {
	SourceID string
	UID      string
	Summary  string
	Status   string
	AllDay   bool
	Start    time.Time
	End      time.Time // exclusive
}

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// Location is the zone booking days are anchored in. Nil means time.Local.
	Location *time.Location

	// RangeStart / RangeEnd bound the occurrences, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero uses the default.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed VEVENTs into concrete occurrences inside the
// configured window, applying RRULE, EXDATE and RECURRENCE-ID overrides.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	uids := make([]string, 0)
	for _, ev := range events {
		if ev.IsOverride() {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	for _, uid := range uids {
		ov := overridesByUID[uid]
		for _, ev := range baseByUID[uid] {
			var occ []Occurrence
			if ev.RawRRule == "" {
				occ = expandSingle(ev, ov, cfg)
			} else {
				var hitCap bool
				occ, hitCap = expandRecurring(ev, ov, cfg)
				if hitCap {
					result.TruncatedEvents = append(result.TruncatedEvents, uid)
					appLog.Warn("expand: occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
				}
			}
			result.Occurrences = append(result.Occurrences, occ...)
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		return result.Occurrences[i].Start.Before(result.Occurrences[j].Start)
	})
	return result, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []Occurrence {
	if o, ok := findOverride(overrides, ev.Start); ok {
		ev = o
	}
	if !windowOverlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []Occurrence{makeOccurrence(ev, ev.Start, ev.End)}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	opt, err := rrule.StrToROption(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	anchor := ev.Start.Location()
	// DATE events recur on calendar days: expand them on UTC dates so a
	// local midnight skipped by DST cannot move an occurrence.
	toRule := func(t time.Time) time.Time { return t.In(anchor) }
	if ev.AllDay {
		toRule = func(t time.Time) time.Time {
			y, m, d := t.In(anchor).Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}
	opt.Dtstart = toRule(ev.Start)
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		appLog.Error("expand: invalid RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(toRule(ex))
	}

	// Widen the lower bound by the event length so a stay that began before
	// the window but runs into it is kept.
	dur := ev.End.Sub(ev.Start)
	days := int(dur.Hours()/24 + 0.5)
	from := toRule(cfg.RangeStart.Add(-dur))
	to := toRule(cfg.RangeEnd)
	starts := set.Between(from, to, true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		inst := ev
		if ev.AllDay {
			s = booking.DayStart(s.Year(), s.Month(), s.Day(), anchor)
			inst.Start = s
			inst.End = booking.DayStart(s.Year(), s.Month(), s.Day()+days, anchor)
		} else {
			inst.Start = s
			inst.End = s.Add(dur)
		}
		if o, ok := findOverride(overrides, s); ok {
			inst = o
		}
		out = append(out, makeOccurrence(inst, inst.Start, inst.End))
	}
	return out, hitCap
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time) Occurrence {
	return Occurrence{
		SourceID: ev.Source.ID,
		UID:      ev.UID,
		Summary:  ev.Summary,
		Status:   ev.Status,
		AllDay:   ev.AllDay,
		Start:    start,
		End:      end,
	}
}

func windowOverlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// BookingType maps an ICS STATUS to a booking type. Only TENTATIVE holds
// are tentative; CONFIRMED and an absent STATUS are confirmed.
func BookingType(status string) model.BookingType {
	if status == "TENTATIVE" {
		return model.BookingTentative
	}
	return model.BookingConfirmed
}

// ToBookingRanges converts occurrences into inclusive day ranges in loc.
// Cancelled occurrences are dropped. The exclusive end becomes the last
// occupied day, so a DTEND on the checkout date leaves that day free.
func ToBookingRanges(occs []Occurrence, loc *time.Location) []model.BookingRange {
	out := make([]model.BookingRange, 0, len(occs))
	for _, o := range occs {
		if o.Status == "CANCELLED" {
			continue
		}
		startDay := booking.StartOfDay(o.Start, loc)
		endDay := startDay
		if o.End.After(o.Start) {
			endDay = booking.StartOfDay(o.End.Add(-time.Nanosecond), loc)
		}
		r, err := booking.NewRange(startDay, endDay, BookingType(o.Status), loc)
		if err != nil {
			appLog.Warn("ics occurrence skipped", "uid", o.UID, "reason", err.Error())
			continue
		}
		// Same feed event, same ID: refreshes keep range IDs stable.
		r.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(o.SourceID+"|"+o.UID+"|"+startDay.Format(time.DateOnly))).String()
		r.Source = o.SourceID
		out = append(out, r)
	}
	return out
}
