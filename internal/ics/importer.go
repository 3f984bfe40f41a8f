package ics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentdesk/internal/booking"
	appLog "rentdesk/internal/log"
	"rentdesk/internal/model"
)

// BookingSink receives the ranges of one feed and swaps them in for the
// ranges a previous import of the same feed produced.
type BookingSink interface {
	ReplaceFeedBookings(objectID, source string, ranges []model.BookingRange) (added, skipped int, err error)
}

// ImportResult summarizes one feed import.
type ImportResult struct {
	Source    Source
	Added     int
	Skipped   int // ranges rejected because they overlap existing bookings
	FromCache bool
	Truncated []string
}

// Importer pulls ICS feeds into rental objects.
type Importer struct {
	fetcher     *Fetcher
	sink        BookingSink
	loc         *time.Location
	horizonDays int

	// now is swapped in tests.
	now func() time.Time
}

// NewImporter wires a fetcher to a booking sink. Recurring events are
// expanded from the start of last year up to horizonDays ahead.
func NewImporter(fetcher *Fetcher, sink BookingSink, loc *time.Location, horizonDays int) *Importer {
	if loc == nil {
		loc = time.Local
	}
	if horizonDays <= 0 {
		horizonDays = 365
	}
	return &Importer{fetcher: fetcher, sink: sink, loc: loc, horizonDays: horizonDays, now: time.Now}
}

func (im *Importer) window() (time.Time, time.Time) {
	now := im.now().In(im.loc)
	from := booking.DayStart(now.Year()-1, time.January, 1, im.loc)
	to := booking.DayStart(now.Year(), now.Month(), now.Day()+im.horizonDays, im.loc)
	return from, to
}

// Ranges parses and expands an ICS payload into booking ranges without
// touching the sink.
func (im *Importer) Ranges(src Source, body []byte) ([]model.BookingRange, ExpandResult, error) {
	events, err := ParseICS(src, body, im.loc)
	if err != nil {
		return nil, ExpandResult{}, fmt.Errorf("parse %s: %w", src.ID, err)
	}
	from, to := im.window()
	res, err := ExpandOccurrences(events, ExpandConfig{Location: im.loc, RangeStart: from, RangeEnd: to})
	if err != nil {
		return nil, res, err
	}
	return ToBookingRanges(res.Occurrences, im.loc), res, nil
}

// ImportBody imports an already-downloaded ICS payload.
func (im *Importer) ImportBody(src Source, body []byte) (ImportResult, error) {
	result := ImportResult{Source: src}
	if src.ObjectID == "" {
		return result, fmt.Errorf("feed %q has no object_id", src.ID)
	}

	ranges, expanded, err := im.Ranges(src, body)
	if err != nil {
		return result, err
	}
	result.Truncated = expanded.TruncatedEvents

	result.Added, result.Skipped, err = im.sink.ReplaceFeedBookings(src.ObjectID, src.ID, ranges)
	if err != nil {
		return result, fmt.Errorf("store %s: %w", src.ID, err)
	}
	if result.Skipped > 0 {
		appLog.Warn("ics import: ranges overlap existing bookings", "id", src.ID, "skipped", result.Skipped)
	}
	appLog.Info("ics import done", "id", src.ID, "object", src.ObjectID, "added", result.Added, "skipped", result.Skipped)
	return result, nil
}

// ImportOne fetches and imports a single feed.
func (im *Importer) ImportOne(ctx context.Context, src Source) (ImportResult, error) {
	fr, err := im.fetcher.FetchOne(ctx, src)
	if err != nil {
		return ImportResult{Source: src}, fmt.Errorf("fetch %s: %w", src.ID, err)
	}
	res, err := im.ImportBody(src, fr.Body)
	res.FromCache = fr.FromCache
	return res, err
}

// ImportAll imports every feed; one failing feed does not stop the others.
func (im *Importer) ImportAll(ctx context.Context, srcs []Source) ([]ImportResult, error) {
	results := make([]ImportResult, 0, len(srcs))
	var errs []error
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := im.ImportOne(ctx, src)
		if err != nil {
			appLog.Error("ics import failed", err, "id", src.ID)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
