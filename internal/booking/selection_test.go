package booking

import (
	"errors"
	"testing"
	"time"

	"rentdesk/internal/model"
)

func TestSelectionTransitions(t *testing.T) {
	var s Selection
	if s.State() != SelectionEmpty {
		t.Fatalf("initial state = %s", s.State())
	}

	if got := s.Tap(day(2025, time.April, 10)); got != SelectionStartOnly {
		t.Fatalf("first tap -> %s", got)
	}
	// Earlier date restarts from that date.
	if got := s.Tap(day(2025, time.April, 8)); got != SelectionStartOnly {
		t.Fatalf("earlier tap -> %s", got)
	}
	// Same date also restarts.
	if got := s.Tap(day(2025, time.April, 8)); got != SelectionStartOnly {
		t.Fatalf("same-day tap -> %s", got)
	}
	if got := s.Tap(day(2025, time.April, 12)); got != SelectionStartEnd {
		t.Fatalf("later tap -> %s", got)
	}
	start, end, ok := s.Bounds()
	if !ok || !start.Equal(day(2025, time.April, 8)) || !end.Equal(day(2025, time.April, 12)) {
		t.Fatalf("bounds = %v %v %v", start, end, ok)
	}
	if !s.IsSelected(day(2025, time.April, 10)) || s.IsSelected(day(2025, time.April, 13)) {
		t.Fatal("IsSelected mismatch inside StartEnd")
	}

	// Tap in StartEnd starts over.
	if got := s.Tap(day(2025, time.April, 20)); got != SelectionStartOnly {
		t.Fatalf("tap after complete -> %s", got)
	}
	if _, _, ok := s.Bounds(); ok {
		t.Fatal("bounds should be incomplete after restart")
	}
}

func TestPickerConflictNeedsAcknowledge(t *testing.T) {
	existing := []model.BookingRange{
		rng(day(2025, time.April, 10), day(2025, time.April, 12), model.BookingConfirmed),
	}
	p := NewPicker(existing, time.UTC)

	if _, err := p.Tap(day(2025, time.April, 8)); err != nil {
		t.Fatalf("first tap: %v", err)
	}
	if _, err := p.Tap(day(2025, time.April, 10)); !errors.Is(err, ErrConflict) {
		t.Fatalf("overlapping selection: got %v", err)
	}
	if !p.Blocked() {
		t.Fatal("picker should block after a conflict")
	}
	if _, err := p.Tap(day(2025, time.April, 20)); !errors.Is(err, ErrConflictPending) {
		t.Fatalf("tap while blocked: got %v", err)
	}
	if _, err := p.Confirm(model.BookingConfirmed); !errors.Is(err, ErrConflictPending) {
		t.Fatalf("confirm while blocked: got %v", err)
	}

	p.Acknowledge()
	if p.Selection().State() != SelectionEmpty {
		t.Fatalf("after acknowledge state = %s", p.Selection().State())
	}

	if _, err := p.Tap(day(2025, time.April, 13)); err != nil {
		t.Fatalf("tap after acknowledge: %v", err)
	}
	if _, err := p.Tap(day(2025, time.April, 15)); err != nil {
		t.Fatalf("free selection: %v", err)
	}
	r, err := p.Confirm(model.BookingTentative)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if r.Type != model.BookingTentative || !r.StartDate.Equal(day(2025, time.April, 13)) {
		t.Fatalf("unexpected range %+v", r)
	}

	// The confirmed range now blocks further overlap.
	p.Tap(day(2025, time.April, 14))
	if _, err := p.Tap(day(2025, time.April, 16)); !errors.Is(err, ErrConflict) {
		t.Fatalf("overlap with freshly confirmed range: got %v", err)
	}
}

func TestPickerConfirmIncomplete(t *testing.T) {
	p := NewPicker(nil, time.UTC)
	p.Tap(day(2025, time.April, 1))
	if _, err := p.Confirm(model.BookingConfirmed); !errors.Is(err, ErrIncompleteSelection) {
		t.Fatalf("got %v", err)
	}
}
