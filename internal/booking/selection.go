package booking

import (
	"errors"
	"time"

	"rentdesk/internal/model"
)

var (
	// ErrConflictPending is returned by Picker.Tap while a conflict has not
	// been acknowledged yet.
	ErrConflictPending = errors.New("booking: acknowledge the conflict before picking new dates")
	// ErrIncompleteSelection is returned by Picker.Confirm without both dates.
	ErrIncompleteSelection = errors.New("booking: select both start and end dates")
)

// SelectionState is the phase of a two-slot date selection.
type SelectionState int

const (
	SelectionEmpty SelectionState = iota
	SelectionStartOnly
	SelectionStartEnd
)

func (s SelectionState) String() string {
	switch s {
	case SelectionEmpty:
		return "empty"
	case SelectionStartOnly:
		return "start-only"
	case SelectionStartEnd:
		return "start-end"
	default:
		return "unknown"
	}
}

// Selection is the pending (start, end) pair built by tapping day cells.
//
//	Empty     --tap-->              StartOnly
//	StartOnly --tap(d > start)-->   StartEnd
//	StartOnly --tap(d <= start)-->  StartOnly (d becomes start)
//	StartEnd  --tap-->              StartOnly (d becomes start)
type Selection struct {
	start time.Time
	end   time.Time
	state SelectionState
}

// Tap feeds one day into the selection and returns the new state.
func (s *Selection) Tap(day time.Time) SelectionState {
	if s.state == SelectionStartOnly && day.After(s.start) {
		s.end = day
		s.state = SelectionStartEnd
		return s.state
	}
	s.start = day
	s.end = time.Time{}
	s.state = SelectionStartOnly
	return s.state
}

// Reset clears both slots.
func (s *Selection) Reset() {
	*s = Selection{}
}

func (s *Selection) State() SelectionState { return s.state }

// Bounds returns the selected dates; ok is false until both are set.
func (s *Selection) Bounds() (start, end time.Time, ok bool) {
	if s.state != SelectionStartEnd {
		return s.start, s.end, false
	}
	return s.start, s.end, true
}

// IsSelected reports whether day is highlighted by the current selection.
func (s *Selection) IsSelected(day time.Time) bool {
	switch s.state {
	case SelectionStartOnly:
		return day.Equal(s.start)
	case SelectionStartEnd:
		return !day.Before(s.start) && !day.After(s.end)
	default:
		return false
	}
}

// Picker drives a Selection against the existing bookings of one object.
// Completing a selection that overlaps a booking puts the picker into a
// blocked state that only Acknowledge clears.
type Picker struct {
	sel      Selection
	existing []model.BookingRange
	loc      *time.Location
	blocked  bool
}

// NewPicker returns a picker over existing ranges with days in loc.
func NewPicker(existing []model.BookingRange, loc *time.Location) *Picker {
	return &Picker{
		existing: append([]model.BookingRange(nil), existing...),
		loc:      loc,
	}
}

// Tap selects day. It returns ErrConflict when the tap completes a selection
// that overlaps an existing booking, and ErrConflictPending while that
// conflict is unacknowledged.
func (p *Picker) Tap(day time.Time) (SelectionState, error) {
	if p.blocked {
		return p.sel.State(), ErrConflictPending
	}
	state := p.sel.Tap(StartOfDay(day, p.loc))
	if state != SelectionStartEnd {
		return state, nil
	}
	start, end, _ := p.sel.Bounds()
	candidate := model.BookingRange{StartDate: start, EndDate: end}
	if HasConflict(candidate, p.existing) {
		p.blocked = true
		return state, ErrConflict
	}
	return state, nil
}

// Blocked reports whether a conflict is waiting for acknowledgment.
func (p *Picker) Blocked() bool { return p.blocked }

// Acknowledge dismisses a pending conflict and clears the selection.
func (p *Picker) Acknowledge() {
	p.blocked = false
	p.sel.Reset()
}

// Selection exposes the underlying selection for rendering.
func (p *Picker) Selection() *Selection { return &p.sel }

// Confirm turns a complete, conflict-free selection into a new range and
// resets the picker.
func (p *Picker) Confirm(typ model.BookingType) (model.BookingRange, error) {
	if p.blocked {
		return model.BookingRange{}, ErrConflictPending
	}
	start, end, ok := p.sel.Bounds()
	if !ok {
		return model.BookingRange{}, ErrIncompleteSelection
	}
	r, err := NewRange(start, end, typ, p.loc)
	if err != nil {
		return model.BookingRange{}, err
	}
	p.existing = append(p.existing, r)
	p.sel.Reset()
	return r, nil
}
