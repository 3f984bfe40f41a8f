package rental

import "rentdesk/internal/model"

// Filter narrows the object list the way the apartment list view does.
// Nil pointers mean "no bound".
type Filter struct {
	OnlyAvailable bool
	MinArea       *int
	MaxFloor      *int
}

// Filter returns the objects matching f.
func (s *Store) Filter(f Filter) []model.RentalObject {
	out := make([]model.RentalObject, 0)
	for _, o := range s.List() {
		if f.OnlyAvailable && o.Status != model.StatusAvailable {
			continue
		}
		if f.MinArea != nil && o.Area < *f.MinArea {
			continue
		}
		if f.MaxFloor != nil && o.Floor > *f.MaxFloor {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Stats counts bookings across all objects.
type Stats struct {
	Objects   int `json:"objects"`
	Rented    int `json:"rented"`
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Tentative int `json:"tentative"`
}

// Stats aggregates booking counts.
func (s *Store) Stats() Stats {
	var st Stats
	for _, o := range s.List() {
		st.Objects++
		if o.Status == model.StatusRented {
			st.Rented++
		}
		for _, r := range o.BookingRanges {
			st.Total++
			switch r.Type {
			case model.BookingConfirmed:
				st.Confirmed++
			case model.BookingTentative:
				st.Tentative++
			}
		}
	}
	return st
}
