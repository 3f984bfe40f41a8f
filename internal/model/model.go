package model

import (
	"fmt"
	"time"
)

// BookingType tags a reservation as firm or provisional.
type BookingType string

const (
	BookingConfirmed BookingType = "confirmed"
	BookingTentative BookingType = "tentative"
)

// Valid reports whether t is one of the known booking types.
func (t BookingType) Valid() bool {
	return t == BookingConfirmed || t == BookingTentative
}

// ParseBookingType accepts the canonical names plus a couple of short
// aliases used on the command line.
func ParseBookingType(s string) (BookingType, error) {
	switch s {
	case "confirmed", "c", "booked":
		return BookingConfirmed, nil
	case "tentative", "t", "hold":
		return BookingTentative, nil
	default:
		return "", fmt.Errorf("unknown booking type %q", s)
	}
}

// Status is the derived availability of a rental object.
type Status string

const (
	StatusAvailable Status = "available"
	StatusRented    Status = "rented"
)

// BookingRange is one reservation interval. Both dates are start-of-day in
// the display timezone and the interval is inclusive on both ends.
type BookingRange struct {
	ID        string      `json:"id"`
	StartDate time.Time   `json:"startDate"`
	EndDate   time.Time   `json:"endDate"`
	Type      BookingType `json:"type"`

	// Source is empty for ranges entered by hand and holds the feed ID for
	// ranges imported from an ICS subscription.
	Source string `json:"source,omitempty"`
}

// Coordinate is a WGS84 map position.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RentalObject is an apartment pinned on the map.
type RentalObject struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Coordinate    Coordinate     `json:"coordinate"`
	Area          int            `json:"area"`
	Floor         int            `json:"floor"`
	Status        Status         `json:"status"`
	BookingRanges []BookingRange `json:"bookingRanges"`
	PhotoPaths    []string       `json:"photoPaths"`
}

// CameraState is the last map viewport: center plus span in degrees.
type CameraState struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitudeDelta"`
	LongitudeDelta float64 `json:"longitudeDelta"`
}

// Snippet is a named, tagged block of reusable text.
type Snippet struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}
