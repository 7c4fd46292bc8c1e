package domain

import (
	"fmt"
	"time"
)

// LocationID identifies a scheduling location on the remote service.
type LocationID int

func (id LocationID) String() string { return fmt.Sprintf("%d", int(id)) }

// Slot is a single candidate appointment returned for a location.
type Slot struct {
	Location LocationID `json:"location_id"`
	Start    time.Time  `json:"start"`
}

// Window is the inclusive [Start, End] range slots are matched against.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the window, both bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Validate rejects windows that end before they start.
func (w Window) Validate() error {
	if w.Start.After(w.End) {
		return &ConfigurationError{
			Field:  "window",
			Reason: fmt.Sprintf("start %s is after end %s", w.Start.Format(time.DateTime), w.End.Format(time.DateTime)),
		}
	}
	return nil
}

// Observation is the outcome of one location in one poll cycle.
type Observation struct {
	Location  LocationID `json:"location_id"`
	Found     bool       `json:"found"`
	Slot      *time.Time `json:"slot,omitempty"`
	Err       string     `json:"error,omitempty"`
	CheckedAt time.Time  `json:"checked_at"`
}
