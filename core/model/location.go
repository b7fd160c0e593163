package model

import "fmt"

// SubjectKind identifies the owner of a location.
type SubjectKind string

const (
	KindClient SubjectKind = "client"
	KindWorker SubjectKind = "worker"
)

// SubjectRef uniquely identifies a client or worker across stores.
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

func (r SubjectRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Coordinates is a geographic point. Valid is false until the subject's
// address has been geocoded; computations must never substitute a default.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Valid     bool    `json:"valid"`
}

// NewCoordinates returns a valid coordinate pair.
func NewCoordinates(lat, lon float64) Coordinates {
	return Coordinates{Latitude: lat, Longitude: lon, Valid: true}
}

// Location is the last known geocoded position of a client or worker.
// MaxTravelMiles only applies to workers and bounds candidate matching.
type Location struct {
	Subject        SubjectRef  `json:"subject"`
	Label          string      `json:"label,omitempty"`   // display name of the subject
	Address        string      `json:"address,omitempty"` // geocoded street address
	Coords         Coordinates `json:"coords"`
	MaxTravelMiles float64     `json:"max_travel_miles,omitempty"`
	Active         bool        `json:"active"`
}

// Validate checks that the location references a known subject kind.
func (l Location) Validate() error {
	if l.Subject.Kind != KindClient && l.Subject.Kind != KindWorker {
		return fmt.Errorf("unknown subject kind %q", l.Subject.Kind)
	}
	if l.Subject.ID == "" {
		return fmt.Errorf("subject id is required")
	}
	return nil
}
