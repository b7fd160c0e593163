package model

import "time"

// Worker represents a caregiver from the roster store.
type Worker struct {
	ID             string
	Name           string
	Role           string
	Active         bool
	MaxTravelMiles float64
	WeeklyHours    float64   // committed hours for the current week
	LastShiftEnd   time.Time // zero if no prior shift is known
}

// Candidate pairs a worker with a coverage gap during matching. It is a
// derived value that never outlives the matching call that produced it.
type Candidate struct {
	Worker        Worker
	Miles         float64
	TravelMinutes int
	WeeklyHours   float64
	HoursSince    float64 // hours between the last shift end and the gap start
	Score         float64
}
