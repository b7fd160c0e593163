package model

// Mode is a travel mode used by the travel-time estimator.
type Mode string

const (
	ModeDriving Mode = "driving"
	ModeTransit Mode = "transit"
	ModeWalking Mode = "walking"
)
