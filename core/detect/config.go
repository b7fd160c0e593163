package detect

import "fmt"

// Config defines detection parameters.
type Config struct {
	// GraceMinutes is how long past the scheduled start a checked-out visit
	// may run before it counts as a no-show.
	GraceMinutes int `json:"grace_minutes"`
	// LookaheadHours bounds the window scanned for unassigned visits.
	LookaheadHours int `json:"lookahead_hours"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.GraceMinutes == 0 {
		c.GraceMinutes = 15
	}
	if c.LookaheadHours == 0 {
		c.LookaheadHours = 4
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.GraceMinutes < 0 {
		return fmt.Errorf("grace_minutes must not be negative")
	}
	if c.LookaheadHours <= 0 {
		return fmt.Errorf("lookahead_hours must be positive")
	}
	return nil
}
