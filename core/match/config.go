package match

import "fmt"

// ScoreWeights are the tunable scoring constants. The defaults read as
// tuned heuristics rather than domain law, so they are configuration.
type ScoreWeights struct {
	Base             float64 `json:"base"`
	DistanceCapMiles float64 `json:"distance_cap_miles"`
	HoursBonusLow    float64 `json:"hours_bonus_low"`    // weekly hours < 30
	HoursBonusMid    float64 `json:"hours_bonus_mid"`    // weekly hours < 35
	HoursBonusHigh   float64 `json:"hours_bonus_high"`   // weekly hours < 40
	OvertimePenalty  float64 `json:"overtime_penalty"`   // pushes past OvertimeHours
	OvertimeHours    float64 `json:"overtime_hours"`     // weekly hour ceiling
	LocalityBonus    float64 `json:"locality_bonus"`     // recent shift nearby
	LocalityWindowHr float64 `json:"locality_window_hr"` // window for the bonus
}

// DefaultWeights returns the standard scoring constants.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Base:             50,
		DistanceCapMiles: 25,
		HoursBonusLow:    15,
		HoursBonusMid:    10,
		HoursBonusHigh:   5,
		OvertimePenalty:  20,
		OvertimeHours:    40,
		LocalityBonus:    10,
		LocalityWindowHr: 2,
	}
}

// Validate rejects weight sets the scorer cannot work with.
func (w ScoreWeights) Validate() error {
	if w.DistanceCapMiles <= 0 {
		return fmt.Errorf("distance_cap_miles must be positive")
	}
	if w.OvertimeHours <= 0 {
		return fmt.Errorf("overtime_hours must be positive")
	}
	return nil
}

// Config defines matching parameters.
type Config struct {
	Weights      ScoreWeights `json:"weights"`
	DefaultLimit int          `json:"default_limit"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	zero := ScoreWeights{}
	if c.Weights == zero {
		c.Weights = DefaultWeights()
	}
	if c.DefaultLimit == 0 {
		c.DefaultLimit = 10
	}
}
