package config

import (
	"fmt"
	"time"
)

// CacheConfig defines travel-time cache behavior.
type CacheConfig struct {
	// TTLDays is how long a computed distance stays valid without an
	// explicit invalidation.
	TTLDays int `json:"ttl_days"`
	// SweepIntervalMinutes drives the background expiry sweeper. Zero
	// disables the sweeper; entries still expire lazily on lookup.
	SweepIntervalMinutes int `json:"sweep_interval_minutes"`
}

// SetDefaults applies sane defaults.
func (c *CacheConfig) SetDefaults() {
	if c.TTLDays == 0 {
		c.TTLDays = 30
	}
}

// Validate checks mandatory fields.
func (c CacheConfig) Validate() error {
	if c.TTLDays < 0 {
		return fmt.Errorf("ttl_days must not be negative")
	}
	if c.SweepIntervalMinutes < 0 {
		return fmt.Errorf("sweep_interval_minutes must not be negative")
	}
	return nil
}

// TTL returns the configured duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// SweepInterval returns the sweeper period, zero when disabled.
func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}
