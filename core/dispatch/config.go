package dispatch

import (
	"fmt"

	"github.com/serenity-care/dispatch/core/model"
)

// Config defines dispatch-related settings.
type Config struct {
	// BatchSize is how many top-ranked candidates receive a wave.
	BatchSize int `json:"batch_size"`
	// Channels lists the delivery methods used for each wave.
	Channels []model.Channel `json:"channels"`
	// PollIntervalSeconds drives the periodic detection loop.
	PollIntervalSeconds int `json:"poll_interval_seconds"`
	// SendTimeoutSeconds bounds each individual channel send.
	SendTimeoutSeconds int `json:"send_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 5
	}
	if len(c.Channels) == 0 {
		c.Channels = []model.Channel{model.ChannelSMS, model.ChannelPush}
	}
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = 60
	}
	if c.SendTimeoutSeconds == 0 {
		c.SendTimeoutSeconds = 10
	}
}

// Validate checks the channel list.
func (c Config) Validate() error {
	for _, ch := range c.Channels {
		switch ch {
		case model.ChannelSMS, model.ChannelPush, model.ChannelEmail:
		default:
			return fmt.Errorf("unknown channel %q", ch)
		}
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative")
	}
	return nil
}
