package config

// APIConfig defines the HTTP API listener.
type APIConfig struct {
	Address string `json:"address"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}
