package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/serenity-care/dispatch/core/detect"
	"github.com/serenity-care/dispatch/core/dispatch"
	"github.com/serenity-care/dispatch/core/match"
	"github.com/serenity-care/dispatch/core/metrics"
	"github.com/serenity-care/dispatch/infra/notify"
)

type Config struct {
	OrgID    string             `json:"org_id"`
	MQTT     notify.MQTTConfig  `json:"mqtt"`
	SMS      WebhookSection     `json:"sms"`
	Email    WebhookSection     `json:"email"`
	Dispatch dispatch.Config    `json:"dispatch"`
	Detect   detect.Config      `json:"detect"`
	Match    match.Config       `json:"match"`
	Cache    CacheConfig        `json:"cache"`
	Metrics  metrics.Config     `json:"metrics"`
	Logging  LoggingConfig      `json:"logging"`
	API      APIConfig          `json:"api"`
}

// WebhookSection wraps a gateway channel with an enable switch.
type WebhookSection struct {
	Enabled   bool   `json:"enabled"`
	URL       string `json:"url"`
	AuthToken string `json:"auth_token"`
	TimeoutMS int    `json:"timeout_ms"`
}

// Webhook returns the channel transport settings.
func (s WebhookSection) Webhook() notify.WebhookConfig {
	return notify.WebhookConfig{URL: s.URL, AuthToken: s.AuthToken, TimeoutMS: s.TimeoutMS}
}

// Load reads the configuration file, applies SC_* environment overrides and
// validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("SC_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "sc_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Dispatch.SetDefaults()
	cfg.Detect.SetDefaults()
	cfg.Match.SetDefaults()
	cfg.Cache.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.API.SetDefaults()
	if cfg.OrgID == "" {
		return nil, fmt.Errorf("org_id is required")
	}
	if err := cfg.Dispatch.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Detect.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Match.Weights.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cache.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
