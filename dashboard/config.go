package dashboard

import (
	"fmt"

	"github.com/kbukum/zofia/config"
	"github.com/kbukum/zofia/protocol"
	"github.com/kbukum/zofia/validation"
	"github.com/kbukum/zofia/version"
)

// StorageConfig locates the local board store.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ObservabilityConfig configures OTLP export.
type ObservabilityConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// StatusConfig configures the HTTP status surface.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// Config is the full dashboard configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        protocol.Config     `yaml:"server" mapstructure:"server"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Status        StatusConfig        `yaml:"status" mapstructure:"status"`
}

// ApplyDefaults applies default values to the full configuration.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "zofia"
	}
	if c.Version == "" {
		c.Version = version.Short()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Storage.Path == "" {
		c.Storage.Path = "./data"
	}
	if c.Observability.Endpoint == "" {
		c.Observability.Endpoint = "localhost:4318"
		c.Observability.Insecure = true
	}
	if c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = 1.0
	}
	if c.Status.Addr == "" {
		c.Status.Addr = ":8080"
	}
}

// Validate validates the full configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}

	v := validation.New()
	v.Required("storage.path", c.Storage.Path)
	if c.Status.Enabled {
		v.Required("status.addr", c.Status.Addr)
	}
	if c.Observability.Enabled {
		v.Required("observability.endpoint", c.Observability.Endpoint)
		v.Custom(c.Observability.SampleRate >= 0 && c.Observability.SampleRate <= 1,
			"observability.sample_rate", "must be between 0 and 1")
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Load reads configuration from config.yml, .env and the environment.
func Load(opts ...config.LoaderOption) (*Config, error) {
	var cfg Config
	if err := config.LoadConfig("zofia", &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
