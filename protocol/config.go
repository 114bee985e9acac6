package protocol

import (
	"fmt"
	"net/url"
	"time"
)

// Config describes the remote execution server connection.
type Config struct {
	Host               string        `yaml:"host" mapstructure:"host"`
	Port               int           `yaml:"port" mapstructure:"port"`
	Username           string        `yaml:"username" mapstructure:"username"`
	Password           string        `yaml:"password" mapstructure:"password"`
	Subprotocol        string        `yaml:"subprotocol" mapstructure:"subprotocol"`
	UseTLS             bool          `yaml:"use_tls" mapstructure:"use_tls"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout"`
}

// ApplyDefaults applies default values to connection configuration.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8765
	}
	if c.Subprotocol == "" {
		c.Subprotocol = "alger"
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}

// Validate validates connection configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535] (got: %d)", c.Port)
	}
	if c.Subprotocol == "" {
		return fmt.Errorf("server.subprotocol is required")
	}
	return nil
}

// URL builds the dial URL, carrying credentials in the query string the
// way the server authenticates connections.
func (c *Config) URL() string {
	scheme := "ws"
	if c.UseTLS {
		scheme = "wss"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/",
	}
	q := u.Query()
	if c.Username != "" {
		q.Set("username", c.Username)
	}
	if c.Password != "" {
		q.Set("password", c.Password)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Endpoint returns the URL with credentials stripped, safe for logs.
func (c *Config) Endpoint() string {
	scheme := "ws"
	if c.UseTLS {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/", scheme, c.Host, c.Port)
}
