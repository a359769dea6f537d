package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ideamans/wunderlistauth/pkg/kvs"
	"github.com/ideamans/wunderlistauth/pkg/logging"
)

// Config represents the wunderlist-login configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Wunderlist WunderlistConfig `yaml:"wunderlist" json:"wunderlist"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host    string `yaml:"host" json:"host"`         // default "0.0.0.0"
	Port    int    `yaml:"port" json:"port"`         // default 4180
	BaseURL string `yaml:"base_url" json:"base_url"` // Optional: external URL used to derive the callback URL

	LoginRateLimit RateLimitConfig `yaml:"login_rate_limit" json:"login_rate_limit"`
}

// RateLimitConfig limits login starts per client IP. Requests 0 disables it.
type RateLimitConfig struct {
	Requests int    `yaml:"requests" json:"requests"`
	Interval string `yaml:"interval" json:"interval"` // default "1m"
}

// GetInterval returns the rate limit window
func (r RateLimitConfig) GetInterval() (time.Duration, error) {
	if r.Interval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(r.Interval)
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WunderlistConfig contains the OAuth2 client registration. Endpoint URLs
// are optional and override the public Wunderlist endpoints.
type WunderlistConfig struct {
	ClientID         string   `yaml:"client_id" json:"client_id"`
	ClientSecret     string   `yaml:"client_secret" json:"client_secret"`
	CallbackURL      string   `yaml:"callback_url" json:"callback_url"`
	AuthorizationURL string   `yaml:"authorization_url" json:"authorization_url"`
	TokenURL         string   `yaml:"token_url" json:"token_url"`
	UserProfileURL   string   `yaml:"user_profile_url" json:"user_profile_url"`
	Scopes           []string `yaml:"scopes" json:"scopes"`
}

// StoreConfig selects the backend for login state and accounts
type StoreConfig struct {
	kvs.Config `yaml:",inline"`

	StateTTL string `yaml:"state_ttl" json:"state_ttl"` // default "10m"
}

// GetStateTTL returns how long an authorization state stays valid
func (s StoreConfig) GetStateTTL() (time.Duration, error) {
	if s.StateTTL == "" {
		return 10 * time.Minute, nil
	}
	return time.ParseDuration(s.StateTTL)
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string              `yaml:"level" json:"level"`
	Color bool                `yaml:"color" json:"color"`
	File  *logging.FileConfig `yaml:"file,omitempty" json:"file,omitempty"`
}

// CallbackURL returns the configured callback URL, falling back to
// <base_url>/auth/wunderlist/callback.
func (c *Config) CallbackURL() string {
	if c.Wunderlist.CallbackURL != "" {
		return c.Wunderlist.CallbackURL
	}
	if c.Server.BaseURL != "" {
		return strings.TrimSuffix(c.Server.BaseURL, "/") + "/auth/wunderlist/callback"
	}
	return ""
}

// Validate checks if the configuration is valid. All problems are reported
// together in a ValidationError.
func (c *Config) Validate() error {
	verr := NewValidationError()

	if c.Wunderlist.ClientID == "" {
		verr.Add(ErrClientIDRequired)
	}
	if c.Wunderlist.ClientSecret == "" {
		verr.Add(ErrClientSecretRequired)
	}
	if c.CallbackURL() == "" {
		verr.Add(ErrCallbackURLRequired)
	}

	for field, value := range map[string]string{
		"server.base_url":              c.Server.BaseURL,
		"wunderlist.callback_url":      c.Wunderlist.CallbackURL,
		"wunderlist.authorization_url": c.Wunderlist.AuthorizationURL,
		"wunderlist.token_url":         c.Wunderlist.TokenURL,
		"wunderlist.user_profile_url":  c.Wunderlist.UserProfileURL,
	} {
		if value == "" {
			continue
		}
		if u, err := url.Parse(value); err != nil || u.Scheme == "" || u.Host == "" {
			verr.Add(fmt.Errorf("%w: %s=%q", ErrInvalidURL, field, value))
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		verr.Add(fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port))
	}

	switch c.Store.Type {
	case "", "memory", "leveldb":
	case "redis":
		if c.Store.Redis.Addr == "" {
			verr.Add(ErrRedisAddrRequired)
		}
	default:
		verr.Add(fmt.Errorf("%w: %s", ErrInvalidStoreType, c.Store.Type))
	}

	if c.Server.LoginRateLimit.Requests < 0 {
		verr.Add(fmt.Errorf("%w: requests must not be negative", ErrInvalidRateLimit))
	}
	if d, err := c.Server.LoginRateLimit.GetInterval(); err != nil || d <= 0 {
		verr.Add(fmt.Errorf("%w: invalid interval %q", ErrInvalidRateLimit, c.Server.LoginRateLimit.Interval))
	}

	if _, err := c.Store.GetStateTTL(); err != nil {
		verr.Add(fmt.Errorf("%w: %v", ErrInvalidStateTTL, err))
	}

	return verr.ErrorOrNil()
}
