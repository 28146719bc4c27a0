package config

import (
	"time"
)

// Config represents the application configuration
type Config struct {
	Panel   PanelConfig   `mapstructure:"panel" yaml:"panel"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Captcha CaptchaConfig `mapstructure:"captcha" yaml:"captcha"`
	Fetch   FetchConfig   `mapstructure:"fetch" yaml:"fetch"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// PanelConfig identifies the target control panel
type PanelConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	DefaultAccount string `mapstructure:"default_account" yaml:"default_account"`
}

// AuthConfig selects the session establishment strategy. Exactly one strategy
// is chosen at startup: a pre-captured cookie string wins over credentials.
type AuthConfig struct {
	Cookies  string `mapstructure:"cookies" yaml:"cookies"`
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"password"`
}

// CaptchaConfig configures the optional CAPTCHA handling for credential logins
type CaptchaConfig struct {
	SolverURL string        `mapstructure:"solver_url" yaml:"solver_url"`
	BypassURL string        `mapstructure:"bypass_url" yaml:"bypass_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// FetchConfig contains authenticated HTTP client settings
type FetchConfig struct {
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent" yaml:"user_agent"`
	ProxyURL   string        `mapstructure:"proxy_url" yaml:"proxy_url"`
}

// BrowserConfig contains browser automation settings
type BrowserConfig struct {
	Path            string        `mapstructure:"path" yaml:"path"`
	RemoteURL       string        `mapstructure:"remote_url" yaml:"remote_url"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	NoSandbox       bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	NavTimeout      time.Duration `mapstructure:"nav_timeout" yaml:"nav_timeout"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout" yaml:"response_timeout"`
	SettleDelay     time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// ServerConfig contains HTTP facade settings
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// StoreConfig contains ownership store settings
type StoreConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	InMemory  bool   `mapstructure:"in_memory" yaml:"in_memory"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// HasCookieAuth reports whether a pre-captured cookie string is configured.
func (c *AuthConfig) HasCookieAuth() bool {
	return c.Cookies != ""
}

// HasCredentials reports whether an email/password pair is configured.
func (c *AuthConfig) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}

// Validate validates the configuration and applies defaults for invalid values
func (c *Config) Validate() error {
	if c.Panel.BaseURL == "" {
		c.Panel.BaseURL = DefaultBaseURL
	}
	if c.Fetch.Timeout < time.Second {
		c.Fetch.Timeout = DefaultFetchTimeout
	}
	if c.Fetch.MaxRetries < 0 {
		c.Fetch.MaxRetries = DefaultMaxRetries
	}
	if c.Captcha.Timeout < time.Second {
		c.Captcha.Timeout = DefaultCaptchaTimeout
	}
	if c.Browser.NavTimeout < time.Second {
		c.Browser.NavTimeout = DefaultNavTimeout
	}
	if c.Browser.ResponseTimeout < time.Second {
		c.Browser.ResponseTimeout = DefaultResponseTimeout
	}
	if c.Browser.SettleDelay <= 0 {
		c.Browser.SettleDelay = DefaultSettleDelay
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	return nil
}
