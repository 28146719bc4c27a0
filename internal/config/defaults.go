package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// Panel defaults
	DefaultBaseURL = "https://dash.infinityfree.com"

	// Fetch defaults
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxRetries   = 3

	// Captcha defaults
	DefaultCaptchaTimeout = 120 * time.Second

	// Browser defaults
	DefaultNavTimeout      = 45 * time.Second
	DefaultResponseTimeout = 30 * time.Second
	DefaultSettleDelay     = 3 * time.Second

	// Server defaults
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 5000

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ifpanel"
	}
	return filepath.Join(home, ".ifpanel")
}

// StoreDir returns the ownership store directory path
func StoreDir() string {
	return filepath.Join(ConfigDir(), "store")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Panel: PanelConfig{
			BaseURL: DefaultBaseURL,
		},
		Fetch: FetchConfig{
			Timeout:    DefaultFetchTimeout,
			MaxRetries: DefaultMaxRetries,
		},
		Captcha: CaptchaConfig{
			Timeout: DefaultCaptchaTimeout,
		},
		Browser: BrowserConfig{
			Headless:        true,
			NavTimeout:      DefaultNavTimeout,
			ResponseTimeout: DefaultResponseTimeout,
			SettleDelay:     DefaultSettleDelay,
		},
		Server: ServerConfig{
			Host: DefaultServerHost,
			Port: DefaultServerPort,
		},
		Store: StoreConfig{
			Directory: StoreDir(),
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
