package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults.
// Uses the global viper instance to access CLI flag bindings.
func Load() (*Config, error) {
	v := viper.GetViper()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Environment variables (IFPANEL_*)
	v.SetEnvPrefix("IFPANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("panel.base_url", DefaultBaseURL)
	v.SetDefault("panel.default_account", "")

	v.SetDefault("auth.cookies", "")
	v.SetDefault("auth.email", "")
	v.SetDefault("auth.password", "")

	v.SetDefault("captcha.solver_url", "")
	v.SetDefault("captcha.bypass_url", "")
	v.SetDefault("captcha.timeout", DefaultCaptchaTimeout)

	v.SetDefault("fetch.timeout", DefaultFetchTimeout)
	v.SetDefault("fetch.max_retries", DefaultMaxRetries)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.proxy_url", "")

	v.SetDefault("browser.path", "")
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", isContainer())
	v.SetDefault("browser.nav_timeout", DefaultNavTimeout)
	v.SetDefault("browser.response_timeout", DefaultResponseTimeout)
	v.SetDefault("browser.settle_delay", DefaultSettleDelay)

	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)

	v.SetDefault("store.directory", StoreDir())
	v.SetDefault("store.in_memory", false)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

// isContainer returns true when running in CI or a container, where the
// browser sandbox is unavailable
func isContainer() bool {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return true
	}
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}
