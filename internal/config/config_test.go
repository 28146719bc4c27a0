package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AppliesDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultBaseURL, cfg.Panel.BaseURL)
	assert.Equal(t, DefaultFetchTimeout, cfg.Fetch.Timeout)
	assert.Equal(t, DefaultCaptchaTimeout, cfg.Captcha.Timeout)
	assert.Equal(t, DefaultNavTimeout, cfg.Browser.NavTimeout)
	assert.Equal(t, DefaultResponseTimeout, cfg.Browser.ResponseTimeout)
	assert.Equal(t, DefaultSettleDelay, cfg.Browser.SettleDelay)
	assert.Equal(t, DefaultServerHost, cfg.Server.Host)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestValidate_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Panel: PanelConfig{BaseURL: "https://panel.example.com"},
		Fetch: FetchConfig{Timeout: 5 * time.Second},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://panel.example.com", cfg.Panel.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 99999}}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestAuthConfig(t *testing.T) {
	tests := []struct {
		name        string
		auth        AuthConfig
		cookieAuth  bool
		credentials bool
	}{
		{name: "nothing", auth: AuthConfig{}},
		{name: "cookies", auth: AuthConfig{Cookies: "a=1"}, cookieAuth: true},
		{name: "credentials", auth: AuthConfig{Email: "a@b.c", Password: "pw"}, credentials: true},
		{name: "email only", auth: AuthConfig{Email: "a@b.c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.cookieAuth, tt.auth.HasCookieAuth())
			assert.Equal(t, tt.credentials, tt.auth.HasCredentials())
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultBaseURL, cfg.Panel.BaseURL)
	assert.True(t, cfg.Browser.Headless)
	assert.NotEmpty(t, cfg.Store.Directory)
}
