package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSlackEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvSlackBotToken, "xoxb-test")
	t.Setenv(EnvSlackSigningSecret, "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setSlackEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, DispatchBudget, cfg.DispatchTimeout)
	assert.Equal(t, DedupMemory, cfg.DedupBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.SlackEnabled())
	assert.False(t, cfg.LineEnabled())
	assert.Empty(t, cfg.AdminUserIDs)
}

func TestLoad_Overrides(t *testing.T) {
	setSlackEnv(t)
	t.Setenv(EnvAdminUserIDs, "U1, U2,,U3 ")
	t.Setenv(EnvDispatchTimeout, "3s")
	t.Setenv(EnvDedupBackend, "BADGER")
	t.Setenv(EnvDataDir, "/tmp/chatbot")
	t.Setenv(EnvUserRateBurst, "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"U1", "U2", "U3"}, cfg.AdminUserIDs)
	assert.Equal(t, 3*time.Second, cfg.DispatchTimeout)
	assert.Equal(t, DedupBadger, cfg.DedupBackend)
	assert.Equal(t, 10, cfg.UserRateBurst, "unparsable values fall back to the default")
	assert.Equal(t, "/tmp/chatbot/chatbot.db", cfg.SQLitePath())
	assert.Equal(t, "/tmp/chatbot/dedup", cfg.BadgerPath())
}

func TestLoad_RequiresTransport(t *testing.T) {
	t.Setenv(EnvSlackBotToken, "")
	t.Setenv(EnvSlackSigningSecret, "")
	t.Setenv(EnvLineChannelAccessToken, "")
	t.Setenv(EnvLineChannelSecret, "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one transport")
}

func validConfig() *Config {
	return &Config{
		Port:              "8080",
		DataDir:           "/data",
		DedupBackend:      DedupMemory,
		DedupWindow:       2 * time.Hour,
		DispatchTimeout:   time.Second,
		MaxMessageLength:  100,
		UserRateBurst:     1,
		UserRatePerSec:    1,
		OutboundRPS:       1,
		LookupBaseURL:     "https://example.org",
		LookupTimeout:     time.Second,
		LineChannelToken:  "token",
		LineChannelSecret: "secret",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"half slack config", func(c *Config) { c.SlackBotToken = "xoxb" }, "must be set together"},
		{"unknown dedup backend", func(c *Config) { c.DedupBackend = "redis" }, EnvDedupBackend},
		{"dedup window shorter than bucket", func(c *Config) { c.DedupWindow = time.Minute }, "hour bucket"},
		{"zero dispatch timeout", func(c *Config) { c.DispatchTimeout = 0 }, EnvDispatchTimeout},
		{"relative lookup url", func(c *Config) { c.LookupBaseURL = "/wiki" }, EnvLookupBaseURL},
		{"sentry without host", func(c *Config) { c.SentryToken = "tok" }, EnvSentryHost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = ""
	cfg.DispatchTimeout = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, 2, len(strings.Split(err.Error(), "\n")))
}
