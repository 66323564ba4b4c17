package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	m, err := NewManager()
	require.NoError(t, err)
	return m
}

func TestManager_Defaults(t *testing.T) {
	m := newTestManager(t)
	cfg := m.GetConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "dental_cdss", cfg.Database.Database)
	assert.Equal(t, 5*time.Minute, cfg.Rules.SnapshotTTL)
	assert.Equal(t, "postgres", cfg.Feedback.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestManager_ValidateDefaults(t *testing.T) {
	m := newTestManager(t)
	assert.NoError(t, m.Validate())
}

func TestManager_ValidateRejectsBadPort(t *testing.T) {
	m := newTestManager(t)
	m.config.Server.Port = 0
	assert.ErrorContains(t, m.Validate(), "invalid server port")
}

func TestManager_ValidateRejectsBadFeedbackBackend(t *testing.T) {
	m := newTestManager(t)
	m.config.Feedback.Backend = "mysql"
	assert.ErrorContains(t, m.Validate(), "invalid feedback backend")
}

func TestManager_ValidateRequiresSecretInProduction(t *testing.T) {
	m := newTestManager(t)
	m.config.Environment = "production"
	m.config.Auth.JWTSecret = ""
	assert.ErrorContains(t, m.Validate(), "jwt_secret")

	m.config.Auth.JWTSecret = "test-secret"
	assert.NoError(t, m.Validate())
}

func TestManager_ValidateRejectsBadLogLevel(t *testing.T) {
	m := newTestManager(t)
	m.config.Logging.Level = "verbose"
	assert.ErrorContains(t, m.Validate(), "invalid log level")
}

func TestManager_EnvOverride(t *testing.T) {
	t.Setenv("DENTAL_CDSS_SERVER_PORT", "9090")
	m := newTestManager(t)
	assert.Equal(t, 9090, m.GetConfig().Server.Port)
}
