package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/medrec/internal/errs"
	"github.com/and161185/medrec/internal/model"
)

func noEnv(string) (string, bool) { return "", false }

func mapEnv(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	var c Config
	c.LoadDefaults()

	assert.Equal(t, StoreFile, c.Store)
	assert.Equal(t, filepath.Join("/tmp/xdg", "medrec"), c.DataDir)
	assert.Equal(t, 24*time.Hour, c.SessionTTL)
	assert.Equal(t, time.Hour, c.ResetTokenTTL)
	assert.Equal(t, 6, c.MinPasswordLen)
	assert.Equal(t, []model.Role{model.RoleAdmin}, c.AutoActivateRoles)
	assert.Equal(t, model.StatusPending, c.InitialStatus)
	assert.Equal(t, 5, c.LoginMaxFails)
	assert.Equal(t, 15*time.Minute, c.LoginWindow)
	assert.Equal(t, "info", c.LogLevel)
	require.NoError(t, c.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"MEDREC_STORE=memory\nMEDREC_LOG_LEVEL=debug\nMEDREC_MIN_PASSWORD_LEN=8\n"), 0o600))

	env := mapEnv(map[string]string{
		"MEDREC_LOG_LEVEL":     "warn",
		"MEDREC_AUTO_ACTIVATE": "admin, doctor",
		"MEDREC_SESSION_TTL":   "2h",
		"MEDREC_LOG_DEV":       "true",
	})

	cfg, rest, err := load([]string{"-min-password", "10", "login", "-email", "a@x.com"}, envFile, env)
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store, ".env applies when the environment is silent")
	assert.Equal(t, "warn", cfg.LogLevel, "environment beats .env")
	assert.Equal(t, 10, cfg.MinPasswordLen, "flags beat everything")
	assert.Equal(t, []model.Role{model.RoleAdmin, model.RoleDoctor}, cfg.AutoActivateRoles)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.LogDev)
	assert.Equal(t, []string{"login", "-email", "a@x.com"}, rest)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	cfg, rest, err := load([]string{"-store", "memory"}, filepath.Join(t.TempDir(), "absent.env"), noEnv)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Empty(t, rest)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "bad duration env", env: map[string]string{"MEDREC_SESSION_TTL": "soon"}},
		{name: "bad int env", env: map[string]string{"MEDREC_LOGIN_MAX_FAILS": "many"}},
		{name: "bad bool env", env: map[string]string{"MEDREC_LOG_DEV": "maybe"}},
		{name: "unknown role", args: []string{"-auto-activate", "admin,nurse"}},
		{name: "active initial status", args: []string{"-initial-status", "active"}},
		{name: "unknown store", args: []string{"-store", "s3"}},
		{name: "postgres without dsn", args: []string{"-store", "postgres"}},
		{name: "empty session key", args: []string{"-session-key", ""}},
		{name: "zero min password", args: []string{"-min-password", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := load(tt.args, "", mapEnv(tt.env))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrValidation), "got %v", err)
		})
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, _, err := load([]string{"-nope"}, "", noEnv)
	require.Error(t, err)
	assert.False(t, errors.Is(err, flag.ErrHelp))
}

func TestLoad_UnverifiedAndNoAutoRoles(t *testing.T) {
	cfg, _, err := load([]string{"-store", "memory", "-auto-activate", "", "-initial-status", "Unverified"}, "", noEnv)
	require.NoError(t, err)
	assert.Empty(t, cfg.AutoActivateRoles)
	assert.Equal(t, model.StatusUnverified, cfg.InitialStatus)
}

func TestRoles_RoundTrip(t *testing.T) {
	roles, err := ParseRoles(" lab ,,ADMIN")
	require.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleLab, model.RoleAdmin}, roles)
	assert.Equal(t, "lab,admin", FormatRoles(roles))
}
