package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the test and restores it afterwards.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_Defaults(t *testing.T) {
	for _, env := range envKeys {
		unsetenv(t, env)
	}
	t.Chdir(t.TempDir())

	cfg, err := Load(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:5432", cfg.Postgres.Server)
	assert.Equal(t, "defects", cfg.Postgres.Table)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, 10*time.Second, cfg.Postgres.ConnectTimeout)
	assert.False(t, cfg.Postgres.Trusted)
	assert.Equal(t, "2", cfg.Jira.APIVersion)
	assert.Equal(t, 50, cfg.Jira.PageSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_NAME", "qa")
	t.Setenv("DB_TRUSTED", "true")
	t.Setenv("DB_CONNECT_TIMEOUT", "3s")
	t.Setenv("JIRA_PAGE_SIZE", "25")
	t.Setenv("LOG_LEVEL", " DEBUG ")

	cfg, err := Load(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "qa", cfg.Postgres.Database)
	assert.True(t, cfg.Postgres.Trusted)
	assert.Equal(t, 3*time.Second, cfg.Postgres.ConnectTimeout)
	assert.Equal(t, 25, cfg.Jira.PageSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ChangedFlagsOverrideEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_NAME", "qa")
	t.Setenv("DB_USER", "env-user")

	flags := pflag.NewFlagSet("load", pflag.ContinueOnError)
	flags.String("database", "", "")
	flags.String("uid", "", "")
	require.NoError(t, flags.Parse([]string{"--database=prod"}))

	cfg, err := Load(flags, map[string]string{"postgres.database": "database", "postgres.user": "uid"})
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Postgres.Database)
	assert.Equal(t, "env-user", cfg.Postgres.User)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_NAME=fromfile\nDB_PASSWORD=secret\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("DB_NAME", "fromenv")
	unsetenv(t, "DB_PASSWORD")

	cfg, err := Load(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Postgres.Database)
	assert.Equal(t, "secret", cfg.Postgres.Password)
}

func TestValidatePostgres(t *testing.T) {
	c := Config{Postgres: PostgresConfig{Server: "db", Database: "qa", Trusted: true}}
	assert.NoError(t, c.ValidatePostgres())

	c.Postgres.Trusted = false
	assert.Error(t, c.ValidatePostgres())

	c.Postgres.User, c.Postgres.Password = "etl", "pw"
	assert.NoError(t, c.ValidatePostgres())

	c.Postgres.Database = ""
	assert.Error(t, c.ValidatePostgres())
}

func TestValidateJira(t *testing.T) {
	c := Config{Jira: JiraConfig{BaseURL: "https://jira.local", APIVersion: "3", PageSize: 50}}
	assert.NoError(t, c.ValidateJira())

	c.Jira.APIVersion = "4"
	assert.Error(t, c.ValidateJira())

	c.Jira.APIVersion, c.Jira.PageSize = "2", 0
	assert.Error(t, c.ValidateJira())

	c.Jira.PageSize, c.Jira.BaseURL = 50, ""
	assert.Error(t, c.ValidateJira())
}
