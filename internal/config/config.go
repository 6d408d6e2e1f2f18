/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envFile = ".env"

type Config struct {
	AppEnv   string         `mapstructure:"app_env"`
	LogLevel string         `mapstructure:"log_level"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Jira     JiraConfig     `mapstructure:"jira"`
}

type PostgresConfig struct {
	Server         string        `mapstructure:"server"`
	Database       string        `mapstructure:"database"`
	Table          string        `mapstructure:"table"`
	Trusted        bool          `mapstructure:"trusted"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	SSLMode        string        `mapstructure:"sslmode"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type JiraConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	PAT         string        `mapstructure:"pat"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	APIVersion  string        `mapstructure:"api_version"`
	PageSize    int           `mapstructure:"page_size"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// envKeys maps config keys to the DB_* and JIRA_* variables used in .env files.
var envKeys = map[string]string{
	"app_env":                  "APP_ENV",
	"log_level":                "LOG_LEVEL",
	"postgres.server":          "DB_SERVER",
	"postgres.database":        "DB_NAME",
	"postgres.table":           "DB_TABLE",
	"postgres.trusted":         "DB_TRUSTED",
	"postgres.user":            "DB_USER",
	"postgres.password":        "DB_PASSWORD",
	"postgres.sslmode":         "DB_SSLMODE",
	"postgres.connect_timeout": "DB_CONNECT_TIMEOUT",
	"jira.base_url":            "JIRA_BASE_URL",
	"jira.pat":                 "JIRA_PAT",
	"jira.username":            "JIRA_USERNAME",
	"jira.password":            "JIRA_PASSWORD",
	"jira.api_version":         "JIRA_API_VERSION",
	"jira.page_size":           "JIRA_PAGE_SIZE",
	"jira.http_timeout":        "HTTP_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("postgres.server", "localhost:5432")
	v.SetDefault("postgres.database", "")
	v.SetDefault("postgres.table", "defects")
	v.SetDefault("postgres.trusted", false)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.connect_timeout", 10*time.Second)

	v.SetDefault("jira.base_url", "")
	v.SetDefault("jira.pat", "")
	v.SetDefault("jira.username", "")
	v.SetDefault("jira.password", "")
	v.SetDefault("jira.api_version", "2")
	v.SetDefault("jira.page_size", 50)
	v.SetDefault("jira.http_timeout", 15*time.Second)
}

// Load reads .env (never overriding the real environment), then the
// environment, then any flags in flagKeys (config key -> flag name) that
// were set on the command line.
func Load(flags *pflag.FlagSet, flagKeys map[string]string) (*Config, error) {
	_ = godotenv.Load(envFile)

	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}
	for key, name := range flagKeys {
		if flags == nil {
			break
		}
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return &cfg, nil
}

// ValidatePostgres checks the settings the loader needs.
func (c Config) ValidatePostgres() error {
	p := c.Postgres
	if p.Server == "" || p.Database == "" {
		return errors.New("postgres server and database are required")
	}
	if !p.Trusted && (p.User == "" || p.Password == "") {
		return errors.New("postgres uid/pwd are required unless trusted auth is used")
	}
	return nil
}

// ValidateJira checks the settings the export fetcher needs.
func (c Config) ValidateJira() error {
	if c.Jira.BaseURL == "" {
		return errors.New("jira base url is required")
	}
	if c.Jira.APIVersion != "2" && c.Jira.APIVersion != "3" {
		return fmt.Errorf("jira api version must be 2 or 3, got %q", c.Jira.APIVersion)
	}
	if c.Jira.PageSize <= 0 {
		return errors.New("jira page size must be positive")
	}
	return nil
}
