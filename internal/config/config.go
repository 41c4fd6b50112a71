// Package config builds the process configuration from flags and environment.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is constructed once at startup and passed to every component that needs it.
type Config struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	AppID           string        `mapstructure:"app_id" validate:"required"`
	AppSecret       string        `mapstructure:"app_secret" validate:"required"`
	RedirectURI     string        `mapstructure:"redirect_uri" validate:"required,url"`
	GraphBaseURL    string        `mapstructure:"graph_base_url" validate:"required,url"`
	DialogBaseURL   string        `mapstructure:"dialog_base_url" validate:"required,url"`
	APIVersion      string        `mapstructure:"api_version" validate:"required"`
	StateTTL        time.Duration `mapstructure:"state_ttl" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	TestMessage     string        `mapstructure:"test_message" validate:"required"`
	Dev             bool          `mapstructure:"dev"`
}

// Defaults.
const (
	DefaultAddr            = ":8000"
	DefaultGraphBaseURL    = "https://graph.facebook.com"
	DefaultDialogBaseURL   = "https://www.facebook.com"
	DefaultAPIVersion      = "v23.0"
	DefaultStateTTL        = 10 * time.Minute
	DefaultShutdownTimeout = 5 * time.Second
	DefaultTestMessage     = "Test message from AI Hub Bot!"
)

// envKeys maps config keys to the environment variables that feed them.
var envKeys = map[string]string{
	"addr":             "LISTEN_ADDR",
	"dsn":              "DATABASE_URL",
	"app_id":           "FB_APP_ID",
	"app_secret":       "FB_APP_SECRET",
	"redirect_uri":     "FB_REDIRECT_URI",
	"graph_base_url":   "FB_GRAPH_BASE_URL",
	"dialog_base_url":  "FB_DIALOG_BASE_URL",
	"api_version":      "FB_API_VERSION",
	"state_ttl":        "OAUTH_STATE_TTL",
	"shutdown_timeout": "SHUTDOWN_TIMEOUT",
	"test_message":     "TEST_MESSAGE",
	"dev":              "DEV",
}

// RegisterFlags declares the command-line flags understood by Load.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", DefaultAddr, "listen address")
	fs.String("dsn", "", "PostgreSQL DSN (env DATABASE_URL)")
	fs.String("app-id", "", "platform application id (env FB_APP_ID)")
	fs.String("app-secret", "", "platform application secret (env FB_APP_SECRET)")
	fs.String("redirect-uri", "", "OAuth callback address (env FB_REDIRECT_URI)")
	fs.String("graph-base-url", DefaultGraphBaseURL, "Graph API base URL")
	fs.String("dialog-base-url", DefaultDialogBaseURL, "OAuth dialog base URL")
	fs.String("api-version", DefaultAPIVersion, "Graph API version")
	fs.Duration("state-ttl", DefaultStateTTL, "OAuth state lifetime")
	fs.Duration("shutdown-timeout", DefaultShutdownTimeout, "graceful shutdown timeout")
	fs.String("test-message", DefaultTestMessage, "text sent by the test-send endpoint")
	fs.Bool("dev", false, "development logging")
}

// Load resolves flags over environment over defaults and validates the result.
// fs may be nil, in which case only the environment and defaults apply.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("graph_base_url", DefaultGraphBaseURL)
	v.SetDefault("dialog_base_url", DefaultDialogBaseURL)
	v.SetDefault("api_version", DefaultAPIVersion)
	v.SetDefault("state_ttl", DefaultStateTTL)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("test_message", DefaultTestMessage)
	v.SetDefault("dev", false)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	if fs != nil {
		for key := range envKeys {
			if f := fs.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func flagName(key string) string {
	b := []byte(key)
	for i := range b {
		if b[i] == '_' {
			b[i] = '-'
		}
	}
	return string(b)
}

// LoadDSN resolves only the database DSN, for commands that do not serve traffic.
func LoadDSN(fs *pflag.FlagSet) (string, error) {
	v := viper.New()
	if err := v.BindEnv("dsn", envKeys["dsn"]); err != nil {
		return "", err
	}
	if fs != nil {
		if f := fs.Lookup("dsn"); f != nil {
			if err := v.BindPFlag("dsn", f); err != nil {
				return "", err
			}
		}
	}
	dsn := v.GetString("dsn")
	if dsn == "" {
		return "", fmt.Errorf("invalid config: dsn is required (--dsn or %s)", envKeys["dsn"])
	}
	return dsn, nil
}
