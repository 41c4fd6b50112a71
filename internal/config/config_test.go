package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FB_APP_ID", "app-1")
	t.Setenv("FB_APP_SECRET", "s3cret")
	t.Setenv("FB_REDIRECT_URI", "https://connector.example.com/auth/callback")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/gc?sslmode=disable")
}

func TestLoad_FromEnvWithDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "app-1", cfg.AppID)
	require.Equal(t, "s3cret", cfg.AppSecret)
	require.Equal(t, "https://connector.example.com/auth/callback", cfg.RedirectURI)
	require.Equal(t, DefaultAddr, cfg.Addr)
	require.Equal(t, DefaultGraphBaseURL, cfg.GraphBaseURL)
	require.Equal(t, DefaultAPIVersion, cfg.APIVersion)
	require.Equal(t, DefaultStateTTL, cfg.StateTTL)
	require.Equal(t, DefaultTestMessage, cfg.TestMessage)
	require.False(t, cfg.Dev)
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, missing := range []string{"FB_APP_ID", "FB_APP_SECRET", "FB_REDIRECT_URI", "DATABASE_URL"} {
		t.Run(missing, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(missing, "")
			_, err := Load(nil)
			require.Error(t, err)
		})
	}
}

func TestLoad_RejectsMalformedRedirect(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FB_REDIRECT_URI", "not a url")
	_, err := Load(nil)
	require.Error(t, err)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OAUTH_STATE_TTL", "2m")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--app-id=from-flag", "--addr=:9999", "--dev"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	require.Equal(t, "from-flag", cfg.AppID)
	require.Equal(t, ":9999", cfg.Addr)
	require.True(t, cfg.Dev)
	require.Equal(t, "s3cret", cfg.AppSecret, "unset flag must not shadow env")
	require.Equal(t, 2*time.Minute, cfg.StateTTL)
}

func TestLoadDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadDSN(nil); err == nil {
		t.Fatalf("want error without dsn")
	}

	t.Setenv("DATABASE_URL", "postgres://env")
	dsn, err := LoadDSN(nil)
	if err != nil || dsn != "postgres://env" {
		t.Fatalf("dsn=%q err=%v", dsn, err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--dsn", "postgres://flag"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	dsn, err = LoadDSN(fs)
	if err != nil || dsn != "postgres://flag" {
		t.Fatalf("dsn=%q err=%v", dsn, err)
	}
}
