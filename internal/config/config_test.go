package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_PATH", "SERVER_ADDR", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "CHAT_DIR",
	"LOCK_TIMEOUT_MS", "LOCK_ATTEMPTS", "LOCK_BACKOFF_MS", "RATE_LIMIT_WINDOW_SEC", "RATE_LIMIT_MAX",
	"POLL_INTERVAL_MS", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNECTIONS",
	"REDIS_URL", "AUTH_SERVICE_URL", "INTERNAL_VALIDATE_SECRET",
}

func cleanEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "production")
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ServerAddr)
	require.Equal(t, "./data/chat", cfg.ChatDir)
	require.Equal(t, 2*time.Second, cfg.LockTimeout)
	require.Equal(t, 3, cfg.LockAttempts)
	require.Equal(t, 100*time.Millisecond, cfg.LockBackoff)
	require.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	require.Equal(t, 5, cfg.RateLimitMax)
	require.Empty(t, cfg.RedisURL)
	require.Empty(t, cfg.DatabaseURL)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"chat_dir: /var/lib/chat",
		"rate_limit_max: 7",
		"lock_timeout_ms: 500",
		"cors_allowed_origins: https://a.example, https://b.example",
	}, "\n")), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RATE_LIMIT_MAX", "9")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/var/lib/chat", cfg.ChatDir)
	require.Equal(t, 9, cfg.RateLimitMax)
	require.Equal(t, 500*time.Millisecond, cfg.LockTimeout)
	require.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
}

func TestLoad_ConfigFromWorkingDirectory(t *testing.T) {
	cleanEnv(t)
	require.NoError(t, os.MkdirAll("config", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("config", "chat.yaml"), []byte("server_addr: \":9090\"\n"), 0o644))
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ServerAddr)
}

func TestLoad_Invalid(t *testing.T) {
	cleanEnv(t)
	t.Setenv("RATE_LIMIT_MAX", "0")
	_, err := Load()
	require.Error(t, err)

	cleanEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")
	_, err = Load()
	require.Error(t, err)

	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit_max: [oops"), 0o644))
	t.Setenv("CONFIG_PATH", path)
	_, err = Load()
	require.Error(t, err)
}

func TestLoadEnvFrom_KeepsExistingValues(t *testing.T) {
	t.Setenv("CHAT_TEST_A", "")
	t.Setenv("CHAT_TEST_B", "set")
	os.Unsetenv("CHAT_TEST_A")
	loadEnvFrom(strings.NewReader("# comment\nCHAT_TEST_A=\"quoted\"\nCHAT_TEST_B=other\n"))
	require.Equal(t, "quoted", os.Getenv("CHAT_TEST_A"))
	require.Equal(t, "set", os.Getenv("CHAT_TEST_B"))
}
