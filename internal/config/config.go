package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/barbershop/internal/logger"
)

// loadEnv читает .env только вне production (в контейнере/prod конфиг только из env).
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		f, err := os.Open(dir + "/.env")
		if err == nil {
			loadEnvFrom(f)
			f.Close()
			return
		}
		idx := strings.LastIndex(strings.TrimSuffix(dir, "/"), "/")
		if idx <= 0 {
			return
		}
		dir = dir[:idx]
	}
}

// loadEnvFrom выставляет переменные из .env, не перетирая уже заданные непустые.
func loadEnvFrom(r io.Reader) {
	vals, err := godotenv.Parse(r)
	if err != nil {
		logger.Errorf("config: .env: %v", err)
		return
	}
	for key, val := range vals {
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// Config — настройки сервиса чата.
// Приоритет: переменные окружения > YAML > значения по умолчанию.
type Config struct {
	ServerAddr   string        `validate:"required"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
	IdleTimeout  time.Duration `validate:"gt=0"`

	// Каталог журналов каналов и индексов переписок.
	ChatDir string `validate:"required"`

	LockTimeout  time.Duration `validate:"gt=0"`
	LockAttempts int           `validate:"min=1,max=20"`
	LockBackoff  time.Duration `validate:"gte=0"`

	RateLimitWindow time.Duration `validate:"gt=0"`
	RateLimitMax    int           `validate:"min=1"`

	// Интервал опроса fetch, который отдаётся клиенту.
	PollInterval time.Duration `validate:"gt=0"`

	CORSAllowedOrigins string
	LogLevel           string `validate:"oneof=debug trace info error"`

	// Пустой DATABASE_URL — без БД: bk_-каналы не индексируются, список переписок выключен.
	DatabaseURL      string
	DBMaxConnections int `validate:"min=1"`

	// Пустой REDIS_URL — ограничитель в памяти процесса.
	RedisURL string

	AuthServiceURL string `validate:"required,url"`

	// Секрет для /internal/* и /metrics от сервисов вне частной сети.
	InternalSecret string
}

type yamlConfig struct {
	ServerAddr         string `yaml:"server_addr"`
	ReadTimeout        int    `yaml:"read_timeout"`
	WriteTimeout       int    `yaml:"write_timeout"`
	IdleTimeout        int    `yaml:"idle_timeout"`
	ChatDir            string `yaml:"chat_dir"`
	LockTimeoutMS      int    `yaml:"lock_timeout_ms"`
	LockAttempts       int    `yaml:"lock_attempts"`
	LockBackoffMS      int    `yaml:"lock_backoff_ms"`
	RateLimitWindowSec int    `yaml:"rate_limit_window_sec"`
	RateLimitMax       int    `yaml:"rate_limit_max"`
	PollIntervalMS     int    `yaml:"poll_interval_ms"`
	CORSAllowedOrigins string `yaml:"cors_allowed_origins"`
	LogLevel           string `yaml:"log_level"`
	DBMaxConnections   int    `yaml:"db_max_connections"`
}

func defaults() yamlConfig {
	return yamlConfig{
		ServerAddr:         ":8080",
		ReadTimeout:        15,
		WriteTimeout:       15,
		IdleTimeout:        60,
		ChatDir:            "./data/chat",
		LockTimeoutMS:      2000,
		LockAttempts:       3,
		LockBackoffMS:      100,
		RateLimitWindowSec: 10,
		RateLimitMax:       5,
		PollIntervalMS:     3000,
		CORSAllowedOrigins: "*",
		LogLevel:           "info",
		DBMaxConnections:   10,
	}
}

// Load загружает конфигурацию: .env (вне production), YAML (CONFIG_PATH или config/chat.yaml), env.
func Load() (*Config, error) {
	loadEnv()
	yc := defaults()
	for _, path := range []string{os.Getenv("CONFIG_PATH"), "config/chat.yaml"} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &yc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		logger.Infof("config: загружен %s", path)
		break
	}
	cfg := fromYAML(yc)
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if os.Getenv("APP_ENV") == "production" && (cfg.CORSAllowedOrigins == "" || cfg.CORSAllowedOrigins == "*") {
		logger.Errorf("config: в production задайте CORS_ALLOWED_ORIGINS (явный список origins, не *)")
	}
	return cfg, nil
}

func fromYAML(yc yamlConfig) *Config {
	return &Config{
		ServerAddr:         envStr("SERVER_ADDR", yc.ServerAddr),
		ReadTimeout:        time.Duration(envInt("READ_TIMEOUT", yc.ReadTimeout)) * time.Second,
		WriteTimeout:       time.Duration(envInt("WRITE_TIMEOUT", yc.WriteTimeout)) * time.Second,
		IdleTimeout:        time.Duration(envInt("IDLE_TIMEOUT", yc.IdleTimeout)) * time.Second,
		ChatDir:            envStr("CHAT_DIR", yc.ChatDir),
		LockTimeout:        envDuration("LOCK_TIMEOUT_MS", yc.LockTimeoutMS, time.Millisecond),
		LockAttempts:       envInt("LOCK_ATTEMPTS", yc.LockAttempts),
		LockBackoff:        envDuration("LOCK_BACKOFF_MS", yc.LockBackoffMS, time.Millisecond),
		RateLimitWindow:    envDuration("RATE_LIMIT_WINDOW_SEC", yc.RateLimitWindowSec, time.Second),
		RateLimitMax:       envInt("RATE_LIMIT_MAX", yc.RateLimitMax),
		PollInterval:       envDuration("POLL_INTERVAL_MS", yc.PollIntervalMS, time.Millisecond),
		CORSAllowedOrigins: envStr("CORS_ALLOWED_ORIGINS", yc.CORSAllowedOrigins),
		LogLevel:           envStr("LOG_LEVEL", yc.LogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConnections:   envInt("DB_MAX_CONNECTIONS", yc.DBMaxConnections),
		RedisURL:           os.Getenv("REDIS_URL"),
		AuthServiceURL:     envStr("AUTH_SERVICE_URL", "http://localhost:8081"),
		InternalSecret:     os.Getenv("INTERNAL_VALIDATE_SECRET"),
	}
}

// CORSOrigins разбирает список origins через запятую.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback int, unit time.Duration) time.Duration {
	return time.Duration(envInt(key, fallback)) * unit
}
