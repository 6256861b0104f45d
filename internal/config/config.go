package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingAPIBase = errors.New("GAME_API_BASE is required")

type Config struct {
	APIBase     string
	PushURL     string
	PushEnabled bool

	ClickCooldown     time.Duration
	RateLimitFallback time.Duration
	CacheMaxAge       time.Duration

	Locale    string
	LogLevel  string
	LogFormat string

	ConsoleAddr string

	Username string
	Password string
	Device   string

	AdminPassword string
	ArchiveDSN    string
}

// Load reads the optional env files (".env" when none are given) and then the
// process environment. Values already present in the environment win over the
// files, which is godotenv's default.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	base := strings.TrimRight(getenv("GAME_API_BASE", "http://127.0.0.1:5000"), "/")
	if base == "" {
		return Config{}, ErrMissingAPIBase
	}

	cfg := Config{
		APIBase:     base,
		PushURL:     getenv("GAME_PUSH_URL", derivePushURL(base)),
		PushEnabled: parseBool("PUSH_ENABLED", true),

		ClickCooldown:     parseMillis("CLICK_COOLDOWN_MS", 500),
		RateLimitFallback: parseMillis("RATE_LIMIT_FALLBACK_MS", 1000),
		CacheMaxAge:       time.Duration(parseInt("CACHE_MAX_AGE_SEC", 0)) * time.Second,

		Locale:    getenv("LOCALE", "en"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		ConsoleAddr: getenv("CONSOLE_ADDR", "127.0.0.1:8090"),

		Username: strings.TrimSpace(os.Getenv("GAME_USERNAME")),
		Password: os.Getenv("GAME_PASSWORD"),
		Device:   getenv("GAME_DEVICE", defaultDevice()),

		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		ArchiveDSN:    strings.TrimSpace(os.Getenv("ARCHIVE_DSN")),
	}
	return cfg, nil
}

// derivePushURL maps http(s)://host to ws(s)://host/ws, the same origin the
// backend serves its real-time channel from.
func derivePushURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	default:
		return ""
	}
}

func defaultDevice() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "arena-client"
	}
	return "arena-client@" + host
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func parseInt(key string, fallback int) int {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseMillis(key string, fallback int) time.Duration {
	ms := parseInt(key, fallback)
	if ms < 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func parseBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	return value == "true" || value == "1" || value == "yes" || value == "on"
}
