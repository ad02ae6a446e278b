package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config is the process configuration, read once at startup from the
// environment (and an optional .env file).
type Config struct {
	Port    string
	GinMode string
	AppURL  string
	// TrustedProxies lists the proxies whose X-Forwarded-For is believed.
	// Empty means the socket address is the client IP.
	TrustedProxies []string

	DBDriver    string
	SQLitePath  string
	DatabaseURL string

	BcryptCost int

	DefaultPageSize int
	MaxPageSize     int

	NotifyQueueSize int
	NotifySink      string
	SMTP            SMTPConfig

	RateLimitAPI       int
	RateLimitLogin     int
	RateLimitAuthUser  int
	RateLimitAuthGuest int

	SeedDemo      bool
	AdminEmail    string
	AdminPassword string

	LogLevel slog.Level
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "event", "config_dotenv_missing", "module", "common")
	}

	return Config{
		Port:    envString("PORT", "8080"),
		GinMode: os.Getenv("GIN_MODE"),
		AppURL:  strings.TrimRight(os.Getenv("APP_URL"), "/"),

		TrustedProxies: envList("TRUSTED_PROXIES"),

		DBDriver:    strings.ToLower(envString("DB_DRIVER", "sqlite")),
		SQLitePath:  envString("sqlite_db", "blogapi.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		BcryptCost: envInt("BCRYPT_COST", bcrypt.DefaultCost),

		DefaultPageSize: envInt("PAGINATION_DEFAULT_LIMIT", 10),
		MaxPageSize:     envInt("PAGINATION_MAX_LIMIT", 100),

		NotifyQueueSize: envInt("NOTIFY_QUEUE_SIZE", 100),
		NotifySink:      strings.ToLower(envString("NOTIFY_SINK", "log")),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},

		RateLimitAPI:       envInt("RATE_LIMIT_API", 60),
		RateLimitLogin:     envInt("RATE_LIMIT_LOGIN", 5),
		RateLimitAuthUser:  envInt("RATE_LIMIT_AUTH_USER", 100),
		RateLimitAuthGuest: envInt("RATE_LIMIT_AUTH_GUEST", 10),

		SeedDemo:      envBool("SEED_DEMO", false),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

func envString(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("ignoring invalid integer setting", "event", "config_invalid_int", "module", "common", "key", name, "value", raw)
		return fallback
	}
	return v
}

func envList(name string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envLevel(name string, fallback slog.Level) slog.Level {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return fallback
	}
	return level
}
