package app

import (
	"os"
	"strconv"
	"strings"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	HTTPAddr            string
	DBDriver            string
	DBDSN               string
	DBMaxOpenConns      int
	DBMaxIdleConns      int
	DBConnMaxLifeMins   int
	AuthRateLimitPerMin int

	JWTSecret     string
	TokenTTLHours int
	BootstrapUser string
	BootstrapPass string
}

func LoadConfig() Config {
	return Config{
		AppEnv:              envOrDefault("APP_ENV", "development"),
		HTTPAddr:            envOrDefault("HTTP_ADDR", ":8080"),
		DBDriver:            envOrDefault("DB_DRIVER", "sqlite"),
		DBDSN:               os.Getenv("DB_DSN"),
		DBMaxOpenConns:      intOrDefault("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:      intOrDefault("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifeMins:   intOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		AuthRateLimitPerMin: intOrDefault("AUTH_RATE_LIMIT_PER_MINUTE", 60),
		JWTSecret:           envOrDefault("JWT_SECRET", "aptisurvey_dev_secret"),
		TokenTTLHours:       intOrDefault("TOKEN_TTL_HOURS", 8),
		BootstrapUser:       envOrDefault("BOOTSTRAP_ADMIN_USERNAME", "admin"),
		BootstrapPass:       os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func intOrDefault(key string, fallback int) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	if n <= 0 {
		return fallback
	}
	return n
}
