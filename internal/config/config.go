// Package config reads the server configuration from the environment.
//
// main loads an optional .env file with godotenv first, so every key below
// can also live in a .env next to the binary during development:
//
//	PORT=8080
//	APP_ENV=development            # "production" refuses the dev JWT key
//	DB_DRIVER=sqlite               # sqlite | postgres
//	DB_PATH=data/buddy.db          # sqlite only; ":memory:" for a throwaway DB
//	DATABASE_URL=postgres://...    # postgres only
//	JWT_KEY=$(openssl rand -hex 32)
//	CORS_ALLOWED_ORIGINS=http://localhost:5173,https://buddy.example
//	LOG_LEVEL=info                 # debug | info | warn | error
//	TOKEN_RATE_PER_SECOND=1        # POST /auth/token budget per client IP
//	TOKEN_RATE_BURST=5
//	TRUST_PROXY=false              # true only behind a proxy that sets X-Forwarded-For
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// DevJWTKey is used when JWT_KEY is unset. Tokens signed with it are only
// as secret as this source file, so production refuses to start with it.
const DevJWTKey = "insecure-jwt-key-for-dev"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port        int
	Environment string

	DBDriver    string
	DBPath      string
	DatabaseURL string

	JWTKey string
	// UsingDevJWTKey is true when JWT_KEY was unset and DevJWTKey is in use.
	UsingDevJWTKey bool

	AllowedOrigins []string
	LogLevel       slog.Level

	TokenRatePerSecond float64
	TokenRateBurst     int

	// TrustProxy makes the client IP come from X-Forwarded-For / X-Real-IP.
	// Without a proxy overwriting them, clients could pick their own IP.
	TrustProxy bool
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Environment:    strings.ToLower(get("APP_ENV", "development")),
		DBDriver:       strings.ToLower(get("DB_DRIVER", DriverSQLite)),
		DBPath:         get("DB_PATH", "data/buddy.db"),
		DatabaseURL:    get("DATABASE_URL", ""),
		JWTKey:         get("JWT_KEY", ""),
		AllowedOrigins: parseOrigins(get("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(get("PORT", "8080")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid PORT %q", getenv("PORT"))
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}
	if cfg.TokenRatePerSecond, err = strconv.ParseFloat(get("TOKEN_RATE_PER_SECOND", "1"), 64); err != nil || cfg.TokenRatePerSecond <= 0 {
		return nil, fmt.Errorf("config: invalid TOKEN_RATE_PER_SECOND %q", getenv("TOKEN_RATE_PER_SECOND"))
	}
	if cfg.TokenRateBurst, err = strconv.Atoi(get("TOKEN_RATE_BURST", "5")); err != nil || cfg.TokenRateBurst <= 0 {
		return nil, fmt.Errorf("config: invalid TOKEN_RATE_BURST %q", getenv("TOKEN_RATE_BURST"))
	}

	if cfg.TrustProxy, err = strconv.ParseBool(get("TRUST_PROXY", "false")); err != nil {
		return nil, fmt.Errorf("config: invalid TRUST_PROXY %q", getenv("TRUST_PROXY"))
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DB_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("config: unknown DB_DRIVER %q (want sqlite or postgres)", cfg.DBDriver)
	}

	if cfg.JWTKey == "" {
		if cfg.IsProduction() {
			return nil, errors.New("config: JWT_KEY must be set when APP_ENV=production")
		}
		cfg.JWTKey = DevJWTKey
		cfg.UsingDevJWTKey = true
	}

	return cfg, nil
}

func parseOrigins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
