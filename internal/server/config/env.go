package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/timex"
	"github.com/joho/godotenv"
)

// envFile is loaded when present. Variables already set in the process
// environment take precedence over it.
var envFile = ".env"

// parseEnv overlays values from the process environment:
//
//	HTTP_ADDR             bind address
//	DATABASE_DSN          PostgreSQL DSN
//	JWT_SECRET            token signing secret
//	JWT_EXPIRES_IN        token lifetime ("7d", "168h", "30m")
//	APP_ENV               "production" enables production mode
//	REDIS_URL             redis://... for change event fan-out
//	CORS_ALLOWED_ORIGINS  comma-separated origins
//	BCRYPT_COST           password hashing cost
func parseEnv(config *Config) error {
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if v, ok := lookupEnv("HTTP_ADDR"); ok {
		config.EndpointAddrHTTP = v
	}
	if v, ok := lookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := lookupEnv("JWT_SECRET"); ok {
		config.SecretKey = v
	}
	if v, ok := lookupEnv("JWT_EXPIRES_IN"); ok {
		d, err := ParseLifetime(v)
		if err != nil {
			return fmt.Errorf("JWT_EXPIRES_IN: %w", err)
		}
		config.TokenLifetime = d
	}
	if v, ok := lookupEnv("APP_ENV"); ok {
		config.Production = strings.EqualFold(v, "production")
	}
	if v, ok := lookupEnv("REDIS_URL"); ok {
		config.RedisURL = v
	}
	if v, ok := lookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		config.CORSAllowedOrigins = v
	}
	if v, ok := lookupEnv("BCRYPT_COST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BCRYPT_COST: %w", err)
		}
		config.BcryptCost = n
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// ParseLifetime accepts Go duration strings plus a whole-day form ("7d").
// The JSON file and the -t flag parse lifetimes the same way.
func ParseLifetime(s string) (time.Duration, error) {
	return timex.ParseLifetime(s)
}
