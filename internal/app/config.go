package app

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Env       string
	HTTPAddr  string
	CORSAllow []string

	ThrottleMS      int    // min spacing between accepted publisher updates
	PublisherPolicy string // "takeover" or "reject"

	PGURL     string // empty disables persistence
	RedisAddr string // empty disables the cross-instance bus
	RedisDB   int
}

func LoadConfig() Config {
	cfg := Config{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		PublisherPolicy: getEnv("PUBLISHER_POLICY", "takeover"),
		PGURL:           getEnv("PG_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
	}
	cfg.ThrottleMS = getEnvInt("THROTTLE_MS", 100)
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	// CORS allowlist
	allow := getEnv("CORS_ALLOW", "http://localhost:3000")
	cfg.CORSAllow = splitCSV(allow)
	return cfg
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses an int env var with a fallback
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		var i int
		_, _ = fmt.Sscanf(v, "%d", &i)
		if i > 0 {
			return i
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
