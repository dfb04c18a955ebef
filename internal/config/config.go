// Package config selects between a development and a production profile and
// lets individual settings be overridden through the environment.
package config

import "os"

// Config holds runtime settings for the chat server.
//
// Fields:
//   - Addr: bind address for the HTTP/WebSocket endpoint.
//   - DBDriver / DBDSN: record store driver ("sqlite3" or "postgres") and DSN.
//   - SessionSecret: HMAC secret for signing the session cookie. The default
//     is insecure and must be overridden in production.
//   - LogLevel / LogFile: log verbosity and optional file destination
//     (empty means stderr).
//   - HashWorkers: size of the bcrypt worker pool.
type Config struct {
	Env           string
	Addr          string
	DBDriver      string
	DBDSN         string
	SessionSecret string
	LogLevel      string
	LogFile       string
	HashWorkers   int
}

func development() *Config {
	return &Config{
		Env:           "development",
		Addr:          ":7000",
		DBDriver:      "sqlite3",
		DBDSN:         "chatline.db",
		SessionSecret: "change-me-in-production",
		LogLevel:      "debug",
		LogFile:       "",
		HashWorkers:   4,
	}
}

func production() *Config {
	return &Config{
		Env:           "production",
		Addr:          ":7000",
		DBDriver:      "postgres",
		DBDSN:         "user=chat password=chat dbname=chatline sslmode=disable host=localhost port=5432",
		SessionSecret: "change-me-in-production",
		LogLevel:      "warn",
		LogFile:       "./logs/errors.log",
		HashWorkers:   4,
	}
}

// Load picks the profile named by CHAT_ENV (development unless set to
// "production") and overlays any CHAT_* environment overrides.
func Load() *Config {
	cfg := development()
	if os.Getenv("CHAT_ENV") == "production" {
		cfg = production()
	}

	overlay(&cfg.Addr, "CHAT_ADDR")
	overlay(&cfg.DBDriver, "CHAT_DB_DRIVER")
	overlay(&cfg.DBDSN, "CHAT_DB_DSN")
	overlay(&cfg.SessionSecret, "CHAT_SESSION_SECRET")
	overlay(&cfg.LogLevel, "CHAT_LOG_LEVEL")
	overlay(&cfg.LogFile, "CHAT_LOG_FILE")

	return cfg
}

func overlay(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
