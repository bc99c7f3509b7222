// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything the server process reads from the environment.
type Config struct {
	Addr        string
	RedisAddr   string // empty disables the action historian
	RedisPass   string
	RedisDB     int
	DatabaseURL string // empty disables match persistence
	TokenSecret string
	TokenExpire time.Duration
	LogLevel    logrus.Level
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:        getEnv("ADDR", ":8080"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TokenSecret: getEnv("TOKEN_SECRET", "dev-insecure-secret"),
		TokenExpire: time.Duration(getEnvInt("TOKEN_EXPIRE_MINUTES", 120)) * time.Minute,
	}

	lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	cfg.LogLevel = lvl
	return cfg
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
