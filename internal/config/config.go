// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
)

type Config struct {
	DSN          string // DB_DSN
	JWTSecret    string // JWT_SECRET
	SocketSecret string // SOCKET_SECRET, the privileged relay credential
	RedisAddr    string // REDIS_ADDR, empty runs single-instance
	Environment  string // ENVIRONMENT, "testing" disables the event bridge
}

func Load() (*Config, error) {
	cfg := &Config{
		DSN:          os.Getenv("DB_DSN"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		SocketSecret: os.Getenv("SOCKET_SECRET"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		Environment:  os.Getenv("ENVIRONMENT"),
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.SocketSecret == "" {
		return nil, fmt.Errorf("SOCKET_SECRET is not set")
	}
	return cfg, nil
}

// Testing reports whether the process runs in a test/offline context where
// outbound socket pushes must be suppressed.
func (c *Config) Testing() bool {
	return c.Environment == "testing"
}
