// Package config loads the application configuration from a YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Blob     BlobConfig     `yaml:"blob"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	ListenAddr  string   `yaml:"listenAddr"`
	PageSize    int      `yaml:"pageSize"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

type PostgresConfig struct {
	// DSN for the feed database. If empty, read from env GLIMMER_POSTGRES_DSN.
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	// HMAC secret shared with the identity provider. If empty, read
	// from env GLIMMER_JWT_SECRET.
	JWTSecret string `yaml:"jwtSecret"`
}

type BlobConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"baseUrl"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:  GetEnvString("GLIMMER_LISTEN_ADDR", ":8080"),
			PageSize:    10,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Postgres: PostgresConfig{DSN: ""},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Auth:     AuthConfig{JWTSecret: ""},
		Blob: BlobConfig{
			Dir:     "./media",
			BaseURL: "http://localhost:8080/media",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads YAML config from path and resolves env overrides. An empty
// path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.resolveEnv()
	return cfg, nil
}

// resolveEnv fills in secrets and addresses from environment variables
// if not set in the file.
func (c *Config) resolveEnv() {
	if v := os.Getenv("GLIMMER_POSTGRES_DSN"); c.Postgres.DSN == "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("GLIMMER_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("GLIMMER_JWT_SECRET"); c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("GLIMMER_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
}

// GetEnvString retrieves a string from environment variables or returns
// the default value.
func GetEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
