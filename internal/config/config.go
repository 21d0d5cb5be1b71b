// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Admin    AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `envconfig:"PORT" default:"8080"`
	ReadTimeout  int    `envconfig:"SERVER_READ_TIMEOUT" default:"15"` // seconds
	WriteTimeout int    `envconfig:"SERVER_WRITE_TIMEOUT" default:"15"`
	IdleTimeout  int    `envconfig:"SERVER_IDLE_TIMEOUT" default:"60"`
}

// DatabaseConfig holds connection settings. DATABASE_DSN, when set, wins over the discrete fields.
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"postgres"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"minimarket"`
	Password string `envconfig:"DB_PASSWORD" default:"minimarket"`
	DBName   string `envconfig:"DB_NAME" default:"minimarket"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	RawDSN   string `envconfig:"DATABASE_DSN"`
	Debug    bool   `envconfig:"DB_DEBUG"`
	Seed     bool   `envconfig:"DB_SEED"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev               bool   `envconfig:"DEV" default:"true"`
	Migrations        bool   `envconfig:"MIGRATIONS"`
	SessionSecret     string `envconfig:"SESSION_SECRET"`
	StrictTransitions bool   `envconfig:"ORDERS_STRICT_TRANSITIONS"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
	ActorCacheTTL     int    `envconfig:"ACTOR_CACHE_TTL" default:"300"` // seconds
}

// AdminConfig describes the bootstrap administrator created at startup when no admin exists.
type AdminConfig struct {
	Email    string `envconfig:"ADMIN_EMAIL"`
	Password string `envconfig:"ADMIN_PASSWORD"`
	Name     string `envconfig:"ADMIN_NAME" default:"Administrador"`
}

// DSN returns the driver specific connection string.
func (d DatabaseConfig) DSN() string {
	if d.RawDSN != "" {
		return d.RawDSN
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	case "sqlite":
		return d.DBName
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
		)
	}
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Timeouts converts the second-based settings to durations.
func (s ServerConfig) Timeouts() (read, write, idle time.Duration) {
	return time.Duration(s.ReadTimeout) * time.Second,
		time.Duration(s.WriteTimeout) * time.Second,
		time.Duration(s.IdleTimeout) * time.Second
}

// ActorTTL returns the actor cache lifetime.
func (a AppConfig) ActorTTL() time.Duration {
	return time.Duration(a.ActorCacheTTL) * time.Second
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
