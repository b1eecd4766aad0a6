// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Every section maps onto a
// group of environment variables sharing a prefix (DB_*, JWT_*, REDIS_* ...).
type Config struct {
	Env             string        `envconfig:"APP_ENV" default:"dev"`
	Port            string        `envconfig:"APP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	StoreDriver     string        `envconfig:"STORE_DRIVER" default:"mysql"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`

	DB        DB        `envconfig:"DB"`
	JWT       JWT       `envconfig:"JWT"`
	Redis     Redis     `envconfig:"REDIS"`
	Cache     Cache     `envconfig:"CACHE"`
	RateLimit RateLimit `envconfig:"RATE_LIMIT"`
	AMQP      AMQP      `envconfig:"AMQP"`
	Audit     Audit     `envconfig:"AUDIT"`
}

// DB configures the MySQL pool.
type DB struct {
	User            string        `envconfig:"USER" default:"root"`
	Pass            string        `envconfig:"PASS"`
	Host            string        `envconfig:"HOST" default:"127.0.0.1"`
	Port            string        `envconfig:"PORT" default:"3306"`
	Name            string        `envconfig:"NAME" default:"court_reservation"`
	Migrate         bool          `envconfig:"MIGRATE" default:"true"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"30m"`
}

// JWT configures access-token verification.
type JWT struct {
	Secret    string        `envconfig:"SECRET" required:"true"`
	AccessTTL time.Duration `envconfig:"ACCESS_TTL" default:"1h"`
}

// AMQP configures the event publisher.  An empty URL disables publishing.
type AMQP struct {
	URL        string `envconfig:"URL"`
	Exchange   string `envconfig:"EXCHANGE" default:"court.events"`
	AuditQueue string `envconfig:"AUDIT_QUEUE" default:"court.audit"`
}

// Audit configures the consumer that appends events to a log file.
type Audit struct {
	Enabled bool   `envconfig:"ENABLED" default:"true"`
	LogDir  string `envconfig:"LOG_DIR" default:"logs"`
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// Load reads configuration values from the environment.  Missing required
// variables and malformed values are reported as errors.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreMySQL, StoreMemory:
	default:
		return Config{}, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	cfg.Cache.normalize()
	cfg.RateLimit.normalize()
	return cfg, nil
}
