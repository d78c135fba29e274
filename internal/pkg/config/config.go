package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Write modes for the course and back-reference dual write.
const (
	WriteModeBestEffort    = "best_effort"
	WriteModeTransactional = "transactional"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// AllowAdminSignup lets /auth/register create admin accounts.
	AllowAdminSignup bool `env:"ALLOW_ADMIN_SIGNUP, default=false"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Courses CourseConfig
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=course_catalog"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr        string        `env:"REDIS_ADDR,         default=localhost:6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB,           default=0"`
	ReadTimeout time.Duration `env:"REDIS_READ_TIMEOUT, default=1s"`
}

type CourseConfig struct {
	WriteMode string `env:"COURSE_WRITE_MODE, default=best_effort"`
	Workers   int    `env:"BATCH_WORKERS,     default=8"`
	// MaxBatchRows caps the rows accepted by one import.
	MaxBatchRows int `env:"BATCH_MAX_ROWS, default=1000"`
	// UpdatableFields is the PATCH whitelist; empty means every known field.
	UpdatableFields   []string      `env:"COURSE_UPDATABLE_FIELDS"`
	ImportProvider    string        `env:"IMPORT_PROVIDER,    default=Udemy"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL, default=0s"`
	ClaimTTL          time.Duration `env:"CLAIM_TTL,          default=30s"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), nil)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from lookuper, or the process environment
// when lookuper is nil, and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Courses.WriteMode {
	case WriteModeBestEffort, WriteModeTransactional:
	default:
		return fmt.Errorf("COURSE_WRITE_MODE must be %q or %q, got %q", WriteModeBestEffort, WriteModeTransactional, c.Courses.WriteMode)
	}
	if c.Courses.Workers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.Courses.Workers)
	}
	if c.Courses.MaxBatchRows <= 0 {
		return fmt.Errorf("BATCH_MAX_ROWS must be positive, got %d", c.Courses.MaxBatchRows)
	}
	if c.Env != "development" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	return nil
}
