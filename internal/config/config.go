package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Payroll  PayrollConfig
	Worker   WorkerConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int      `envconfig:"APP_PORT" default:"8080"`
	Env         string   `envconfig:"APP_ENV" default:"development"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string   `envconfig:"LOG_FORMAT"`
	CORSOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	CompanyName string   `envconfig:"COMPANY_NAME" default:"CMLabs"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME" default:"cmlabs_payroll"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`
}

// RedisConfig is optional. Without an address the scope mutex falls back to
// process memory and async generation is disabled.
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	MutexTTL time.Duration `envconfig:"REDIS_MUTEX_TTL" default:"2m"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET_KEY"`
}

// PayrollConfig holds the payroll business switches.
type PayrollConfig struct {
	ProrateDeductions bool          `envconfig:"PAYROLL_PRORATE_DEDUCTIONS" default:"false"`
	MissingDayPolicy  string        `envconfig:"PAYROLL_MISSING_DAY_POLICY" default:"ignore"`
	PaymentMethods    []string      `envconfig:"PAYROLL_PAYMENT_METHODS" default:"bank_transfer,cash,cheque"`
	Concurrency       int           `envconfig:"PAYROLL_GENERATE_CONCURRENCY" default:"8"`
	PolicyFile        string        `envconfig:"PAYROLL_POLICY_FILE"`
	RefreshInterval   time.Duration `envconfig:"PAYROLL_REFRESH_INTERVAL" default:"1h"`
	RefreshHour       int           `envconfig:"PAYROLL_REFRESH_HOUR" default:"1"`
}

type WorkerConfig struct {
	Concurrency int    `envconfig:"WORKER_CONCURRENCY" default:"10"`
	Queue       string `envconfig:"WORKER_QUEUE" default:"payroll"`
}

// policyFile mirrors the optional YAML policy. Present keys override the environment.
type policyFile struct {
	ProrateDeductions *bool    `yaml:"prorate_deductions"`
	MissingDayPolicy  *string  `yaml:"missing_day_policy"`
	PaymentMethods    []string `yaml:"payment_methods"`
}

func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	sections := []interface{}{
		&config.App,
		&config.Database,
		&config.Redis,
		&config.JWT,
		&config.Payroll,
		&config.Worker,
	}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if config.Payroll.PolicyFile != "" {
		if err := config.Payroll.applyPolicyFile(config.Payroll.PolicyFile); err != nil {
			return nil, err
		}
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (p *PayrollConfig) applyPolicyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read payroll policy file: %w", err)
	}
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse payroll policy file: %w", err)
	}
	if file.ProrateDeductions != nil {
		p.ProrateDeductions = *file.ProrateDeductions
	}
	if file.MissingDayPolicy != nil {
		p.MissingDayPolicy = *file.MissingDayPolicy
	}
	if len(file.PaymentMethods) > 0 {
		p.PaymentMethods = file.PaymentMethods
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.Payroll.MissingDayPolicy {
	case "ignore", "lop", "exclude":
	default:
		return fmt.Errorf("PAYROLL_MISSING_DAY_POLICY must be one of ignore, lop, exclude")
	}
	methods := c.Payroll.PaymentMethods[:0]
	for _, m := range c.Payroll.PaymentMethods {
		if m = strings.TrimSpace(m); m != "" {
			methods = append(methods, m)
		}
	}
	c.Payroll.PaymentMethods = methods
	if len(c.Payroll.PaymentMethods) == 0 {
		return fmt.Errorf("PAYROLL_PAYMENT_METHODS must list at least one method")
	}
	if c.Payroll.Concurrency < 1 {
		return fmt.Errorf("PAYROLL_GENERATE_CONCURRENCY must be positive")
	}
	if c.Payroll.RefreshHour < 0 || c.Payroll.RefreshHour > 23 {
		return fmt.Errorf("PAYROLL_REFRESH_HOUR must be between 0 and 23")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
