package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabase  = errors.New("database connection is required")
	ErrMissingJWTSecret = errors.New("JWT_SECRET must be set in production")
	ErrInvalidPolicy    = errors.New("AUDIT_ACTOR_POLICY must be fail_open or fail_closed")
	ErrInvalidLimits    = errors.New("AUDIT_QUERY_DEFAULT_LIMIT must not exceed AUDIT_QUERY_MAX_LIMIT")
	ErrInvalidProxy     = errors.New("TRUSTED_PROXIES entries must be IP addresses or CIDR ranges")
)

const insecureJWTSecret = "your-secret-key-change-in-production"

// Config represents application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Logging  LoggingConfig  `json:"logging"`
	Security SecurityConfig `json:"security"`
	Audit    AuditConfig    `json:"audit"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port            string        `json:"port"`
	Host            string        `json:"host"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	Environment     string        `json:"environment"`
	CORSOrigins     []string      `json:"cors_origins"`
	// TrustedProxies are the addresses or CIDR ranges whose X-Forwarded-For
	// header is believed
	TrustedProxies  []string      `json:"trusted_proxies"`
}

// DatabaseConfig represents database configuration. URL wins over the
// individual fields when set.
type DatabaseConfig struct {
	URL            string        `json:"-"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"-"`
	DBName         string        `json:"dbname"`
	SSLMode        string        `json:"sslmode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleTime    time.Duration `json:"max_idle_time"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	MigrationsPath string        `json:"migrations_path"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	URL string `json:"-"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json, text
}

// SecurityConfig represents authentication and throttling configuration
type SecurityConfig struct {
	JWTSecret          string        `json:"-"`
	JWTExpiration      time.Duration `json:"jwt_expiration"`
	BcryptCost         int           `json:"bcrypt_cost"`
	RateLimitEnabled   bool          `json:"rate_limit_enabled"`
	LoginAttempts      int           `json:"login_attempts"`
	LoginWindow        time.Duration `json:"login_window"`
	LoginBlockDuration time.Duration `json:"login_block_duration"`
}

// AuditConfig represents change audit configuration
type AuditConfig struct {
	IgnoredFields []string      `json:"ignored_fields"`
	ActorPolicy   string        `json:"actor_policy"`
	DefaultLimit  int           `json:"default_limit"`
	MaxLimit      int           `json:"max_limit"`
	WriteTimeout  time.Duration `json:"write_timeout"`
}

// MetricsConfig represents Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Load reads a .env file when present, then environment variables with defaults
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			Environment:     getEnv("ENVIRONMENT", "development"),
			CORSOrigins:     getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			TrustedProxies:  getEnvSlice("TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "tasktrail"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 20),
			MaxIdleTime:    getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			JWTSecret:          getEnv("JWT_SECRET", insecureJWTSecret),
			JWTExpiration:      getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			BcryptCost:         getEnvInt("BCRYPT_COST", 10),
			RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", false),
			LoginAttempts:      getEnvInt("RATE_LIMIT_LOGIN_ATTEMPTS", 5),
			LoginWindow:        getEnvDuration("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
			LoginBlockDuration: getEnvDuration("RATE_LIMIT_LOGIN_BLOCK", 15*time.Minute),
		},
		Audit: AuditConfig{
			IgnoredFields: getEnvSlice("AUDIT_IGNORED_FIELDS", []string{"createdAt", "updatedAt", "password"}),
			ActorPolicy:   getEnv("AUDIT_ACTOR_POLICY", "fail_open"),
			DefaultLimit:  getEnvInt("AUDIT_QUERY_DEFAULT_LIMIT", 50),
			MaxLimit:      getEnvInt("AUDIT_QUERY_MAX_LIMIT", 100),
			WriteTimeout:  getEnvDuration("AUDIT_WRITE_TIMEOUT", 5*time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.DBName == "") {
		return ErrMissingDatabase
	}

	if c.IsProduction() && (c.Security.JWTSecret == "" || c.Security.JWTSecret == insecureJWTSecret) {
		return ErrMissingJWTSecret
	}

	switch c.Audit.ActorPolicy {
	case "fail_open", "fail_closed":
	default:
		return ErrInvalidPolicy
	}

	if c.Audit.DefaultLimit > c.Audit.MaxLimit {
		return ErrInvalidLimits
	}

	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidProxy, proxy)
		}
	}

	return nil
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// GetDatabaseURL returns the database connection string
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
		int(c.Database.ConnectTimeout.Seconds()),
	)
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
