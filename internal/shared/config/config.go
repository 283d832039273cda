package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Registrar RegistrarConfig
	Linking   LinkingConfig
	Scheduler SchedulerConfig
	RabbitMQ  RabbitMQConfig
	TLS       TLSConfig
	Telemetry TelemetryConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type StorageConfig struct {
	Driver        string
	SQLiteDSN     string
	Database      DatabaseConfig
	SeedFile      string
	SeedOnStartup bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret string
}

type AuthConfig struct {
	AllowedDomains []string
}

type RegistrarConfig struct {
	URL           string
	APIKey        string
	Timeout       time.Duration
	DefaultIssuer string
	ValidityDays  int
}

type LinkingConfig struct {
	Policy string
}

type SchedulerConfig struct {
	Enabled           bool
	ScheduleTimes     []string
	WorkerCount       int
	JobDelay          time.Duration
	QueueSize         int
	RunOnStartup      bool
	ExpiryWarningDays int
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env") into the
// environment without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	registrarTimeout, err := time.ParseDuration(getEnv("REGISTRAR_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGISTRAR_TIMEOUT: %w", err)
	}
	validityDays, err := strconv.Atoi(getEnv("CERT_VALIDITY_DAYS", "365"))
	if err != nil {
		return nil, fmt.Errorf("invalid CERT_VALIDITY_DAYS: %w", err)
	}

	schedulerWorkers, err := strconv.Atoi(getEnv("SCHEDULER_WORKERS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_WORKERS: %w", err)
	}
	schedulerJobDelay, err := time.ParseDuration(getEnv("SCHEDULER_JOB_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_DELAY: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SCHEDULER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_QUEUE_SIZE: %w", err)
	}
	expiryWarningDays, err := strconv.Atoi(getEnv("EXPIRY_WARNING_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXPIRY_WARNING_DAYS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: getListEnv("ALLOWED_HOSTS", ""),
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "sqlite3"),
			SQLiteDSN: getEnv("SQLITE_DSN", "file:certlink.db?_foreign_keys=on"),
			Database: DatabaseConfig{
				Host:     getEnv("DB_HOST", "localhost"),
				Port:     dbPort,
				User:     getEnv("DB_USER", "certlink"),
				Password: getEnv("DB_PASSWORD", ""),
				DBName:   getEnv("DB_NAME", "certlink"),
				SSLMode:  getEnv("DB_SSLMODE", "disable"),
			},
			SeedFile:      getEnv("SEED_FILE", ""),
			SeedOnStartup: getBoolEnv("SEED_ON_STARTUP", false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Auth: AuthConfig{
			AllowedDomains: getListEnv("ALLOWED_DOMAINS", "finnest.ai"),
		},
		Registrar: RegistrarConfig{
			URL:           getEnv("REGISTRAR_URL", ""),
			APIKey:        getEnv("REGISTRAR_API_KEY", ""),
			Timeout:       registrarTimeout,
			DefaultIssuer: getEnv("CERT_DEFAULT_ISSUER", "KFTC"),
			ValidityDays:  validityDays,
		},
		Linking: LinkingConfig{
			Policy: strings.ToLower(getEnv("LINK_POLICY", "replace")),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getBoolEnv("SCHEDULER_ENABLED", true),
			ScheduleTimes:     getListEnv("SCHEDULER_TIMES", "08:00"),
			WorkerCount:       schedulerWorkers,
			JobDelay:          schedulerJobDelay,
			QueueSize:         schedulerQueueSize,
			RunOnStartup:      getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false),
			ExpiryWarningDays: expiryWarningDays,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "certlink.events"),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "certlink-api"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9464"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Auth.AllowedDomains) == 0 {
		return fmt.Errorf("ALLOWED_DOMAINS must list at least one domain")
	}

	switch c.Storage.Driver {
	case "sqlite3":
		if c.Storage.SQLiteDSN == "" {
			return fmt.Errorf("SQLITE_DSN is required when STORAGE_DRIVER=sqlite3")
		}
	case "postgres":
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q (want sqlite3 or postgres)", c.Storage.Driver)
	}

	if c.Registrar.Timeout <= 0 {
		return fmt.Errorf("REGISTRAR_TIMEOUT must be positive")
	}
	if c.Registrar.ValidityDays <= 0 {
		return fmt.Errorf("CERT_VALIDITY_DAYS must be positive")
	}
	if c.Linking.Policy != "replace" && c.Linking.Policy != "merge" {
		return fmt.Errorf("invalid LINK_POLICY %q (want replace or merge)", c.Linking.Policy)
	}

	for _, hhmm := range c.Scheduler.ScheduleTimes {
		if _, err := time.Parse("15:04", hhmm); err != nil {
			return fmt.Errorf("invalid SCHEDULER_TIMES entry %q: %w", hhmm, err)
		}
	}
	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("SCHEDULER_WORKERS must be at least 1")
	}
	if c.Scheduler.ExpiryWarningDays < 1 {
		return fmt.Errorf("EXPIRY_WARNING_DAYS must be at least 1")
	}

	if c.TLS.Enabled {
		if c.TLS.CertPath == "" {
			return fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (want json or console)", c.Log.Format)
	}
	return nil
}

// DSN returns the data source name for the configured driver
func (c *StorageConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.Database.ConnectionString()
	}
	return c.SQLiteDSN
}

// CertificateValidity is the lifetime given to newly registered certificates
func (c *RegistrarConfig) CertificateValidity() time.Duration {
	return time.Duration(c.ValidityDays) * 24 * time.Hour
}

// ExpiryWarning is how far ahead the expiry watch looks
func (c *SchedulerConfig) ExpiryWarning() time.Duration {
	return time.Duration(c.ExpiryWarningDays) * 24 * time.Hour
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// getListEnv splits a comma-separated variable, dropping blank entries
func getListEnv(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
