package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Knowledge base source kinds.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceS3       = "s3"
)

// Config holds the nutrisafe API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	KB        KBConfig        `yaml:"kb"`
	Safety    SafetyConfig    `yaml:"safety"`
	Audit     AuditConfig     `yaml:"audit"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	AMQP      AMQPConfig      `yaml:"amqp"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the key-value store settings. No addrs disables the
// snapshot mirror and the embedding cache.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// KBConfig holds knowledge base loading settings.
type KBConfig struct {
	Source            string         `yaml:"source"` // file, postgres, s3
	Path              string         `yaml:"path"`
	ReloadIntervalSec int            `yaml:"reload_interval_sec"` // 0 = reload only on demand
	MirrorKeep        int            `yaml:"mirror_keep"`
	Postgres          PostgresConfig `yaml:"postgres"`
	S3                S3Config       `yaml:"s3"`
}

// PostgresConfig holds the bundle table connection.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// S3Config locates a bundle object.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
}

// SafetyConfig holds evaluation settings.
type SafetyConfig struct {
	Parallelism int `yaml:"parallelism"`
}

// AuditConfig holds the verdict log settings. An empty path disables it.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds the name suggestion provider. An empty provider
// disables suggestions.
type EmbeddingConfig struct {
	Provider      string  `yaml:"provider"`
	APIKey        string  `yaml:"api_key"`
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	Dimensions    int     `yaml:"dimensions"`
	MaxBatchSize  int     `yaml:"max_batch_size"`
	CacheTTLHours int     `yaml:"cache_ttl_hours"` // 0 = keep forever
	MinScore      float64 `yaml:"min_score"`
}

// AMQPConfig holds the publication event subscription. An empty URL disables it.
type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	Queue      string `yaml:"queue"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, when present, seeds the environment first.
func Load(env string) (Config, error) {
	_ = godotenv.Load()
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.KB.Source == "" {
		c.KB.Source = SourceFile
	}
	if c.KB.MirrorKeep <= 0 {
		c.KB.MirrorKeep = 3
	}
	if c.Safety.Parallelism <= 0 {
		c.Safety.Parallelism = 8
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 100
	}
	if c.Embedding.MinScore <= 0 {
		c.Embedding.MinScore = 0.75
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.KB.ReloadIntervalSec < 0 {
		return fmt.Errorf("kb.reload_interval_sec must be >= 0, got %d", c.KB.ReloadIntervalSec)
	}
	switch c.KB.Source {
	case SourceFile:
		if c.KB.Path == "" {
			return errors.New("kb.path is required for the file source")
		}
	case SourcePostgres:
		if c.KB.Postgres.DSN == "" {
			return errors.New("kb.postgres.dsn is required for the postgres source")
		}
	case SourceS3:
		if c.KB.S3.Bucket == "" || c.KB.S3.Key == "" {
			return errors.New("kb.s3.bucket and kb.s3.key are required for the s3 source")
		}
	default:
		return fmt.Errorf("kb.source must be one of file, postgres, s3, got %q", c.KB.Source)
	}
	if c.Embedding.Provider != "" && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required for provider %q", c.Embedding.Provider)
	}
	if c.Embedding.MinScore > 1 {
		return fmt.Errorf("embedding.min_score must be in (0, 1], got %v", c.Embedding.MinScore)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
