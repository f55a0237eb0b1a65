package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Download DownloadConfig `yaml:"download"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig holds object storage (S3) configuration
type StorageConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// RedisConfig holds Redis connection settings for run-progress tracking
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IngestConfig holds the ingestion run parameters
type IngestConfig struct {
	CSVPath     string   `yaml:"csv_path"`
	RowLimit    int      `yaml:"row_limit"`
	ScratchDirs []string `yaml:"scratch_dirs"`
}

// DownloadConfig holds photo download transport settings
type DownloadConfig struct {
	ConnectTimeoutSeconds  int `yaml:"connect_timeout_seconds"`
	TimeoutSeconds         int `yaml:"timeout_seconds"`
	FallbackTimeoutSeconds int `yaml:"fallback_timeout_seconds"`
	MaxRedirects           int `yaml:"max_redirects"`
}

// ConnectTimeout returns the configured connect timeout as a duration
func (c DownloadConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// Timeout returns the configured total timeout as a duration
func (c DownloadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FallbackTimeout returns the fallback transport timeout as a duration
func (c DownloadConfig) FallbackTimeout() time.Duration {
	return time.Duration(c.FallbackTimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "eu-west-2"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Ingest.CSVPath == "" {
		cfg.Ingest.CSVPath = "structured/pubs.csv"
	}
	if cfg.Ingest.RowLimit == 0 {
		cfg.Ingest.RowLimit = 5
	}
	if len(cfg.Ingest.ScratchDirs) == 0 {
		cfg.Ingest.ScratchDirs = []string{os.TempDir(), "/tmp", "tmp_uploads", "../tmp_uploads"}
	}
	if cfg.Download.ConnectTimeoutSeconds == 0 {
		cfg.Download.ConnectTimeoutSeconds = 10
	}
	if cfg.Download.TimeoutSeconds == 0 {
		cfg.Download.TimeoutSeconds = 30
	}
	if cfg.Download.FallbackTimeoutSeconds == 0 {
		cfg.Download.FallbackTimeoutSeconds = 25
	}
	if cfg.Download.MaxRedirects == 0 {
		cfg.Download.MaxRedirects = 10
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		cfg.Storage.Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.Storage.Region = region
	}
	if accessKey := os.Getenv("AWS_ACCESS_KEY_ID"); accessKey != "" {
		cfg.Storage.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY"); secretKey != "" {
		cfg.Storage.SecretKey = secretKey
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if csvPath := os.Getenv("VENUES_CSV_PATH"); csvPath != "" {
		cfg.Ingest.CSVPath = csvPath
	}
	if limit := os.Getenv("INGEST_ROW_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			cfg.Ingest.RowLimit = n
		}
	}

	return cfg, nil
}
