package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Mongo   MongoConfig   `yaml:"mongo"`
	MinIO   MinIOConfig   `yaml:"minio"`
	NATS    NATSConfig    `yaml:"nats"`
	Catalog CatalogConfig `yaml:"catalog"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	UploadDir   string   `yaml:"upload_dir"`
	MaxUploadMB int64    `yaml:"max_upload_mb"`
	MaxFiles    int      `yaml:"max_files"`
}

// MaxUploadBytes caps the request body of a single-file upload.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

const (
	StorageDriverMongo  = "mongo"
	StorageDriverMemory = "memory"
)

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type MongoConfig struct {
	URI        string        `yaml:"uri"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

type MinIOConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Bucket    string        `yaml:"bucket"`
	UseSSL    bool          `yaml:"use_ssl"`
	URLExpiry time.Duration `yaml:"url_expiry"`
	// PublicBaseURL prefixes image and pdf object keys. Defaults to the
	// bucket's address on Endpoint.
	PublicBaseURL string `yaml:"public_base_url"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type CatalogConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML bytes, then applies env overrides and defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for the mongo storage driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.MinIO.Bucket == "" {
		return fmt.Errorf("minio.bucket is required")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "./public/tmp"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 100
	}
	if cfg.Server.MaxFiles == 0 {
		cfg.Server.MaxFiles = 10
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageDriverMongo
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "kinfolk"
	}
	if cfg.Mongo.Collection == "" {
		cfg.Mongo.Collection = "persons"
	}
	if cfg.Mongo.Timeout == 0 {
		cfg.Mongo.Timeout = 15 * time.Second
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "media"
	}
	if cfg.MinIO.URLExpiry == 0 {
		cfg.MinIO.URLExpiry = 24 * time.Hour
	}
	if cfg.MinIO.PublicBaseURL == "" && cfg.MinIO.Endpoint != "" {
		scheme := "http"
		if cfg.MinIO.UseSSL {
			scheme = "https"
		}
		cfg.MinIO.PublicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.MinIO.Endpoint, cfg.MinIO.Bucket)
	}
	if cfg.Catalog.MaxAttempts == 0 {
		cfg.Catalog.MaxAttempts = 5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KINFOLK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KINFOLK_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("KINFOLK_UPLOAD_DIR"); v != "" {
		cfg.Server.UploadDir = v
	}
	if v := os.Getenv("KINFOLK_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("KINFOLK_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("KINFOLK_MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("KINFOLK_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("KINFOLK_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("KINFOLK_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("KINFOLK_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("KINFOLK_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("KINFOLK_MINIO_PUBLIC_BASE_URL"); v != "" {
		cfg.MinIO.PublicBaseURL = v
	}
	if v := os.Getenv("KINFOLK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
