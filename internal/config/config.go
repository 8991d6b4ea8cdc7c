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
	Server struct {
		Port            int               `yaml:"port"`
		MaxUploadMB     int64             `yaml:"maxUploadMB"`
		APIKeys         map[string]string `yaml:"apiKeys"` // user id -> key; empty disables auth
		CORSOrigins     []string          `yaml:"corsOrigins"`
		RateLimit       RateLimit         `yaml:"rateLimit"`
		ShutdownTimeout time.Duration     `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | memory
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Storage struct {
		Driver    string `yaml:"driver"` // minio | local
		LocalRoot string `yaml:"localRoot"`
	} `yaml:"storage"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Classifier struct {
		Driver    string        `yaml:"driver"` // stub | signal | openai
		Timeout   time.Duration `yaml:"timeout"`
		StubDelay time.Duration `yaml:"stubDelay"`
		Model     string        `yaml:"model"`
		APIKey    string        `yaml:"apiKey"`
		BaseURL   string        `yaml:"baseURL"`
	} `yaml:"classifier"`

	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

type RateLimit struct {
	Enabled    bool `yaml:"enabled"`
	Capacity   int  `yaml:"capacity"`
	RefillRate int  `yaml:"refillRate"`
}

// Load reads the YAML file at path, applies env overrides and fills defaults.
// A missing file is not an error: the service then runs on env and defaults alone.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Minio.BucketName, "MINIO_BUCKET")
	setString(&c.Classifier.Driver, "CLASSIFIER_DRIVER")
	setString(&c.Classifier.APIKey, "OPENAI_API_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")

	for key, dst := range map[string]*int{"PORT": &c.Server.Port, "DB_PORT": &c.Database.Port} {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 50
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Server.RateLimit.Capacity <= 0 {
		c.Server.RateLimit.Capacity = 60
	}
	if c.Server.RateLimit.RefillRate <= 0 {
		c.Server.RateLimit.RefillRate = 1
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.LocalRoot == "" {
		c.Storage.LocalRoot = "data/audio-uploads"
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "audio-uploads"
	}
	c.Classifier.Driver = strings.ToLower(c.Classifier.Driver)
	if c.Classifier.Driver == "" {
		c.Classifier.Driver = "stub"
	}
	if c.Classifier.Timeout <= 0 {
		c.Classifier.Timeout = 30 * time.Second
	}
	if c.Classifier.StubDelay < 0 {
		c.Classifier.StubDelay = 0
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects unknown drivers and missing credentials for the chosen ones.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver %q: want mysql, postgres or memory", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.Minio.Endpoint == "" {
			return fmt.Errorf("minio.endpoint is required when storage.driver is minio")
		}
	default:
		return fmt.Errorf("storage.driver %q: want minio or local", c.Storage.Driver)
	}
	switch c.Classifier.Driver {
	case "stub", "signal":
	case "openai":
		if c.Classifier.APIKey == "" {
			return fmt.Errorf("classifier.apiKey (or OPENAI_API_KEY) is required for the openai classifier")
		}
	default:
		return fmt.Errorf("classifier.driver %q: want stub, signal or openai", c.Classifier.Driver)
	}
	return nil
}

// MySQLDSN builds the go-sql-driver DSN.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
