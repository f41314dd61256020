// Package config loads medtrack settings from MEDTRACK_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "MEDTRACK"

type Config struct {
	APIURL          string        `mapstructure:"api_url"`
	LogLevel        string        `mapstructure:"log_level"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`

	// Reference server.
	Port      int    `mapstructure:"port"`
	DBPath    string `mapstructure:"db_path"`
	RateLimit int    `mapstructure:"rate_limit"`

	// Encrypted archives and their optional S3 upload.
	ExportPassphrase string `mapstructure:"export_passphrase"`
	S3Endpoint       string `mapstructure:"s3_endpoint"`
	S3Bucket         string `mapstructure:"s3_bucket"`
	S3Region         string `mapstructure:"s3_region"`
	S3AccessKey      string `mapstructure:"s3_access_key"`
	S3SecretKey      string `mapstructure:"s3_secret_key"`
}

// S3Enabled reports whether export archives should be uploaded.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Load reads envFile if it exists (an empty name means ".env"), then the
// process environment. Variables already set in the environment win over the
// file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetDefault("api_url", "http://localhost:8000/api")
	v.SetDefault("log_level", "info")
	v.SetDefault("refresh_interval", 60*time.Second)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("port", 8000)
	v.SetDefault("db_path", "medtrack.db")
	v.SetDefault("rate_limit", 120)
	v.SetDefault("export_passphrase", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s_API_URL %q", EnvPrefix, c.APIURL)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%s_REFRESH_INTERVAL must be positive, got %s", EnvPrefix, c.RefreshInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s_REQUEST_TIMEOUT must be positive, got %s", EnvPrefix, c.RequestTimeout)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%s_PORT must be between 1 and 65535, got %d", EnvPrefix, c.Port)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s_RATE_LIMIT cannot be negative", EnvPrefix)
	}
	if c.S3Enabled() && (c.S3AccessKey == "") != (c.S3SecretKey == "") {
		return fmt.Errorf("%s_S3_ACCESS_KEY and %s_S3_SECRET_KEY must be set together", EnvPrefix, EnvPrefix)
	}
	return nil
}

// Addr is the reference server's listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
