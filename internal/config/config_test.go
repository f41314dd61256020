package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://localhost:8000/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.RefreshInterval != time.Minute {
		t.Errorf("RefreshInterval = %s", cfg.RefreshInterval)
	}
	if cfg.Port != 8000 || cfg.Addr() != ":8000" {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.S3Enabled() {
		t.Error("S3 enabled by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MEDTRACK_API_URL", "https://meds.example.com/api")
	t.Setenv("MEDTRACK_REFRESH_INTERVAL", "15s")
	t.Setenv("MEDTRACK_PORT", "9100")
	t.Setenv("MEDTRACK_S3_BUCKET", "household-backups")

	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "https://meds.example.com/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.RefreshInterval != 15*time.Second {
		t.Errorf("RefreshInterval = %s", cfg.RefreshInterval)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if !cfg.S3Enabled() || cfg.S3Bucket != "household-backups" {
		t.Errorf("S3Bucket = %q", cfg.S3Bucket)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "MEDTRACK_LOG_LEVEL=debug\nMEDTRACK_RATE_LIMIT=30\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Register both so t.Setenv restores them after godotenv sets them.
	t.Setenv("MEDTRACK_LOG_LEVEL", "")
	os.Unsetenv("MEDTRACK_LOG_LEVEL")
	t.Setenv("MEDTRACK_RATE_LIMIT", "45")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want value from file", cfg.LogLevel)
	}
	if cfg.RateLimit != 45 {
		t.Errorf("RateLimit = %d, environment should win over file", cfg.RateLimit)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad url", map[string]string{"MEDTRACK_API_URL": "localhost"}, "API_URL"},
		{"zero interval", map[string]string{"MEDTRACK_REFRESH_INTERVAL": "0s"}, "REFRESH_INTERVAL"},
		{"port range", map[string]string{"MEDTRACK_PORT": "70000"}, "PORT"},
		{"half credentials", map[string]string{"MEDTRACK_S3_BUCKET": "b", "MEDTRACK_S3_ACCESS_KEY": "k"}, "S3_SECRET_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(noEnvFile(t))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
