package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  apiKeys:
    plant-7: s3cret
database:
  driver: MySQL
  host: db
  user: app
  password: pw
  name: acoustic
storage:
  driver: minio
minio:
  endpoint: minio:9000
classifier:
  driver: signal
  timeout: 5s
cache:
  ttl: 1m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.APIKeys["plant-7"])
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "audio-uploads", cfg.Minio.BucketName)
	assert.Equal(t, "signal", cfg.Classifier.Driver)
	assert.Equal(t, 5*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "app:pw@tcp(db:3306)/acoustic?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(50), cfg.Server.MaxUploadMB)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "stub", cfg.Classifier.Driver)
	assert.Equal(t, 30*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("CLASSIFIER_DRIVER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "7000")

	path := writeConfig(t, `
database:
  driver: mysql
  user: u
  password: p
  name: n
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "sk-test", cfg.Classifier.APIKey)
	assert.Equal(t, "host=pg port=5432 user=u password=p dbname=n sslmode=disable", cfg.PostgresDSN())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown db driver", "database:\n  driver: oracle\n"},
		{"unknown classifier", "classifier:\n  driver: magic\n"},
		{"openai without key", "classifier:\n  driver: openai\n"},
		{"minio without endpoint", "storage:\n  driver: minio\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadEnvPort(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
