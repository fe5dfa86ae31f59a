package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("mongo:\n  uri: mongodb://localhost:27017\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageDriverMongo, cfg.Storage.Driver)
	assert.Equal(t, "persons", cfg.Mongo.Collection)
	assert.Equal(t, 24*time.Hour, cfg.MinIO.URLExpiry)
	assert.Equal(t, 5, cfg.Catalog.MaxAttempts)
	assert.Equal(t, int64(100<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	raw := `
server:
  port: 9000
  max_files: 3
storage:
  driver: memory
minio:
  bucket: family
  url_expiry: 1h
`
	cfg, err := Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Server.MaxFiles)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "family", cfg.MinIO.Bucket)
	assert.Equal(t, time.Hour, cfg.MinIO.URLExpiry)
}

func TestParseRejectsMongoWithoutURI(t *testing.T) {
	_, err := Parse([]byte("storage:\n  driver: mongo\n"))
	require.Error(t, err)
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	_, err := Parse([]byte("storage:\n  driver: sqlite\n"))
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: memory\n"), 0o600))

	t.Setenv("KINFOLK_SERVER_PORT", "7070")
	t.Setenv("KINFOLK_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("KINFOLK_MINIO_BUCKET", "override")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "override", cfg.MinIO.Bucket)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestParsePublicBaseURL(t *testing.T) {
	cfg, err := Parse([]byte("storage:\n  driver: memory\nminio:\n  endpoint: minio:9000\n  bucket: family\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/family", cfg.MinIO.PublicBaseURL)

	cfg, err = Parse([]byte("storage:\n  driver: memory\nminio:\n  endpoint: s3.example\n  use_ssl: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/media", cfg.MinIO.PublicBaseURL)

	cfg, err = Parse([]byte("storage:\n  driver: memory\nminio:\n  endpoint: minio:9000\n  public_base_url: https://cdn.example/media\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/media", cfg.MinIO.PublicBaseURL)
}
