package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "parquet-data", cfg.Storage.BasePath)
	assert.Equal(t, "us-east-1", cfg.Storage.AWSRegion)
	assert.Equal(t, StorageModeLocal, cfg.Storage.Mode)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  mode: s3
  bucket: file-bucket
  base_path: custom-data
logging:
  level: debug
`), 0o644))

	t.Setenv("S3_BUCKET_NAME", "env-bucket")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorageModeS3, cfg.Storage.Mode)
	assert.Equal(t, "env-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "custom-data", cfg.Storage.BasePath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched defaults survive
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestValidateRejectsS3WithoutBucket(t *testing.T) {
	cfg := Default()
	cfg.Storage.Mode = StorageModeS3
	cfg.Storage.Bucket = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.bucket")
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Storage.Mode = "gcs"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}
