package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("S3_BUCKET", "docs")
	t.Setenv("CACHE_DOCUMENTS_TTL_SEC", "60")
	t.Setenv("DOCUMENTS_PAGE_SIZE", "25")
	t.Setenv("DB_APPLICATION_NAME", "docvault-worker")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Storage.MinIO.UseSSL)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "docs", cfg.Storage.S3.Bucket)
	assert.Equal(t, time.Minute, cfg.Cache.DocumentsTTL)
	assert.Equal(t, 25, cfg.Documents.PageSize)
	assert.Equal(t, "docvault-worker", cfg.Database.ApplicationName)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"STORAGE_DRIVER", "CACHE_ENABLED", "REDIS_URL", "CACHE_DOCUMENTS_TTL_SEC",
		"CACHE_CATEGORIES_TTL_SEC", "DOCUMENTS_PAGE_SIZE", "DOCUMENTS_MAX_UPLOAD_BYTES",
		"THUMBNAIL_MAX_WIDTH", "THUMBNAIL_MAX_HEIGHT", "S3_REGION", "DB_APPLICATION_NAME",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "minio", cfg.Storage.Driver)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.True(t, cfg.Cache.Enabled)
	assert.Empty(t, cfg.Cache.RedisURL)
	assert.Equal(t, 30*time.Minute, cfg.Cache.DocumentsTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.CategoriesTTL)
	assert.Equal(t, 10, cfg.Documents.PageSize)
	assert.Equal(t, int64(10<<20), cfg.Documents.MaxUploadBytes)
	assert.Equal(t, 200, cfg.Documents.ThumbnailWidth)
	assert.Equal(t, 200, cfg.Documents.ThumbnailHeight)
	assert.Equal(t, "docvault", cfg.Database.ApplicationName)
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "Asia/Jakarta"}
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
