package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	AutoMigrate        bool
	// ApplicationName is reported to Postgres and shows up in pg_stat_activity.
	ApplicationName string
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Config holds object storage settings for AWS S3 (or any S3-compatible endpoint).
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
}

// StorageConfig selects and configures the blob store backend.
// Driver is one of "minio", "s3" or "memory".
type StorageConfig struct {
	Driver string
	MinIO  MinIOConfig
	S3     S3Config
}

// CacheConfig configures the read-side query cache.
// An empty RedisURL selects the in-process cache.
type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	Prefix        string
	DocumentsTTL  time.Duration
	CategoriesTTL time.Duration
}

// DocumentsConfig holds limits applied by the document services.
type DocumentsConfig struct {
	PageSize        int
	MaxPageSize     int
	MaxUploadBytes  int64
	ThumbnailWidth  int
	ThumbnailHeight int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Timezone  string
	LogLevel  string
	Database  DatabaseConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Documents DocumentsConfig
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", true),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "docvault"),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "minio"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Region:          getEnv("S3_REGION", "us-east-1"),
				Bucket:          getEnv("S3_BUCKET", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
			},
		},
		Cache: CacheConfig{
			Enabled:       getEnvBool("CACHE_ENABLED", true),
			RedisURL:      getEnv("REDIS_URL", ""),
			Prefix:        getEnv("CACHE_PREFIX", "docvault"),
			DocumentsTTL:  time.Duration(getEnvInt("CACHE_DOCUMENTS_TTL_SEC", 1800)) * time.Second,
			CategoriesTTL: time.Duration(getEnvInt("CACHE_CATEGORIES_TTL_SEC", 86400)) * time.Second,
		},
		Documents: DocumentsConfig{
			PageSize:        getEnvInt("DOCUMENTS_PAGE_SIZE", 10),
			MaxPageSize:     getEnvInt("DOCUMENTS_MAX_PAGE_SIZE", 100),
			MaxUploadBytes:  int64(getEnvInt("DOCUMENTS_MAX_UPLOAD_BYTES", 10<<20)),
			ThumbnailWidth:  getEnvInt("THUMBNAIL_MAX_WIDTH", 200),
			ThumbnailHeight: getEnvInt("THUMBNAIL_MAX_HEIGHT", 200),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
