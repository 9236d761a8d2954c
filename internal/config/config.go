// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverCloudinary = "cloudinary"
	DriverMinio      = "minio"
	DriverS3         = "s3"
)

// Profile describes one upload endpoint: the bounding box, encoder quality and
// format applied to the resized derivative and the storage folder it lands in.
type Profile struct {
	Width       int
	Height      int
	Quality     int    // 0 keeps the encoder default
	Format      string // empty keeps the source format
	Folder      string
	UseFilename bool
}

// Config holds all runtime configuration for the service.
type Config struct {
	Port      string
	AppEnv    string
	LogLevel  string
	LogFormat string

	UploadDir      string
	MaxUploadBytes int64
	MaxPixels      int64 // decoded width*height limit

	StorageDriver  string
	StorageTimeout time.Duration

	// Cloudinary account, the default provider.
	CloudName string
	APIKey    string
	APISecret string

	// MinIO (or any S3-compatible endpoint reachable with minio-go)
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	MinioPublicBase string // browser-accessible base URL, e.g. "http://localhost:9000/images"

	// AWS S3
	S3Region     string
	S3Endpoint   string // empty for AWS itself
	S3AccessKey  string
	S3SecretKey  string
	S3Bucket     string
	S3PublicBase string

	Default Profile
	Compact Profile
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	cfg := &Config{
		Port:     getEnv("PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		MaxPixels:      int64(getEnvInt("MAX_INPUT_PIXELS", 0x3FFF*0x3FFF)),

		StorageDriver:  getEnv("STORAGE_DRIVER", DriverCloudinary),
		StorageTimeout: getEnvDuration("STORAGE_TIMEOUT", 30*time.Second),

		CloudName: getEnv("CLOUD_NAME", ""),
		APIKey:    getEnv("API_KEY", ""),
		APISecret: getEnv("API_SECRET", ""),

		MinioEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:     getEnv("MINIO_BUCKET", "images"),
		MinioUseSSL:     getEnv("MINIO_USE_SSL", "false") == "true",
		MinioPublicBase: getEnv("MINIO_PUBLIC_BASE", "http://localhost:9000/images"),

		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3PublicBase: getEnv("S3_PUBLIC_BASE", ""),

		Default: Profile{
			Width:   getEnvInt("RESIZE_WIDTH", 800),
			Height:  getEnvInt("RESIZE_HEIGHT", 800),
			Quality: getEnvInt("RESIZE_QUALITY", 0),
			Format:  getEnv("RESIZE_FORMAT", ""),
			Folder:  getEnv("STORAGE_FOLDER", "uploads"),
		},
		Compact: Profile{
			Width:       getEnvInt("COMPACT_WIDTH", 500),
			Height:      getEnvInt("COMPACT_HEIGHT", 500),
			Quality:     getEnvInt("COMPACT_QUALITY", 80),
			Format:      getEnv("COMPACT_FORMAT", "jpeg"),
			Folder:      getEnv("COMPACT_FOLDER", "image-uploads"),
			UseFilename: getEnv("COMPACT_USE_FILENAME", "true") == "true",
		},
	}

	logFormat := "text"
	if cfg.IsProduction() {
		logFormat = "json"
	}
	cfg.LogFormat = getEnv("LOG_FORMAT", logFormat)

	return cfg
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case DriverCloudinary:
		if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
			errs = append(errs, errors.New("cloudinary driver requires CLOUD_NAME, API_KEY and API_SECRET"))
		}
	case DriverMinio:
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			errs = append(errs, errors.New("minio driver requires MINIO_ENDPOINT and MINIO_BUCKET"))
		}
	case DriverS3:
		if c.S3Bucket == "" || c.S3PublicBase == "" {
			errs = append(errs, errors.New("s3 driver requires S3_BUCKET and S3_PUBLIC_BASE"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	if c.StorageTimeout <= 0 {
		errs = append(errs, errors.New("STORAGE_TIMEOUT must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.MaxPixels <= 0 {
		errs = append(errs, errors.New("MAX_INPUT_PIXELS must be positive"))
	}
	for name, p := range map[string]Profile{"default": c.Default, "compact": c.Compact} {
		if p.Width <= 0 || p.Height <= 0 {
			errs = append(errs, fmt.Errorf("%s profile: bounding box must be positive, got %dx%d", name, p.Width, p.Height))
		}
		if p.Quality < 0 || p.Quality > 100 {
			errs = append(errs, fmt.Errorf("%s profile: quality must be within 0..100, got %d", name, p.Quality))
		}
		if _, ok := outputFormats[strings.ToLower(p.Format)]; !ok {
			errs = append(errs, fmt.Errorf("%s profile: unsupported format %q", name, p.Format))
		}
	}

	return errors.Join(errs...)
}

// outputFormats are the derivative encodings the resizer can write.
var outputFormats = map[string]struct{}{
	"": {}, "jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "tif": {}, "tiff": {}, "bmp": {},
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
