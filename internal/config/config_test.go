package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "UPLOAD_DIR", "MAX_UPLOAD_BYTES",
		"STORAGE_DRIVER", "STORAGE_TIMEOUT", "CLOUD_NAME", "API_KEY", "API_SECRET",
		"RESIZE_WIDTH", "RESIZE_HEIGHT", "RESIZE_QUALITY", "STORAGE_FOLDER",
		"COMPACT_WIDTH", "COMPACT_HEIGHT", "COMPACT_QUALITY", "COMPACT_FOLDER", "COMPACT_USE_FILENAME",
		"MINIO_USE_SSL", "MAX_INPUT_PIXELS", "RESIZE_FORMAT", "COMPACT_FORMAT",
	} {
		t.Setenv(k, "")
	}
	// keep a developer's .env out of the test
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, DriverCloudinary, cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.StorageTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)

	assert.Equal(t, int64(268402689), cfg.MaxPixels)

	assert.Equal(t, Profile{Width: 800, Height: 800, Quality: 0, Folder: "uploads"}, cfg.Default)
	assert.Equal(t, Profile{Width: 500, Height: 500, Quality: 80, Format: "jpeg", Folder: "image-uploads", UseFilename: true}, cfg.Compact)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "text", cfg.LogFormat)

	cfg.StorageDriver = DriverMinio
	require.NoError(t, cfg.Validate(), "defaults validate with the credential-free driver")
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CLOUD_NAME", "demo")
	t.Setenv("API_KEY", "key")
	t.Setenv("API_SECRET", "secret")
	t.Setenv("STORAGE_TIMEOUT", "5s")
	t.Setenv("RESIZE_WIDTH", "1024")
	t.Setenv("RESIZE_QUALITY", "90")
	t.Setenv("COMPACT_USE_FILENAME", "false")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "json", cfg.LogFormat, "production defaults to JSON logs")
	assert.Equal(t, "demo", cfg.CloudName)
	assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 1024, cfg.Default.Width)
	assert.Equal(t, 800, cfg.Default.Height)
	assert.Equal(t, 90, cfg.Default.Quality)
	assert.False(t, cfg.Compact.UseFilename)
	assert.True(t, cfg.MinioUseSSL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitLogFormatWinsInProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_FORMAT", "text")

	assert.Equal(t, "text", Load().LogFormat)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESIZE_HEIGHT", "tall")
	t.Setenv("STORAGE_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 800, cfg.Default.Height)
	assert.Equal(t, 30*time.Second, cfg.StorageTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StorageDriver:  DriverCloudinary,
			StorageTimeout: time.Second,
			MaxUploadBytes: 1 << 20,
			MaxPixels:      1 << 20,
			CloudName:      "demo",
			APIKey:         "key",
			APISecret:      "secret",
			Default:        Profile{Width: 800, Height: 800},
			Compact:        Profile{Width: 500, Height: 500, Quality: 80},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing cloudinary secret", mutate: func(c *Config) { c.APISecret = "" }, wantErr: "CLOUD_NAME"},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "ftp" }, wantErr: `unknown STORAGE_DRIVER "ftp"`},
		{name: "s3 without bucket", mutate: func(c *Config) { c.StorageDriver = DriverS3 }, wantErr: "S3_BUCKET"},
		{
			name: "minio defaults",
			mutate: func(c *Config) {
				c.StorageDriver = DriverMinio
				c.MinioEndpoint = "localhost:9000"
				c.MinioBucket = "images"
			},
		},
		{name: "zero timeout", mutate: func(c *Config) { c.StorageTimeout = 0 }, wantErr: "STORAGE_TIMEOUT"},
		{name: "zero width", mutate: func(c *Config) { c.Default.Width = 0 }, wantErr: "default profile: bounding box"},
		{name: "quality out of range", mutate: func(c *Config) { c.Compact.Quality = 101 }, wantErr: "compact profile: quality"},
		{name: "jpeg format", mutate: func(c *Config) { c.Compact.Format = "JPEG" }},
		{name: "unknown format", mutate: func(c *Config) { c.Default.Format = "webp" }, wantErr: `default profile: unsupported format "webp"`},
		{name: "zero pixel limit", mutate: func(c *Config) { c.MaxPixels = 0 }, wantErr: "MAX_INPUT_PIXELS"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
