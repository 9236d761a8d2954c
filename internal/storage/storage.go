// Package storage defines the interface for pushing resized images to a remote
// image store. Swap implementations by changing the concrete type injected at
// startup — Cloudinary, MinIO (or any S3-compatible provider) and AWS S3 are
// supported.
package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/imgrelay/service/internal/config"
)

// UploadOptions controls where and how a file is stored.
type UploadOptions struct {
	// Folder is the destination namespace (Cloudinary folder or key prefix).
	Folder string
	// Filename is the client's original file name.
	Filename string
	// ContentType of the local file, e.g. "image/jpeg".
	ContentType string
	// UseFilename keeps Filename as the object name instead of a random one.
	UseFilename bool
}

// Result is what the remote store reports for a stored file.
type Result struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Folder   string `json:"folder"`
	Provider string `json:"provider"`
}

// Storage is the interface for uploading local files to a remote store.
type Storage interface {
	// Upload sends the file at localPath and returns its public URL.
	Upload(ctx context.Context, localPath string, opts UploadOptions) (*Result, error)
	// Name identifies the provider in logs and results.
	Name() string
}

// New constructs the Storage selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverCloudinary:
		return NewCloudinaryStorage(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	case config.DriverMinio:
		return NewMinioStorage(ctx,
			cfg.MinioEndpoint,
			cfg.MinioAccessKey,
			cfg.MinioSecretKey,
			cfg.MinioBucket,
			cfg.MinioPublicBase,
			cfg.MinioUseSSL,
		)
	case config.DriverS3:
		return NewS3Storage(ctx, S3Options{
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Bucket:     cfg.S3Bucket,
			PublicBase: cfg.S3PublicBase,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// objectKey builds "<folder>/<name><ext>" for key-addressed stores. The name
// is the sanitized original file name when opts.UseFilename is set and a
// random UUID otherwise; ext is taken from localPath.
func objectKey(localPath string, opts UploadOptions) string {
	ext := strings.ToLower(filepath.Ext(localPath))

	name := uuid.NewString()
	if opts.UseFilename && opts.Filename != "" {
		base := filepath.Base(strings.ReplaceAll(opts.Filename, `\`, "/"))
		base = strings.TrimSuffix(base, filepath.Ext(base))
		if base != "" && base != "." && base != "/" {
			name = base
		}
	}

	folder := strings.Trim(opts.Folder, "/")
	if folder == "" {
		return name + ext
	}
	return path.Join(folder, name+ext)
}
