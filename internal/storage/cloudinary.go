package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// cloudinaryUploader is the part of the Cloudinary upload API we use;
// *uploader.API satisfies it.
type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryStorage implements Storage on top of the Cloudinary upload API.
type CloudinaryStorage struct {
	upload cloudinaryUploader
}

// NewCloudinaryStorage builds a client for the given account credentials.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	return &CloudinaryStorage{upload: &cld.Upload}, nil
}

func (s *CloudinaryStorage) Name() string { return "cloudinary" }

// Upload sends localPath into opts.Folder. With opts.UseFilename the public
// ID is derived from the original file name and is not made unique.
func (s *CloudinaryStorage) Upload(ctx context.Context, localPath string, opts UploadOptions) (*Result, error) {
	params := uploader.UploadParams{
		Folder: strings.Trim(opts.Folder, "/"),
	}
	if opts.UseFilename && opts.Filename != "" {
		base := filepath.Base(opts.Filename)
		params.PublicID = strings.TrimSuffix(base, filepath.Ext(base))
		params.UseFilename = api.Bool(true)
		params.UniqueFilename = api.Bool(false)
	}

	res, err := s.upload.Upload(ctx, localPath, params)
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res == nil {
		return nil, errors.New("cloudinary upload: empty response")
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return nil, errors.New("cloudinary upload: response has no secure_url")
	}

	return &Result{
		URL:      res.SecureURL,
		PublicID: res.PublicID,
		Folder:   params.Folder,
		Provider: s.Name(),
	}, nil
}
