package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3PutAPI is the subset of *s3.Client used by S3Storage.
type s3PutAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures S3Storage.
type S3Options struct {
	Region    string
	Endpoint  string // custom endpoint for S3-compatible services; empty for AWS
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicBase is the browser-accessible base URL of the bucket,
	// e.g. "https://images.example.com" behind a CDN.
	PublicBase string
}

// S3Storage implements Storage on AWS S3 via aws-sdk-go-v2.
type S3Storage struct {
	client     s3PutAPI
	bucket     string
	publicBase string
}

// NewS3Storage loads the AWS configuration for opts.Region. Static
// credentials are used when both keys are set; otherwise the default chain
// (environment, shared config, instance role) applies.
func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Storage(client, opts.Bucket, opts.PublicBase), nil
}

func newS3Storage(client s3PutAPI, bucket, publicBase string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket, publicBase: publicBase}
}

func (s *S3Storage) Name() string { return "s3" }

// Upload puts the file at localPath under "<folder>/<name><ext>".
func (s *S3Storage) Upload(ctx context.Context, localPath string, opts UploadOptions) (*Result, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}

	key := objectKey(localPath, opts)
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	return &Result{
		URL:      publicURL(s.publicBase, key),
		PublicID: key,
		Folder:   opts.Folder,
		Provider: s.Name(),
	}, nil
}
