// Package resize produces bounded derivatives of uploaded images.
package resize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultMaxPixels bounds width*height of a source image before it is decoded.
const DefaultMaxPixels = 0x3FFF * 0x3FFF

var (
	// ErrInvalidOptions is returned when a bounding box, quality or format is out of range.
	ErrInvalidOptions = errors.New("invalid resize options")
	// ErrTooManyPixels is returned for sources whose declared dimensions exceed the limit.
	ErrTooManyPixels = errors.New("image exceeds pixel limit")
)

// Options is the bounding box, encoder quality and output format of a derivative.
type Options struct {
	Width   int
	Height  int
	Quality int    // JPEG quality 1..100; 0 keeps the encoder default
	Format  string // output encoding, e.g. "jpeg"; empty follows the source
}

// Validate checks that the bounding box is positive, quality is in range and
// the format, if any, can be encoded.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: bounding box %dx%d", ErrInvalidOptions, o.Width, o.Height)
	}
	if o.Quality < 0 || o.Quality > 100 {
		return fmt.Errorf("%w: quality %d", ErrInvalidOptions, o.Quality)
	}
	if o.Format != "" {
		if _, err := imaging.FormatFromExtension(o.Format); err != nil {
			return fmt.Errorf("%w: format %q", ErrInvalidOptions, o.Format)
		}
	}
	return nil
}

// Artifact describes a resized file written to local disk.
type Artifact struct {
	Path    string
	Width   int
	Height  int
	Quality int
	Format  string
}

// Resizer fits images into a bounding box using disintegration/imaging.
type Resizer struct {
	filter    imaging.ResampleFilter
	maxPixels int64
}

// Option configures a Resizer.
type Option func(*Resizer)

// WithMaxPixels sets the largest width*height accepted from a source image.
// Values <= 0 keep DefaultMaxPixels.
func WithMaxPixels(n int64) Option {
	return func(r *Resizer) {
		if n > 0 {
			r.maxPixels = n
		}
	}
}

// NewResizer returns a Resizer using Lanczos resampling.
func NewResizer(opts ...Option) *Resizer {
	r := &Resizer{filter: imaging.Lanczos, maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resize decodes src, scales it down to fit within opts' bounding box while
// keeping its aspect ratio, and encodes the result to dst. Images already
// inside the box keep their size. The output format follows dst's extension.
// Sources declaring more than the pixel limit are rejected before decoding.
//
// A partially written dst is not removed; the caller owns cleanup.
func (r *Resizer) Resize(ctx context.Context, src, dst string, opts Options) (*Artifact, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if src == dst {
		return nil, fmt.Errorf("%w: destination equals source %s", ErrInvalidOptions, src)
	}

	format, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return nil, fmt.Errorf("output format for %s: %w", filepath.Base(dst), err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.checkPixels(src); err != nil {
		return nil, err
	}
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}

	out := imaging.Fit(img, opts.Width, opts.Height, r.filter)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var encOpts []imaging.EncodeOption
	if opts.Quality > 0 {
		encOpts = append(encOpts, imaging.JPEGQuality(opts.Quality))
	}
	if err := imaging.Save(out, dst, encOpts...); err != nil {
		return nil, fmt.Errorf("encode %s: %w", filepath.Base(dst), err)
	}

	b := out.Bounds()
	return &Artifact{
		Path:    dst,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Quality: opts.Quality,
		Format:  strings.ToLower(format.String()),
	}, nil
}

// checkPixels reads only the image header of src.
func (r *Resizer) checkPixels(src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(src), err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > r.maxPixels {
		return fmt.Errorf("%w: %s is %dx%d, limit %d pixels", ErrTooManyPixels, filepath.Base(src), cfg.Width, cfg.Height, r.maxPixels)
	}
	return nil
}

// OutputExt picks the derivative's extension for an uploaded file name. A
// non-empty format wins; otherwise the source extension is kept when imaging
// can encode it, ".jpg" if not.
func OutputExt(name, format string) string {
	if format != "" {
		if _, err := imaging.FormatFromExtension(format); err == nil {
			return "." + strings.ToLower(strings.TrimPrefix(format, "."))
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ".jpg"
	}
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		return ".jpg"
	}
	return ext
}
