// Package upload receives an image, resizes it, stores the derivative
// remotely and reports the public URL.
package upload

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/imgrelay/service/internal/logging"
	"github.com/imgrelay/service/internal/metrics"
	"github.com/imgrelay/service/internal/resize"
	"github.com/imgrelay/service/internal/storage"
	"github.com/imgrelay/service/internal/tempdir"
)

// Request is one inbound upload already written to the temp directory.
type Request struct {
	Filename    string // client-supplied original name
	Path        string // local temporary file
	ContentType string
	Size        int64
}

// Profile is the per-endpoint configuration of a pipeline.
type Profile struct {
	Name        string
	Resize      resize.Options
	Folder      string
	UseFilename bool
}

// Resizer produces the bounded derivative of src at dst.
type Resizer interface {
	Resize(ctx context.Context, src, dst string, opts resize.Options) (*resize.Artifact, error)
}

// Pipeline resizes, stores and cleans up after a single request per call.
// It keeps no per-request state, so one instance serves concurrent requests.
type Pipeline struct {
	profile        Profile
	dir            *tempdir.Dir
	resizer        Resizer
	store          storage.Storage
	log            logging.Logger
	metrics        *metrics.Metrics
	storageTimeout time.Duration
}

// NewPipeline wires a pipeline. A zero storageTimeout disables the bound on
// the storage call; m may be nil.
func NewPipeline(profile Profile, dir *tempdir.Dir, r Resizer, s storage.Storage, log logging.Logger, m *metrics.Metrics, storageTimeout time.Duration) *Pipeline {
	return &Pipeline{
		profile:        profile,
		dir:            dir,
		resizer:        r,
		store:          s,
		log:            log.With("profile", profile.Name),
		metrics:        m,
		storageTimeout: storageTimeout,
	}
}

// Profile returns the pipeline's configuration.
func (p *Pipeline) Profile() Profile {
	return p.profile
}

// Dir returns the temp directory the pipeline writes into.
func (p *Pipeline) Dir() *tempdir.Dir {
	return p.dir
}

// Handle resizes req's file, uploads the derivative and returns the storage
// result. Both the original and the derivative are removed before Handle
// returns, whatever the outcome; a failed removal is logged and never
// replaces the returned result or error.
func (p *Pipeline) Handle(ctx context.Context, req *Request) (res *storage.Result, err error) {
	if req == nil || req.Path == "" {
		p.metrics.IncUpload(p.profile.Name, resultLabel(ErrMissingFile))
		return nil, stageError(ErrMissingFile, StageReceive, nil)
	}

	created := []string{req.Path}
	defer func() {
		p.cleanup(ctx, created)
		p.metrics.IncUpload(p.profile.Name, resultLabel(err))
	}()

	if !imageType(req.ContentType) {
		p.log.Warn(ctx, "upload is not an image", "file", req.Filename, "content_type", req.ContentType)
		return nil, stageError(ErrResizeFailed, StageResize, fmt.Errorf("unsupported content type %q", req.ContentType))
	}

	dst := p.dir.NewPath("resized", resize.OutputExt(req.Filename, p.profile.Resize.Format))
	created = append(created, dst)

	start := time.Now()
	artifact, err := p.resizer.Resize(ctx, req.Path, dst, p.profile.Resize)
	p.metrics.ObserveStage(StageResize, err, time.Since(start))
	if err != nil {
		p.log.Error(ctx, "resize failed", "file", req.Filename, "error", err)
		return nil, stageError(ErrResizeFailed, StageResize, err)
	}
	p.log.Debug(ctx, "image resized",
		"file", req.Filename,
		"width", artifact.Width,
		"height", artifact.Height,
		"format", artifact.Format,
	)

	storeCtx := ctx
	if p.storageTimeout > 0 {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(ctx, p.storageTimeout)
		defer cancel()
	}

	start = time.Now()
	res, err = p.store.Upload(storeCtx, artifact.Path, storage.UploadOptions{
		Folder:      p.profile.Folder,
		Filename:    req.Filename,
		ContentType: "image/" + artifact.Format,
		UseFilename: p.profile.UseFilename,
	})
	p.metrics.ObserveStage(StageStorage, err, time.Since(start))
	if err != nil {
		p.log.Error(ctx, "storage upload failed", "file", req.Filename, "provider", p.store.Name(), "error", err)
		return nil, stageError(ErrStorageUploadFailed, StageStorage, err)
	}

	p.log.Info(ctx, "image uploaded", "file", req.Filename, "url", res.URL, "provider", res.Provider)
	return res, nil
}

// imageType reports whether ct may hold an image. Unknown and generic binary
// types are left to the decoder.
func imageType(ct string) bool {
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/octet-stream" || strings.HasPrefix(mt, "image/")
}

func (p *Pipeline) cleanup(ctx context.Context, paths []string) {
	err := tempdir.Remove(paths...)
	if err == nil {
		return
	}
	failures := multierr.Errors(err)
	p.metrics.AddCleanupFailures(len(failures))
	p.log.Warn(ctx, "temporary files left behind",
		"count", len(failures),
		"error", stageError(ErrCleanupFailed, StageCleanup, err),
	)
}
